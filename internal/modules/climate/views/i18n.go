package views

import "strings"

type Lang string

const (
	LangJA Lang = "ja"
	LangEN Lang = "en"

	DefaultLang = LangJA
)

// ParseLang reports whether s names a supported language.
func ParseLang(s string) (Lang, bool) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case LangJA:
		return LangJA, true
	case LangEN:
		return LangEN, true
	}
	return DefaultLang, false
}

// Other is the language offered by the toggle button.
func (l Lang) Other() Lang {
	if l == LangEN {
		return LangJA
	}
	return LangEN
}

const (
	IODForecastURL   = "https://climate.copernicus.eu/charts/packages/c3s_seasonal/products/c3s_seasonal_plume_mm?area=iod&base_time=202511010000&type=plume"
	ENSOForecastURL  = "https://iri.columbia.edu/our-expertise/climate/forecasts/enso/current/?enso_tab=enso-sst_table"
	NOAACompositeURL = "https://psl.noaa.gov/cgi-bin/data/composites/printpage.pl"
)

// Text is the UI copy for one language.
type Text struct {
	Title           string
	SidebarTitle    string
	TargetMonth     string
	TargetONI       string
	TargetIOD       string
	Tolerance       string
	PDOPhase        string
	PDOThreshold    string
	NumResults      string
	Order           string
	OrderScore      string
	OrderYear       string
	SearchBtn       string
	ResultsTitle    string
	NoResults       string
	GraphTitle      string
	PreviewTitle    string
	SearchHint      string
	Rank            string
	Year            string
	Score           string
	Diff            string
	Download        string
	LangBtn         string
	HowToTitle      string
	HowTo           []string
	RefTitle        string
	IODLink         string
	ENSOLink        string
	NOAALink        string
	DatasetTitle    string
	LoadedAt        string
	Records         string
	Index           string
	Count           string
	First           string
	Last            string
	Skipped         string
	Unavailable     string
	PDONegative     string
	PDOPositive     string
	PDONeutral      string
	PDOAny          string
	InvalidCriteria string
}

var texts = map[Lang]Text{
	LangJA: {
		Title:        "気候類似年検索ツール (Climate Analog Finder)",
		SidebarTitle: "検索条件設定",
		TargetMonth:  "対象月",
		TargetONI:    "予想 ONI (ENSO)",
		TargetIOD:    "予想 IOD (インド洋ダイポール)",
		Tolerance:    "許容幅 (空欄で制限なし)",
		PDOPhase:     "PDO (太平洋十年規模振動) 位相",
		PDOThreshold: "PDO 閾値 (絶対値)",
		NumResults:   "表示件数",
		Order:        "並び順",
		OrderScore:   "類似度順",
		OrderYear:    "年順",
		SearchBtn:    "類似年を検索",
		ResultsTitle: "検索結果 (類似度順)",
		NoResults:    "条件に一致する年が見つかりませんでした。",
		GraphTitle:   "気候指数の時系列推移",
		PreviewTitle: "最近の気候指数 (2000年以降)",
		SearchHint:   "左のサイドバーから条件を設定して検索してください。",
		Rank:         "順位",
		Year:         "年",
		Score:        "スコア (小さいほど類似)",
		Diff:         "差分",
		Download:     "Excel でダウンロード",
		LangBtn:      "English",
		HowToTitle:   "使い方",
		HowTo: []string{
			"左側のサイドバーで対象月と予想される気候指数(ONI, IOD)を入力します。",
			"PDOの位相条件を選択します。",
			"「類似年を検索」ボタンを押すと、過去のデータから条件に近い年が表示されます。",
		},
		RefTitle:        "参考データ (最新予測)",
		IODLink:         "IOD予測 (Copernicus)",
		ENSOLink:        "ENSO予測 (IRI)",
		NOAALink:        "NOAA PSL Composites (詳細解析)",
		DatasetTitle:    "データセット",
		LoadedAt:        "読み込み日時",
		Records:         "レコード数",
		Index:           "指数",
		Count:           "件数",
		First:           "開始",
		Last:            "終了",
		Skipped:         "スキップ",
		Unavailable:     "取得できませんでした",
		PDONegative:     "負 (Negative)",
		PDOPositive:     "正 (Positive)",
		PDONeutral:      "中立 (Neutral)",
		PDOAny:          "指定なし (Any)",
		InvalidCriteria: "検索条件が正しくありません",
	},
	LangEN: {
		Title:        "Climate Analog Finder",
		SidebarTitle: "Search Settings",
		TargetMonth:  "Target Month",
		TargetONI:    "Target ONI (ENSO)",
		TargetIOD:    "Target IOD",
		Tolerance:    "Tolerance (blank = none)",
		PDOPhase:     "PDO Phase",
		PDOThreshold: "PDO Threshold (Abs)",
		NumResults:   "Number of Results",
		Order:        "Order",
		OrderScore:   "By similarity",
		OrderYear:    "By year",
		SearchBtn:    "Search Analog Years",
		ResultsTitle: "Search Results (Ordered by Similarity)",
		NoResults:    "No matching years found.",
		GraphTitle:   "Time Series of Climate Indices",
		PreviewTitle: "Recent Climate Indices (Since 2000)",
		SearchHint:   "Configure settings in the sidebar to search.",
		Rank:         "Rank",
		Year:         "Year",
		Score:        "Score (Lower is better)",
		Diff:         "Diff",
		Download:     "Download Excel",
		LangBtn:      "日本語",
		HowToTitle:   "How to use",
		HowTo: []string{
			"Set the target month and expected indices (ONI, IOD) in the sidebar.",
			"Select the PDO phase condition.",
			"Click \"Search Analog Years\" to find historical years with similar patterns.",
		},
		RefTitle:        "Reference Data (Forecasts)",
		IODLink:         "IOD Forecast (Copernicus)",
		ENSOLink:        "ENSO Forecast (IRI)",
		NOAALink:        "NOAA PSL Composites",
		DatasetTitle:    "Dataset",
		LoadedAt:        "Loaded at",
		Records:         "Records",
		Index:           "Index",
		Count:           "Values",
		First:           "First",
		Last:            "Last",
		Skipped:         "Skipped",
		Unavailable:     "unavailable",
		PDONegative:     "Negative",
		PDOPositive:     "Positive",
		PDONeutral:      "Neutral",
		PDOAny:          "Any",
		InvalidCriteria: "Invalid search criteria",
	},
}

// TextFor returns the copy for l, falling back to the default language.
func TextFor(l Lang) Text {
	if t, ok := texts[l]; ok {
		return t
	}
	return texts[DefaultLang]
}
