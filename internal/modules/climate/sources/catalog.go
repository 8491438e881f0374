// Package sources reads the monthly climate index tables published by
// NOAA, NCEI and JMA and merges them into per-month records.
package sources

import (
	"analogfinder/internal/modules/climate/types"
)

// Format describes how a year-by-month text table encodes one index.
type Format struct {
	// MinFields is the minimum number of whitespace separated fields a row
	// needs (year included). 13 means only complete years are accepted.
	MinFields int
	// SkipContaining drops lines containing this text (column headers).
	SkipContaining string
	// PreBlock restricts parsing to the first <pre>...</pre> block of an
	// HTML page.
	PreBlock bool
	// Valid reports whether a parsed value is a real observation rather
	// than a missing-value sentinel. Nil accepts every value.
	Valid func(v float64) bool
}

// Source is one published index table.
type Source struct {
	Index  types.Index
	File   string
	URL    string
	Format Format
}

func above(limit float64) func(float64) bool {
	return func(v float64) bool { return v > limit }
}

func below(limit float64) func(float64) bool {
	return func(v float64) bool { return v < limit }
}

// DefaultCatalog lists the tables the finder knows about. File names match
// the published file names so a mirrored directory can be used as DATA_DIR.
func DefaultCatalog() []Source {
	return []Source{
		{
			Index:  types.ONI,
			File:   "oni.data",
			URL:    "https://psl.noaa.gov/data/correlation/oni.data",
			Format: Format{MinFields: 13, Valid: above(-90)},
		},
		{
			Index:  types.IOD,
			File:   "dmi.had.long.data",
			URL:    "https://psl.noaa.gov/gcos_wgsp/Timeseries/Data/dmi.had.long.data",
			Format: Format{MinFields: 13, Valid: above(-90)},
		},
		{
			Index:  types.PDO,
			File:   "ersst.v5.pdo.dat",
			URL:    "https://www.ncei.noaa.gov/pub/data/cmb/ersst/v5/index/ersst.v5.pdo.dat",
			Format: Format{MinFields: 13, SkipContaining: "Year", Valid: below(90)},
		},
		{
			Index:  types.NinoWest,
			File:   "ninowidx.html",
			URL:    "https://www.data.jma.go.jp/cpd/data/elnino/index/ninowidx.html",
			Format: Format{MinFields: 2, PreBlock: true, Valid: below(90)},
		},
		{
			Index:  types.NAO,
			File:   "norm.nao.monthly.b5001.current.ascii.table",
			URL:    "https://www.cpc.ncep.noaa.gov/products/precip/CWlink/pna/norm.nao.monthly.b5001.current.ascii.table",
			Format: Format{MinFields: 2},
		},
		{
			Index:  types.PNA,
			File:   "norm.pna.monthly.b5001.current.ascii.table",
			URL:    "https://www.cpc.ncep.noaa.gov/products/precip/CWlink/pna/norm.pna.monthly.b5001.current.ascii.table",
			Format: Format{MinFields: 2},
		},
		{
			Index:  types.AO,
			File:   "monthly.ao.index.b50.current.ascii.table",
			URL:    "https://www.cpc.ncep.noaa.gov/products/precip/CWlink/daily_ao_index/monthly.ao.index.b50.current.ascii.table",
			Format: Format{MinFields: 2},
		},
		{
			Index:  types.QBO30,
			File:   "qbo.u30.index",
			URL:    "https://www.cpc.ncep.noaa.gov/data/indices/qbo.u30.index",
			Format: Format{MinFields: 2, Valid: above(-900)},
		},
		{
			Index:  types.QBO50,
			File:   "qbo.u50.index",
			URL:    "https://www.cpc.ncep.noaa.gov/data/indices/qbo.u50.index",
			Format: Format{MinFields: 2, Valid: above(-900)},
		},
	}
}
