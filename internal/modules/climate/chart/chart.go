// Package chart draws the ONI, IOD and PDO series as stacked panels with
// gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"analogfinder/internal/modules/climate/types"
)

type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

var ErrUnknownFormat = errors.New("unknown chart format")

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "svg", "":
		return SVG, nil
	case "png":
		return PNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Palette colours analog years by rank; it wraps after 20 entries.
var Palette = []color.Color{
	rgb(0x636EFA), rgb(0xEF553B), rgb(0x00CC96), rgb(0xAB63FA), rgb(0xFFA15A),
	rgb(0x19D3F3), rgb(0xFF6692), rgb(0xB6E880), rgb(0xFF97FF), rgb(0xFECB52),
	rgb(0x1F77B4), rgb(0xFF7F0E), rgb(0x2CA02C), rgb(0xD62728), rgb(0x9467BD),
	rgb(0x8C564B), rgb(0xE377C2), rgb(0x7F7F7F), rgb(0xBCBD22), rgb(0x17BECF),
}

var (
	backgroundColor = color.NRGBA{R: 128, G: 128, B: 128, A: 80}
	previewColor    = rgb(0x1F77B4)
)

type panel struct {
	index types.Index
	title string
}

var panels = []panel{
	{types.ONI, "ONI (ENSO)"},
	{types.IOD, "IOD"},
	{types.PDO, "PDO"},
}

const (
	width          = 10 * vg.Inch
	analogHeight   = 8 * vg.Inch
	previewHeight  = 6 * vg.Inch
	highlightWidth = 2
)

// Analogs draws series in gray and overlays each matched year in its rank
// colour. The legend on the top panel reads "<year> (Rank n)".
func Analogs(w io.Writer, f Format, series []types.Record, matches []types.Match) error {
	byYear := groupByYear(series)

	plots := make([]*plot.Plot, len(panels))
	for i, pn := range panels {
		p := newPanel(pn.title)
		if _, err := addSegments(p, series, pn.index, backgroundColor, 1, false); err != nil {
			return err
		}
		for rank, m := range matches {
			c := Palette[rank%len(Palette)]
			line, err := addYear(p, byYear[m.Year], pn.index, c)
			if err != nil {
				return err
			}
			if i == 0 && line != nil {
				p.Legend.Add(fmt.Sprintf("%d (Rank %d)", m.Year, rank+1), line)
			}
		}
		plots[i] = p
	}
	return render(w, f, plots, analogHeight)
}

// Recent draws series as plain lines, used before any search was made.
func Recent(w io.Writer, f Format, series []types.Record, title string) error {
	plots := make([]*plot.Plot, len(panels))
	for i, pn := range panels {
		p := newPanel(pn.title)
		if i == 0 && title != "" {
			p.Title.Text = title + "\n" + pn.title
		}
		if _, err := addSegments(p, series, pn.index, previewColor, 1.5, false); err != nil {
			return err
		}
		plots[i] = p
	}
	return render(w, f, plots, previewHeight)
}

func newPanel(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Add(plotter.NewGrid())
	return p
}

// addSegments adds one line per run of consecutive months that carry idx,
// so gaps stay visible instead of being bridged. It returns the number of
// runs drawn.
func addSegments(p *plot.Plot, recs []types.Record, idx types.Index, c color.Color, lineWidth float64, points bool) (int, error) {
	segs := segments(recs, idx)
	for _, seg := range segs {
		if points {
			line, scatter, err := plotter.NewLinePoints(seg)
			if err != nil {
				return 0, fmt.Errorf("%s line: %w", idx, err)
			}
			line.Color = c
			line.Width = vg.Points(lineWidth)
			scatter.Color = c
			scatter.Shape = draw.CircleGlyph{}
			scatter.Radius = vg.Points(2)
			p.Add(line, scatter)
			continue
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return 0, fmt.Errorf("%s line: %w", idx, err)
		}
		line.Color = c
		line.Width = vg.Points(lineWidth)
		p.Add(line)
	}
	return len(segs), nil
}

// addYear highlights one year and returns a line usable as legend thumbnail,
// or nil when the year has no value for idx.
func addYear(p *plot.Plot, recs []types.Record, idx types.Index, c color.Color) (*plotter.Line, error) {
	n, err := addSegments(p, recs, idx, c, highlightWidth, true)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	thumb := &plotter.Line{}
	thumb.Color = c
	thumb.Width = vg.Points(highlightWidth)
	return thumb, nil
}

func segments(recs []types.Record, idx types.Index) []plotter.XYs {
	var (
		out  []plotter.XYs
		cur  plotter.XYs
		prev int
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}
	for _, r := range recs {
		v, ok := r.Value(idx)
		month := r.Year*12 + r.Month - 1
		if !ok || (len(cur) > 0 && month != prev+1) {
			flush()
		}
		if ok {
			cur = append(cur, plotter.XY{X: monthTime(r.Year, r.Month), Y: v})
			prev = month
		}
	}
	flush()
	return out
}

func monthTime(year, month int) float64 {
	return float64(time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC).Unix())
}

func groupByYear(recs []types.Record) map[int][]types.Record {
	out := make(map[int][]types.Record)
	for _, r := range recs {
		out[r.Year] = append(out[r.Year], r)
	}
	return out
}

func render(w io.Writer, f Format, plots []*plot.Plot, height vg.Length) error {
	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadY:      vg.Points(6),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
	}

	switch f {
	case SVG:
		c := vgsvg.New(width, height)
		drawTiles(draw.New(c), grid, tiles)
		if _, err := c.WriteTo(w); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
	case PNG:
		c := vgimg.New(width, height)
		drawTiles(draw.New(c), grid, tiles)
		if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return nil
}

func drawTiles(dc draw.Canvas, grid [][]*plot.Plot, tiles draw.Tiles) {
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		for j := range grid[i] {
			grid[i][j].Draw(canvases[i][j])
		}
	}
}

func rgb(hex uint32) color.Color {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xFF}
}
