package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	highColor   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	mediumColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

// Series is one category of the grouped bar chart.
type Series struct {
	Label  string
	High   int
	Medium int
}

// RenderRiskChart draws one High/Medium bar pair per series, in the order
// given, and returns the chart as PNG.
func RenderRiskChart(series []Series) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("risk chart needs at least one category")
	}

	labels := make([]string, len(series))
	high := make(plotter.Values, len(series))
	medium := make(plotter.Values, len(series))
	maxCount := 0
	for i, s := range series {
		labels[i] = s.Label
		high[i] = float64(s.High)
		medium[i] = float64(s.Medium)
		maxCount = max(maxCount, s.High, s.Medium)
	}

	p := plot.New()
	p.Title.Text = "Risks by Pillar"
	p.Y.Label.Text = "Counts"
	p.Y.Min = 0
	p.Y.Max = math.Max(1, float64(maxCount)+1)

	w := vg.Points(14)

	highBars, err := plotter.NewBarChart(high, w)
	if err != nil {
		return nil, fmt.Errorf("high risk bars: %w", err)
	}
	highBars.Color = highColor
	highBars.LineStyle.Width = vg.Length(0)
	highBars.Offset = -w / 2

	mediumBars, err := plotter.NewBarChart(medium, w)
	if err != nil {
		return nil, fmt.Errorf("medium risk bars: %w", err)
	}
	mediumBars.Color = mediumColor
	mediumBars.LineStyle.Width = vg.Length(0)
	mediumBars.Offset = w / 2

	p.Add(highBars, mediumBars)
	p.Legend.Add("High Risk", highBars)
	p.Legend.Add("Medium Risk", mediumBars)
	p.Legend.Top = true

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("render risk chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode risk chart: %w", err)
	}
	return buf.Bytes(), nil
}
