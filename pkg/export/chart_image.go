package export

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 640
	chartHeight = 400
)

// RenderChartPNG rasterizes a chart aggregate for formats that embed
// images instead of native chart objects.
func RenderChartPNG(agg ChartAggregate) ([]byte, error) {
	if len(agg.Categories) == 0 {
		return nil, fmt.Errorf("chart %q has no data", agg.Title)
	}
	var buf bytes.Buffer
	var err error
	switch agg.Kind {
	case ChartPie:
		err = renderPie(agg, &buf)
	case ChartLine:
		err = renderLine(agg, &buf)
	default:
		err = renderBar(agg, &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s chart %q: %w", agg.Kind, agg.Title, err)
	}
	return buf.Bytes(), nil
}

func renderBar(agg ChartAggregate, buf *bytes.Buffer) error {
	bars := make([]chart.Value, len(agg.Categories))
	for i, cat := range agg.Categories {
		bars[i] = chart.Value{Label: cat.Label, Value: float64(cat.Count)}
	}
	graph := chart.BarChart{
		Title:    agg.Title,
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: barWidth(len(bars)),
		Bars:     bars,
	}
	return graph.Render(chart.PNG, buf)
}

func renderPie(agg ChartAggregate, buf *bytes.Buffer) error {
	values := make([]chart.Value, len(agg.Categories))
	for i, cat := range agg.Categories {
		values[i] = chart.Value{Label: cat.Label, Value: float64(cat.Count)}
	}
	graph := chart.PieChart{
		Title:  agg.Title,
		Width:  chartWidth,
		Height: chartHeight,
		Values: values,
	}
	return graph.Render(chart.PNG, buf)
}

func renderLine(agg ChartAggregate, buf *bytes.Buffer) error {
	// A single bucket has no drawable x-range; fall back to a bar.
	if len(agg.Categories) == 1 {
		return renderBar(agg, buf)
	}
	xs := make([]float64, len(agg.Categories))
	ys := make([]float64, len(agg.Categories))
	ticks := make([]chart.Tick, len(agg.Categories))
	for i, cat := range agg.Categories {
		xs[i] = float64(i)
		ys[i] = float64(cat.Count)
		ticks[i] = chart.Tick{Value: float64(i), Label: cat.Label}
	}
	graph := chart.Chart{
		Title:  agg.Title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{XValues: xs, YValues: ys},
		},
	}
	return graph.Render(chart.PNG, buf)
}

func barWidth(n int) int {
	w := (chartWidth - 120) / n
	if w > 60 {
		return 60
	}
	if w < 8 {
		return 8
	}
	return w
}
