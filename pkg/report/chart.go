package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// RenderPage writes an HTML page with an I-V chart and a P-V chart, one
// series per curve in the set.
func (cs CurveSet) RenderPage(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = cs.Title
	page.AddCharts(
		cs.line("I-V Curve", "Current (A)", func(i, curveIdx int) float64 {
			return cs.Curves[curveIdx].Points[i].I
		}),
		cs.line("P-V Curve", "Power (W)", func(i, curveIdx int) float64 {
			return cs.Curves[curveIdx].Points[i].P
		}),
	)
	return page.Render(w)
}

func (cs CurveSet) line(title, yName string, value func(i, curveIdx int) float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: cs.Title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:  "value",
			Name:  "Voltage (V)",
			Scale: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  yName,
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	for ci, curve := range cs.Curves {
		data := make([]opts.LineData, 0, len(curve.Points))
		for i, p := range curve.Points {
			data = append(data, opts.LineData{Value: []float64{p.V, value(i, ci)}})
		}
		label := ""
		if ci < len(cs.Labels) {
			label = cs.Labels[ci]
		}
		line.AddSeries(label, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}
	return line
}
