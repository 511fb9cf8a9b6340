package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// chartRows are the rows that make it into a chart: rules that fired, or all
// rules when none did so that the chart is never empty.
func (t *Tally) chartRows() []Row {
	if rows := t.Active(); len(rows) > 0 {
		return rows
	}
	return t.Rows()
}

// WritePNG saves a bar chart of rule hit counts. The file type follows the
// extension of path (png, svg, pdf, ...).
func (t *Tally) WritePNG(path string) error {
	rows := t.chartRows()
	values := make(plotter.Values, len(rows))
	names := make([]string, len(rows))
	for i, r := range rows {
		values[i] = float64(r.Count)
		names[i] = r.Rule.String()
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Rule hits (%d objects, %d cycles)", t.Objects, t.Cycles)
	p.Y.Label.Text = "Objects"

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1

	width := vg.Length(2+len(rows)) * 0.5 * vg.Inch
	if width < 6*vg.Inch {
		width = 6 * vg.Inch
	}
	if err := p.Save(width, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}

// WriteHTML renders the same chart as an interactive page.
func (t *Tally) WriteHTML(w io.Writer) error {
	rows := t.chartRows()
	x := make([]string, len(rows))
	y := make([]opts.BarData, len(rows))
	for i, r := range rows {
		x[i] = r.Rule.String()
		y[i] = opts.BarData{Value: r.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Rule hits", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Rule hits",
			Subtitle: fmt.Sprintf("objects=%d cycles=%d", t.Objects, t.Cycles),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45, Interval: "0"}}),
	)
	bar.SetXAxis(x).
		AddSeries("objects", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}
