// Package report renders cross-validation results as images.
package report

import (
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// FoldBar is one bar of the fold chart.
type FoldBar struct {
	Label string
	R2    float64
	// Degenerate folds are drawn at zero height.
	Degenerate bool
}

var (
	barColor  = color.RGBA{R: 120, G: 144, B: 156, A: 255}
	bestColor = color.RGBA{R: 46, G: 125, B: 50, A: 255}
)

// FoldChart builds a bar chart of R² per fold with the best fold highlighted.
// best < 0 highlights nothing.
func FoldChart(title string, bars []FoldBar, best int) (*plot.Plot, error) {
	if len(bars) == 0 {
		return nil, errors.NewValueError("report.FoldChart", "no folds to plot")
	}

	values := make(plotter.Values, len(bars))
	highlight := make(plotter.Values, len(bars))
	labels := make([]string, len(bars))
	for i, b := range bars {
		labels[i] = b.Label
		if b.Degenerate || math.IsNaN(b.R2) || math.IsInf(b.R2, 0) {
			continue
		}
		if i == best {
			highlight[i] = b.R2
		} else {
			values[i] = b.R2
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "R²"

	w := vg.Points(20)
	all, err := plotter.NewBarChart(values, w)
	if err != nil {
		return nil, errors.Wrap(err, "report.FoldChart")
	}
	all.Color = barColor
	all.LineStyle.Width = vg.Length(0)

	top, err := plotter.NewBarChart(highlight, w)
	if err != nil {
		return nil, errors.Wrap(err, "report.FoldChart")
	}
	top.Color = bestColor
	top.LineStyle.Width = vg.Length(0)

	p.Add(all, top, plotter.NewGrid())
	p.NominalX(labels...)
	return p, nil
}

// WriteFoldChart writes the fold chart as a PNG to path. The file is replaced
// atomically.
func WriteFoldChart(path, title string, bars []FoldBar, best int) error {
	p, err := FoldChart(title, bars, best)
	if err != nil {
		return err
	}
	width := vg.Length(max(4, len(bars))) * vg.Inch
	wt, err := p.WriterTo(width, 3*vg.Inch, "png")
	if err != nil {
		return errors.NewPersistenceError(path, "cannot render chart for", err)
	}
	return model.WriteAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
