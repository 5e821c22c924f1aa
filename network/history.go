package network

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// History collects the test accuracy measured after every training epoch,
// starting with the epoch-0 baseline taken before the first update.
type History struct {
	Epochs   []int
	Accuracy []float64
}

// Record appends one evaluation result.
func (h *History) Record(epoch int, r Result) {
	h.Epochs = append(h.Epochs, epoch)
	h.Accuracy = append(h.Accuracy, r.Accuracy())
}

// WriteCSV writes the recorded curve as "epoch,accuracy" lines.
func (h *History) WriteCSV(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "epoch,accuracy"); err != nil {
		return err
	}
	for i, epoch := range h.Epochs {
		if _, err := fmt.Fprintf(w, "%d,%.2f\n", epoch, h.Accuracy[i]); err != nil {
			return err
		}
	}
	return nil
}

// PlotPNG saves the accuracy-over-epochs curve as a PNG line chart.
func (h *History) PlotPNG(filename string) error {
	pts := make(plotter.XYs, len(h.Epochs))
	for i := range pts {
		pts[i].X = float64(h.Epochs[i])
		pts[i].Y = h.Accuracy[i]
	}

	p := plot.New()
	p.Title.Text = "test accuracy"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "accuracy (%)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
