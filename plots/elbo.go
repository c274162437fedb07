package plots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ELBOFile is the name of the training curve image.
const ELBOFile = "test_elbo_vae.png"

// ELBOHistory maps an epoch to the loss logged for it, i.e. the negative
// ELBO as reported by an SVI step.
type ELBOHistory map[int]float64

// LoadELBOHistory reads {"train": {"<epoch>": loss}, "test": {...}}.
func LoadELBOHistory(path string) (train, test ELBOHistory, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read ELBO history: %w", err)
	}
	var doc struct {
		Train ELBOHistory `json:"train"`
		Test  ELBOHistory `json:"test"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse ELBO history %s: %w", path, err)
	}
	return doc.Train, doc.Test, nil
}

// points returns the history sorted by epoch with the loss negated back
// into an ELBO.
func (h ELBOHistory) points() plotter.XYs {
	epochs := make([]int, 0, len(h))
	for e := range h {
		epochs = append(epochs, e)
	}
	sort.Ints(epochs)
	xys := make(plotter.XYs, len(epochs))
	for i, e := range epochs {
		xys[i] = plotter.XY{X: float64(e), Y: -h[e]}
	}
	return xys
}

// PlotELBO draws the train and test ELBO per epoch as markers joined by
// dashed lines and writes dir/test_elbo_vae.png, creating dir if needed.
func PlotELBO(train, test ELBOHistory, dir string) (string, error) {
	if len(train) == 0 && len(test) == 0 {
		return "", fmt.Errorf("plots: no ELBO values to plot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	c := NewCanvas("")
	c.Width, c.Height = 6*vg.Inch, 4*vg.Inch
	c.SetLabels("Epoch", "ELBO")
	c.Grid()
	c.IntegerYTicks()
	c.Plot().Legend.Top = true

	series := []struct {
		label string
		hist  ELBOHistory
	}{
		{"Train", train},
		{"Test", test},
	}
	for i, s := range series {
		if len(s.hist) == 0 {
			continue
		}
		xys := s.hist.points()
		col := Tab10[i]
		sc, err := c.Scatter(xys, col, vg.Points(3))
		if err != nil {
			return "", fmt.Errorf("%s ELBO: %w", s.label, err)
		}
		ln, err := c.Line(xys, col, true)
		if err != nil {
			return "", fmt.Errorf("%s ELBO: %w", s.label, err)
		}
		c.Legend(s.label, sc, ln)
	}

	path := filepath.Join(dir, ELBOFile)
	if err := c.Save(path); err != nil {
		return "", err
	}
	return path, nil
}
