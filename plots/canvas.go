// Package plots renders VAE diagnostics: per-class t-SNE scatter plots of
// latent codes, ELBO training curves and grids of decoded samples.
//
// Figures are explicit Canvas values; nothing in this package keeps a
// current-figure context between calls.
package plots

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default figure size, in line with a 6.4x4.8 inch matplotlib figure.
const (
	DefaultWidth  = 6.4 * vg.Inch
	DefaultHeight = 4.8 * vg.Inch
)

// Canvas is a mutable figure. Layers accumulate until the canvas is
// discarded; Save may be called any number of times to persist the
// figure drawn so far.
type Canvas struct {
	plot   *plot.Plot
	Width  vg.Length
	Height vg.Length
}

// NewCanvas returns an empty titled canvas of the default size.
func NewCanvas(title string) *Canvas {
	p := plot.New()
	p.Title.Text = title
	return &Canvas{plot: p, Width: DefaultWidth, Height: DefaultHeight}
}

// Plot exposes the underlying gonum plot for styling.
func (c *Canvas) Plot() *plot.Plot { return c.plot }

// SetLabels sets the axis labels.
func (c *Canvas) SetLabels(x, y string) {
	c.plot.X.Label.Text = x
	c.plot.Y.Label.Text = y
}

// SetRange fixes the data range of both axes. Layers added later can only
// widen it.
func (c *Canvas) SetRange(xmin, xmax, ymin, ymax float64) {
	c.plot.X.Min, c.plot.X.Max = xmin, xmax
	c.plot.Y.Min, c.plot.Y.Max = ymin, ymax
}

// Scatter adds filled circle markers. Empty point sets add nothing and
// return a nil scatter.
func (c *Canvas) Scatter(xys plotter.XYs, col color.Color, radius vg.Length) (*plotter.Scatter, error) {
	if len(xys) == 0 {
		return nil, nil
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Color = col
	s.GlyphStyle.Radius = radius
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	c.plot.Add(s)
	return s, nil
}

// Line adds a polyline through xys, dashed when dashed is set.
func (c *Canvas) Line(xys plotter.XYs, col color.Color, dashed bool) (*plotter.Line, error) {
	if len(xys) == 0 {
		return nil, nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("line: %w", err)
	}
	l.LineStyle.Color = col
	l.LineStyle.Width = vg.Points(1.5)
	if dashed {
		l.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
	}
	c.plot.Add(l)
	return l, nil
}

// Legend adds a legend entry drawn with the given thumbnails.
func (c *Canvas) Legend(label string, thumbs ...plot.Thumbnailer) {
	c.plot.Legend.Add(label, thumbs...)
}

// Grid draws light grey major grid lines behind the data.
func (c *Canvas) Grid() {
	g := plotter.NewGrid()
	g.Vertical.Color = color.Gray{Y: 0xdd}
	g.Horizontal.Color = color.Gray{Y: 0xdd}
	c.plot.Add(g)
}

// IntegerYTicks restricts the y axis to integer tick marks.
func (c *Canvas) IntegerYTicks() {
	c.plot.Y.Tick.Marker = integerTicks{}
}

// Save renders the canvas to path; the format follows the file extension.
// The parent directory must exist.
func (c *Canvas) Save(path string) error {
	if err := c.plot.Save(c.Width, c.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

type integerTicks struct{}

// Ticks keeps the integer-valued default ticks, falling back to evenly
// spaced integers when fewer than two labelled ticks survive.
func (integerTicks) Ticks(min, max float64) []plot.Tick {
	var out []plot.Tick
	labelled := 0
	for _, t := range (plot.DefaultTicks{}).Ticks(min, max) {
		if t.Value != math.Trunc(t.Value) {
			continue
		}
		if t.Label != "" {
			labelled++
		}
		out = append(out, t)
	}
	if labelled >= 2 {
		return out
	}

	lo, hi := math.Ceil(min), math.Floor(max)
	if lo > hi {
		lo, hi = math.Floor(min), math.Ceil(max)
	}
	step := math.Max(1, math.Ceil((hi-lo)/5))
	out = out[:0]
	for v := lo; v <= hi; v += step {
		out = append(out, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}
	return out
}
