package nn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"vaeplot/tensor"
)

// Linear is a fully-connected layer, y = x·Wᵀ + b.
type Linear struct {
	Name string
	W    *mat.Dense // out × in
	B    []float64  // out
}

// NewLinear initialises an in→out layer with weights and biases drawn from
// U(-1/sqrt(in), 1/sqrt(in)).
func NewLinear(name string, in, out int, src rand.Source) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	u := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	w := make([]float64, out*in)
	for i := range w {
		w[i] = u.Rand()
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = u.Rand()
	}
	return &Linear{Name: name, W: mat.NewDense(out, in, w), B: b}
}

// LinearFromTensors builds a layer from a 2-D weight and 1-D bias tensor.
func LinearFromTensors(name string, w, b *tensor.Tensor) (*Linear, error) {
	wd, err := w.ToDense()
	if err != nil {
		return nil, fmt.Errorf("%s weight: %w", name, err)
	}
	out, _ := wd.Dims()
	if len(b.Data) != out {
		return nil, fmt.Errorf("%s: bias has %d values, want %d", name, len(b.Data), out)
	}
	return &Linear{Name: name, W: wd, B: append([]float64(nil), b.Data...)}, nil
}

// In returns the input width.
func (l *Linear) In() int {
	_, c := l.W.Dims()
	return c
}

// Out returns the output width.
func (l *Linear) Out() int {
	r, _ := l.W.Dims()
	return r
}

func (l *Linear) Forward(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if c != l.In() {
		return nil, fmt.Errorf("%s: input has %d columns, want %d", l.Name, c, l.In())
	}
	out := mat.NewDense(r, l.Out(), nil)
	out.Mul(x, l.W.T())
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j, b := range l.B {
			row[j] += b
		}
	}
	return out, nil
}

// Tensors returns copies of the weight and bias as tensors.
func (l *Linear) Tensors() (w, b *tensor.Tensor) {
	return tensor.FromDense(l.W), tensor.NewWithData(l.B)
}
