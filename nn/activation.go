package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Activation applies a scalar function element-wise.
type Activation struct {
	name string
	fn   func(float64) float64
}

// The activations used by the encoder and decoder networks.
var (
	Softplus = Activation{"softplus", softplus}
	Sigmoid  = Activation{"sigmoid", sigmoid}
	Exp      = Activation{"exp", math.Exp}
)

func (a Activation) Forward(x mat.Matrix) (*mat.Dense, error) {
	if a.fn == nil {
		return nil, fmt.Errorf("nn: zero Activation")
	}
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return a.fn(v) }, x)
	return out, nil
}

func (a Activation) String() string { return a.name }

// softplus is log(1+e^v), computed without overflow for large v.
func softplus(v float64) float64 {
	if v > 20 {
		return v
	}
	return math.Log1p(math.Exp(v))
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}
