// Package nn holds the plaintext inference networks that produce latent
// codes and decoded samples: a VAE and a semi-supervised VAE built from
// fully-connected layers on gonum matrices.
package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Module defines a single layer/unit in the network. Inputs are batches
// with one example per row.
type Module interface {
	Forward(x mat.Matrix) (*mat.Dense, error)
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// NewSequential returns the chain of the given layers.
func NewSequential(layers ...Module) *Sequential {
	return &Sequential{Layers: layers}
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x mat.Matrix) (*mat.Dense, error) {
	if len(s.Layers) == 0 {
		return nil, fmt.Errorf("nn: empty Sequential")
	}
	var out *mat.Dense
	in := x
	for i, layer := range s.Layers {
		var err error
		out, err = layer.Forward(in)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		in = out
	}
	return out, nil
}

// concat joins a and b column-wise; both must have the same number of rows.
func concat(a, b mat.Matrix) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br {
		return nil, fmt.Errorf("nn: cannot join %d rows with %d rows", ar, br)
	}
	out := mat.NewDense(ar, ac+bc, nil)
	out.Slice(0, ar, 0, ac).(*mat.Dense).Copy(a)
	out.Slice(0, ar, ac, ac+bc).(*mat.Dense).Copy(b)
	return out, nil
}
