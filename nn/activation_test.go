package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestActivations(t *testing.T) {
	x := mat.NewDense(1, 4, []float64{-2, 0, 1, 50})
	cases := []struct {
		act  Activation
		name string
		want []float64
	}{
		{Softplus, "softplus", []float64{math.Log1p(math.Exp(-2)), math.Ln2, math.Log1p(math.E), 50}},
		{Sigmoid, "sigmoid", []float64{1 / (1 + math.Exp(2)), 0.5, 1 / (1 + math.Exp(-1)), 1}},
		{Exp, "exp", []float64{math.Exp(-2), 1, math.E, math.Exp(50)}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.name, tc.act.String())
		out, err := tc.act.Forward(x)
		require.NoError(t, err)
		for j, w := range tc.want {
			assert.InDelta(t, w, out.At(0, j), 1e-9*math.Max(1, math.Abs(w)), "%s(%v)", tc.name, x.At(0, j))
		}
	}
}

func TestZeroActivation(t *testing.T) {
	_, err := (Activation{}).Forward(mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}

func TestSoftmaxRows(t *testing.T) {
	p := Softmax(mat.NewDense(2, 3, []float64{1, 2, 3, 1000, 1000, 1000}))
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1, mat.Sum(p.RowView(i)), 1e-12, "row %d", i)
	}
	assert.Greater(t, p.At(0, 2), p.At(0, 1))
	assert.InDelta(t, 1.0/3, p.At(1, 0), 1e-12)
}

func TestBinaryCrossEntropy(t *testing.T) {
	probs := mat.NewDense(1, 2, []float64{0.5, 1})
	x := mat.NewDense(1, 2, []float64{1, 1})
	got, err := BinaryCrossEntropy(probs, x)
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, got[0], 1e-6)

	_, err = BinaryCrossEntropy(probs, mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestGaussianKL(t *testing.T) {
	kl := GaussianKL(mat.NewDense(1, 2, []float64{0, 1}), mat.NewDense(1, 2, []float64{1, 1}))
	assert.InDelta(t, 0.5, kl[0], 1e-12)
}
