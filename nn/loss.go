package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// clampEps keeps Bernoulli probabilities away from 0 and 1 before taking logs.
const clampEps = 1e-7

// Softmax normalises every row of logits into a probability vector.
func Softmax(logits mat.Matrix) *mat.Dense {
	r, c := logits.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(logits)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		maxLogit := floats.Max(row)
		for j, v := range row {
			row[j] = math.Exp(v - maxLogit)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return out
}

// BinaryCrossEntropy returns the per-row summed Bernoulli negative
// log-likelihood of targets x under means probs.
func BinaryCrossEntropy(probs, x mat.Matrix) ([]float64, error) {
	pr, pc := probs.Dims()
	xr, xc := x.Dims()
	if pr != xr || pc != xc {
		return nil, fmt.Errorf("nn: probabilities %dx%d do not match targets %dx%d", pr, pc, xr, xc)
	}
	out := make([]float64, pr)
	for i := 0; i < pr; i++ {
		var sum float64
		for j := 0; j < pc; j++ {
			p := math.Min(math.Max(probs.At(i, j), clampEps), 1-clampEps)
			t := x.At(i, j)
			sum -= t*math.Log(p) + (1-t)*math.Log(1-p)
		}
		out[i] = sum
	}
	return out, nil
}

// GaussianKL returns per row KL(N(loc, scale²) || N(0, I)).
func GaussianKL(loc, scale mat.Matrix) []float64 {
	r, c := loc.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		var kl float64
		for j := 0; j < c; j++ {
			m, s := loc.At(i, j), scale.At(i, j)
			kl += 0.5 * (s*s + m*m - 1 - 2*math.Log(s))
		}
		out[i] = kl
	}
	return out
}
