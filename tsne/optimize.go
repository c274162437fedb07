package tsne

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// optimizer holds the gradient descent state. All buffers are flat
// row-major slices of the output coordinates (n×k) or pair terms (n×n).
type optimizer struct {
	n, k   int
	p      []float64
	y      []float64
	update []float64
	gains  []float64
	grad   []float64
	num    []float64
	sumQ   float64
}

func newOptimizer(p, y []float64, n, k int) *optimizer {
	gains := make([]float64, n*k)
	for i := range gains {
		gains[i] = 1
	}
	return &optimizer{
		n:      n,
		k:      k,
		p:      p,
		y:      y,
		update: make([]float64, n*k),
		gains:  gains,
		grad:   make([]float64, n*k),
		num:    make([]float64, n*n),
	}
}

// affinities fills num with the Student-t kernel 1/(1+|yi-yj|²) and its sum.
func (o *optimizer) affinities() {
	n, k := o.n, o.k
	o.sumQ = 0
	for i := 0; i < n; i++ {
		o.num[i*n+i] = 0
		yi := o.y[i*k : (i+1)*k]
		for j := i + 1; j < n; j++ {
			yj := o.y[j*k : (j+1)*k]
			d := 0.0
			for c := range yi {
				diff := yi[c] - yj[c]
				d += diff * diff
			}
			q := 1 / (1 + d)
			o.num[i*n+j] = q
			o.num[j*n+i] = q
			o.sumQ += 2 * q
		}
	}
}

// step performs one gradient update and returns the gradient norm.
func (o *optimizer) step(exaggeration, momentum, lr float64) float64 {
	n, k := o.n, o.k
	o.affinities()

	for i := range o.grad {
		o.grad[i] = 0
	}
	for i := 0; i < n; i++ {
		gi := o.grad[i*k : (i+1)*k]
		yi := o.y[i*k : (i+1)*k]
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			q := o.num[i*n+j]
			mult := (exaggeration*o.p[i*n+j] - q/o.sumQ) * q
			yj := o.y[j*k : (j+1)*k]
			for c := range gi {
				gi[c] += 4 * mult * (yi[c] - yj[c])
			}
		}
	}

	for i, g := range o.grad {
		if o.update[i]*g < 0 {
			o.gains[i] += 0.2
		} else {
			o.gains[i] *= 0.8
		}
		if o.gains[i] < minGain {
			o.gains[i] = minGain
		}
		o.update[i] = momentum*o.update[i] - lr*o.gains[i]*g
		o.y[i] += o.update[i]
	}
	o.recenter()

	return floats.Norm(o.grad, 2)
}

func (o *optimizer) recenter() {
	n, k := o.n, o.k
	for c := 0; c < k; c++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += o.y[i*k+c]
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			o.y[i*k+c] -= mean
		}
	}
}

// kl returns KL(P||Q) for the current coordinates.
func (o *optimizer) kl() float64 {
	o.affinities()
	n := o.n
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			p := o.p[i*n+j]
			q := math.Max(o.num[i*n+j]/o.sumQ, machineEps)
			total += p * math.Log(p/q)
		}
	}
	return total
}
