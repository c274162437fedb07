// Package tsne implements exact t-distributed stochastic neighbor embedding
// on gonum matrices.
//
// The optimisation follows the usual schedule: Gaussian input affinities
// calibrated per point to a target perplexity, Student-t output affinities,
// gradient descent with early exaggeration, momentum and per-parameter gains.
// Every source of randomness is seeded from Config.Seed, so two calls with the
// same input and configuration return identical coordinates.
package tsne

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrTooFewPoints is returned when fewer than two points are embedded.
var ErrTooFewPoints = errors.New("tsne: need at least 2 points")

const (
	machineEps      = 1e-12
	perplexityTol   = 1e-5
	perplexitySteps = 100
	initialStd      = 1e-4
	minGain         = 0.01
)

// Init selects how the output coordinates are initialised.
type Init int

const (
	// InitPCA projects the input onto its leading principal components.
	InitPCA Init = iota
	// InitRandom draws coordinates from a seeded N(0, 1e-4²).
	InitRandom
)

// ParseInit maps "pca" and "random" to an Init.
func ParseInit(s string) (Init, error) {
	switch s {
	case "pca", "":
		return InitPCA, nil
	case "random":
		return InitRandom, nil
	}
	return 0, fmt.Errorf("tsne: unknown init %q", s)
}

// Config controls an embedding run.
type Config struct {
	Components        int
	Perplexity        float64
	EarlyExaggeration float64
	ExaggerationIters int
	// LearningRate <= 0 selects max(N/EarlyExaggeration/4, 50).
	LearningRate float64
	Iterations   int
	MinGradNorm  float64
	Init         Init
	Seed         int64

	// Progress, if set, is called every 50 iterations with the current
	// KL divergence.
	Progress func(iter int, kl float64)
}

// DefaultConfig returns the standard 2-D configuration with seed 0.
func DefaultConfig() Config {
	return Config{
		Components:        2,
		Perplexity:        30,
		EarlyExaggeration: 12,
		ExaggerationIters: 250,
		Iterations:        1000,
		MinGradNorm:       1e-7,
		Init:              InitPCA,
	}
}

// Result holds an embedding and optimisation diagnostics.
type Result struct {
	Embedding *mat.Dense
	// KL is the final Kullback-Leibler divergence between P and Q.
	KL         float64
	Iterations int
	// Perplexity is the value actually used after clamping to the batch size.
	Perplexity float64
}

// Embed reduces the rows of x to cfg.Components dimensions. A batch of two
// points is returned at its initial layout, scaled like every other
// initialisation.
func Embed(x mat.Matrix, cfg Config) (*Result, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if cfg.Components <= 0 {
		cfg.Components = 2
	}
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("tsne: iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.Perplexity <= 0 {
		return nil, fmt.Errorf("tsne: perplexity must be positive, got %g", cfg.Perplexity)
	}
	if cfg.EarlyExaggeration <= 0 {
		cfg.EarlyExaggeration = 1
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if v := x.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("tsne: non-finite value at (%d, %d)", i, j)
			}
		}
	}

	perp := effectivePerplexity(cfg.Perplexity, n)
	p := jointProbabilities(squaredDistances(x), n, perp)

	y, err := initialise(x, cfg)
	if err != nil {
		return nil, err
	}

	// Two points form a single pair, so P and Q coincide for every layout
	// and KL is 0. Optimising would only amplify the exaggeration phase.
	if n == 2 {
		return &Result{
			Embedding:  mat.NewDense(n, cfg.Components, y),
			Perplexity: perp,
		}, nil
	}

	lr := cfg.LearningRate
	if lr <= 0 {
		lr = math.Max(float64(n)/cfg.EarlyExaggeration/4, 50)
	}

	o := newOptimizer(p, y, n, cfg.Components)
	iters := 0
	for it := 0; it < cfg.Iterations; it++ {
		exag, momentum := 1.0, 0.8
		if it < cfg.ExaggerationIters {
			exag, momentum = cfg.EarlyExaggeration, 0.5
		}
		gradNorm := o.step(exag, momentum, lr)
		iters = it + 1
		if cfg.Progress != nil && iters%50 == 0 {
			cfg.Progress(iters, o.kl())
		}
		if gradNorm < cfg.MinGradNorm {
			break
		}
	}

	return &Result{
		Embedding:  mat.NewDense(n, cfg.Components, o.y),
		KL:         o.kl(),
		Iterations: iters,
		Perplexity: perp,
	}, nil
}

// effectivePerplexity keeps the perplexity reachable for small batches:
// a point has only n-1 neighbours.
func effectivePerplexity(perp float64, n int) float64 {
	limit := float64(n-1) / 3
	if perp > limit {
		perp = limit
	}
	return math.Max(perp, 1)
}

func squaredDistances(x mat.Matrix) []float64 {
	n, _ := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, x)
	}
	dist := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dd := floats.Distance(rows[i], rows[j], 2)
			dist[i*n+j] = dd * dd
			dist[j*n+i] = dd * dd
		}
	}
	return dist
}

// jointProbabilities returns the symmetrised joint distribution P.
func jointProbabilities(dist []float64, n int, perp float64) []float64 {
	cond := conditionalProbabilities(dist, n, perp)
	p := make([]float64, n*n)
	norm := 2 * float64(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			p[i*n+j] = math.Max((cond[i*n+j]+cond[j*n+i])/norm, machineEps)
		}
	}
	return p
}

// conditionalProbabilities calibrates a Gaussian per row so that the
// perplexity of p(j|i) matches perp, by bisection on the precision.
func conditionalProbabilities(dist []float64, n int, perp float64) []float64 {
	cond := make([]float64, n*n)
	logU := math.Log(perp)
	for i := 0; i < n; i++ {
		row := dist[i*n : (i+1)*n]
		out := cond[i*n : (i+1)*n]

		// Shift by the nearest neighbour distance so exp never underflows
		// for every neighbour at once; entropy is invariant to the shift.
		minD := math.Inf(1)
		for j, v := range row {
			if j != i && v < minD {
				minD = v
			}
		}

		beta, betaMin, betaMax := 1.0, math.Inf(-1), math.Inf(1)
		for step := 0; step < perplexitySteps; step++ {
			sumP, sumDP := 0.0, 0.0
			for j, v := range row {
				if j == i {
					out[j] = 0
					continue
				}
				pj := math.Exp(-(v - minD) * beta)
				out[j] = pj
				sumP += pj
				sumDP += (v - minD) * pj
			}
			if sumP == 0 {
				sumP = machineEps
			}
			h := math.Log(sumP) + beta*sumDP/sumP
			floats.Scale(1/sumP, out)

			diff := h - logU
			if math.Abs(diff) <= perplexityTol {
				break
			}
			if diff > 0 {
				betaMin = beta
				if math.IsInf(betaMax, 1) {
					beta *= 2
				} else {
					beta = (beta + betaMax) / 2
				}
			} else {
				betaMax = beta
				if math.IsInf(betaMin, -1) {
					beta /= 2
				} else {
					beta = (beta + betaMin) / 2
				}
			}
		}
	}
	return cond
}

func initialise(x mat.Matrix, cfg Config) ([]float64, error) {
	n, _ := x.Dims()
	k := cfg.Components
	if cfg.Init == InitPCA {
		if y, ok := pcaInit(x, k); ok {
			return y, nil
		}
	} else if cfg.Init != InitRandom {
		return nil, fmt.Errorf("tsne: unknown init %d", cfg.Init)
	}
	norm := distuv.Normal{Mu: 0, Sigma: initialStd, Src: rand.NewSource(uint64(cfg.Seed))}
	y := make([]float64, n*k)
	for i := range y {
		y[i] = norm.Rand()
	}
	return y, nil
}

// pcaInit projects x onto its first k principal axes and scales the result
// so the first coordinate has standard deviation 1e-4. It reports false when
// the projection is degenerate.
func pcaInit(x mat.Matrix, k int) ([]float64, bool) {
	n, d := x.Dims()
	if n < 2 || d < k {
		return nil, false
	}
	var pc stat.PC
	if !pc.PrincipalComponents(x, nil) {
		return nil, false
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if _, c := vecs.Dims(); c < k {
		return nil, false
	}

	centered := mat.DenseCopyOf(x)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, centered)
		mean := stat.Mean(col, nil)
		for i := range col {
			col[i] -= mean
		}
		centered.SetCol(j, col)
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, k))

	first := mat.Col(nil, 0, &proj)
	std := stat.PopStdDev(first, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, false
	}
	proj.Scale(initialStd/std, &proj)
	return append([]float64(nil), proj.RawMatrix().Data...), true
}
