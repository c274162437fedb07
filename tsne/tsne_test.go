package tsne

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// twoClusters returns 2*per points of dimension d drawn around the origin
// and around (10, ..., 10), with their group ids.
func twoClusters(per, d int, seed uint64) (*mat.Dense, []int) {
	noise := distuv.Normal{Mu: 0, Sigma: 0.5, Src: rand.NewSource(seed)}
	x := mat.NewDense(2*per, d, nil)
	groups := make([]int, 2*per)
	for i := 0; i < 2*per; i++ {
		center := 0.0
		if i >= per {
			center = 10
			groups[i] = 1
		}
		for j := 0; j < d; j++ {
			x.Set(i, j, center+noise.Rand())
		}
	}
	return x, groups
}

func TestEmbedShape(t *testing.T) {
	x, _ := twoClusters(10, 10, 1)
	res, err := Embed(x, DefaultConfig())
	require.NoError(t, err)
	r, c := res.Embedding.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 2, c)
	assert.InDelta(t, 19.0/3, res.Perplexity, 1e-12)
	assert.Greater(t, res.Iterations, 0)
	assert.False(t, math.IsNaN(res.KL))
	for _, v := range res.Embedding.RawMatrix().Data {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestEmbedDeterministic(t *testing.T) {
	x, _ := twoClusters(10, 10, 2)
	for _, mode := range []Init{InitPCA, InitRandom} {
		cfg := DefaultConfig()
		cfg.Init = mode
		cfg.Seed = 42
		a, err := Embed(x, cfg)
		require.NoError(t, err)
		b, err := Embed(x, cfg)
		require.NoError(t, err)
		assert.True(t, mat.Equal(a.Embedding, b.Embedding), "init %d not reproducible", mode)
	}
}

func TestEmbedSeparatesClusters(t *testing.T) {
	x, groups := twoClusters(10, 10, 3)
	res, err := Embed(x, DefaultConfig())
	require.NoError(t, err)
	within, between, err := Separation(res.Embedding, groups)
	require.NoError(t, err)
	assert.Less(t, within, between)
}

func TestEmbedErrors(t *testing.T) {
	_, err := Embed(mat.NewDense(1, 3, []float64{1, 2, 3}), DefaultConfig())
	assert.ErrorIs(t, err, ErrTooFewPoints)

	x, _ := twoClusters(3, 4, 4)
	x.Set(0, 0, math.NaN())
	_, err = Embed(x, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Iterations = 0
	_, err = Embed(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Init = Init(7)
	_, err = Embed(mat.NewDense(2, 2, []float64{0, 0, 1, 1}), cfg)
	assert.Error(t, err)
}

func TestEmbedProgress(t *testing.T) {
	x, _ := twoClusters(5, 3, 5)
	cfg := DefaultConfig()
	cfg.Iterations = 120
	cfg.MinGradNorm = 0
	var iters []int
	cfg.Progress = func(iter int, kl float64) {
		iters = append(iters, iter)
		assert.GreaterOrEqual(t, kl, -1e-9)
	}
	res, err := Embed(x, cfg)
	require.NoError(t, err)
	assert.Equal(t, 120, res.Iterations)
	assert.Equal(t, []int{50, 100}, iters)
}

func TestConditionalProbabilitiesMatchPerplexity(t *testing.T) {
	x, _ := twoClusters(15, 4, 6)
	n, _ := x.Dims()
	const perp = 5.0
	cond := conditionalProbabilities(squaredDistances(x), n, perp)
	for i := 0; i < n; i++ {
		row := cond[i*n : (i+1)*n]
		assert.InDelta(t, 1, floats.Sum(row), 1e-9)
		assert.Zero(t, row[i])
		h := 0.0
		for _, p := range row {
			if p > 0 {
				h -= p * math.Log(p)
			}
		}
		assert.InDelta(t, perp, math.Exp(h), 1e-3, "row %d", i)
	}
}

func TestJointProbabilitiesSymmetric(t *testing.T) {
	x, _ := twoClusters(6, 3, 7)
	n, _ := x.Dims()
	p := jointProbabilities(squaredDistances(x), n, 3)
	assert.InDelta(t, 1, floats.Sum(p), 1e-9)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, p[i*n+j], p[j*n+i])
		}
	}
}

func TestEffectivePerplexity(t *testing.T) {
	assert.Equal(t, 30.0, effectivePerplexity(30, 1000))
	assert.InDelta(t, 3, effectivePerplexity(30, 10), 1e-12)
	assert.Equal(t, 1.0, effectivePerplexity(30, 2))
}

func TestPCAInitScale(t *testing.T) {
	x, _ := twoClusters(10, 5, 8)
	y, ok := pcaInit(x, 2)
	require.True(t, ok)
	first := make([]float64, 20)
	for i := range first {
		first[i] = y[i*2]
	}
	mean := floats.Sum(first) / 20
	ss := 0.0
	for _, v := range first {
		ss += (v - mean) * (v - mean)
	}
	assert.InDelta(t, 1e-4, math.Sqrt(ss/20), 1e-10)

	// a single-column input cannot seed two components
	_, ok = pcaInit(mat.NewDense(3, 1, []float64{1, 2, 3}), 2)
	assert.False(t, ok)
}

func TestParseInit(t *testing.T) {
	mode, err := ParseInit("random")
	require.NoError(t, err)
	assert.Equal(t, InitRandom, mode)
	mode, err = ParseInit("")
	require.NoError(t, err)
	assert.Equal(t, InitPCA, mode)
	_, err = ParseInit("umap")
	assert.Error(t, err)
}

func TestSeparation(t *testing.T) {
	y := mat.NewDense(4, 2, []float64{0, 0, 0, 1, 10, 0, 10, 1})
	within, between, err := Separation(y, []int{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, within, 1e-12)
	assert.Greater(t, between, 10.0)

	_, _, err = Separation(y, []int{0, 1})
	assert.Error(t, err)
	_, _, err = Separation(y, []int{0, 1, 2, 3})
	assert.Error(t, err)
}

func TestEmbedTwoPointsKeepsInitialScale(t *testing.T) {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(5)}
	x := mat.NewDense(2, 10, nil)
	for i := 0; i < 2; i++ {
		for j := 0; j < 10; j++ {
			x.Set(i, j, norm.Rand())
		}
	}
	for _, mode := range []Init{InitPCA, InitRandom} {
		cfg := DefaultConfig()
		cfg.Init = mode
		res, err := Embed(x, cfg)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Iterations)
		assert.Equal(t, 0.0, res.KL)
		for _, v := range res.Embedding.RawMatrix().Data {
			assert.Less(t, math.Abs(v), 1e-2, "init %d", mode)
		}
	}

	same := mat.NewDense(2, 3, []float64{1, 1, 1, 1, 1, 1})
	res, err := Embed(same, DefaultConfig())
	require.NoError(t, err)
	for _, v := range res.Embedding.RawMatrix().Data {
		assert.False(t, math.IsNaN(v))
	}
}
