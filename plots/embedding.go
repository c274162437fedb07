package plots

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"vaeplot/tsne"
	"vaeplot/utils"
)

// DefaultOutputDir is where figures are written unless configured otherwise.
const DefaultOutputDir = "vae_results"

// EmbeddingTitle is the title of every latent embedding figure.
const EmbeddingTitle = "Latent Variable T-SNE per Class"

var (
	// ErrEmptyBatch is returned when there are no latent vectors to embed.
	ErrEmptyBatch = errors.New("plots: empty latent batch")
	// ErrShape is returned when latents and labels do not line up.
	ErrShape = errors.New("plots: shape mismatch")
	// ErrPalette is returned when the palette has fewer colors than classes.
	ErrPalette = errors.New("plots: palette too small")
)

// EmbeddingVisualizer projects latent vectors to 2-D with t-SNE and draws
// one scatter layer per class.
type EmbeddingVisualizer struct {
	OutputDir string
	Classes   int
	Palette   Palette
	TSNE      tsne.Config
	// PointRadius matches a matplotlib marker size of 10 by default.
	PointRadius vg.Length
	Width       vg.Length
	Height      vg.Length
	// Snapshots writes <name>_embedding_<class>.png after each class layer
	// is added, in addition to the final figure.
	Snapshots bool
	Logger    *slog.Logger
}

// NewEmbeddingVisualizer returns a visualizer for 10 classes with the Tab10
// palette, seed 0 and per-class snapshots enabled.
func NewEmbeddingVisualizer() *EmbeddingVisualizer {
	return &EmbeddingVisualizer{
		OutputDir:   DefaultOutputDir,
		Classes:     10,
		Palette:     Tab10,
		TSNE:        tsne.DefaultConfig(),
		PointRadius: vg.Points(math.Sqrt(10 / math.Pi)),
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		Snapshots:   true,
		Logger:      utils.Logger(),
	}
}

// EmbeddingResult describes a rendered embedding.
type EmbeddingResult struct {
	Embedding *mat.Dense
	// Files lists the written images in write order; the last one is the
	// combined figure.
	Files []string
	// ClassCounts holds the number of points drawn in each class layer.
	ClassCounts []int
	KL          float64
	Timings     StageTimings
}

// StageTimings records how long each stage of producing an embedding took.
type StageTimings struct {
	Encode time.Duration
	Embed  time.Duration
	Render time.Duration
}

// Render embeds latents (N×D) and plots them colored by the one-hot labels
// (N×Classes). Rows of labels with no set bit are not drawn; rows with
// several set bits are drawn once per matching class.
func (v *EmbeddingVisualizer) Render(latents, labels mat.Matrix, name string) (*EmbeddingResult, error) {
	if err := v.validate(latents, labels); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := tsne.Embed(latents, v.TSNE)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", name, err)
	}
	embedTime := time.Since(start)
	v.logger().Info("t-SNE finished", "name", name, "iterations", res.Iterations, "kl", res.KL, "perplexity", res.Perplexity)

	start = time.Now()
	out, err := v.Draw(res.Embedding, labels, name)
	if err != nil {
		return nil, err
	}
	out.KL = res.KL
	out.Timings.Embed = embedTime
	out.Timings.Render = time.Since(start)
	return out, nil
}

// Draw plots an existing 2-D embedding. It performs the drawing half of
// Render and may be used to re-plot a cached embedding.
func (v *EmbeddingVisualizer) Draw(embedding, labels mat.Matrix, name string) (*EmbeddingResult, error) {
	n, k := embedding.Dims()
	if n == 0 {
		return nil, ErrEmptyBatch
	}
	if k != 2 {
		return nil, fmt.Errorf("%w: embedding has %d columns, want 2", ErrShape, k)
	}
	if err := v.checkLabels(n, labels); err != nil {
		return nil, err
	}

	c := NewCanvas(EmbeddingTitle)
	c.Width, c.Height = v.Width, v.Height
	c.SetRange(paddedRange(embedding))

	out := &EmbeddingResult{
		Embedding:   mat.DenseCopyOf(embedding),
		ClassCounts: make([]int, v.Classes),
	}
	for class := 0; class < v.Classes; class++ {
		var xys plotter.XYs
		for i := 0; i < n; i++ {
			if labels.At(i, class) == 1 {
				xys = append(xys, plotter.XY{X: embedding.At(i, 0), Y: embedding.At(i, 1)})
			}
		}
		out.ClassCounts[class] = len(xys)
		if _, err := c.Scatter(xys, v.Palette[class], v.PointRadius); err != nil {
			return nil, fmt.Errorf("class %d: %w", class, err)
		}
		if !v.Snapshots {
			continue
		}
		path := filepath.Join(v.OutputDir, fmt.Sprintf("%s_embedding_%d.png", name, class))
		if err := c.Save(path); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, path)
	}

	path := filepath.Join(v.OutputDir, name+"_embedding.png")
	if err := c.Save(path); err != nil {
		return nil, err
	}
	out.Files = append(out.Files, path)
	v.logger().Info("embedding plotted", "name", name, "points", n, "files", len(out.Files))
	return out, nil
}

func (v *EmbeddingVisualizer) validate(latents, labels mat.Matrix) error {
	if latents == nil {
		return ErrEmptyBatch
	}
	n, d := latents.Dims()
	if n == 0 || d == 0 {
		return ErrEmptyBatch
	}
	if d < 2 {
		return fmt.Errorf("%w: latent dimensionality %d, need at least 2", ErrShape, d)
	}
	return v.checkLabels(n, labels)
}

func (v *EmbeddingVisualizer) checkLabels(n int, labels mat.Matrix) error {
	if v.Classes <= 0 {
		return fmt.Errorf("plots: class count must be positive, got %d", v.Classes)
	}
	if err := v.Palette.Validate(v.Classes); err != nil {
		return err
	}
	if labels == nil {
		return fmt.Errorf("%w: no labels", ErrShape)
	}
	ln, lc := labels.Dims()
	if ln != n {
		return fmt.Errorf("%w: %d latent rows, %d label rows", ErrShape, n, ln)
	}
	if lc != v.Classes {
		return fmt.Errorf("%w: labels have %d columns, want %d classes", ErrShape, lc, v.Classes)
	}
	return nil
}

func (v *EmbeddingVisualizer) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}

// paddedRange returns the bounds of the two embedding columns widened by 5%.
func paddedRange(y mat.Matrix) (xmin, xmax, ymin, ymax float64) {
	n, _ := y.Dims()
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for i := 0; i < n; i++ {
		x, yy := y.At(i, 0), y.At(i, 1)
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, yy), math.Max(ymax, yy)
	}
	pad := func(lo, hi float64) (float64, float64) {
		if hi == lo {
			return lo - 1, hi + 1
		}
		m := (hi - lo) * 0.05
		return lo - m, hi + m
	}
	xmin, xmax = pad(xmin, xmax)
	ymin, ymax = pad(ymin, ymax)
	return xmin, xmax, ymin, ymax
}
