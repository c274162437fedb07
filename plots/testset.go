package plots

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Encoder maps inputs to the location and scale of q(z|x).
type Encoder interface {
	Encode(x mat.Matrix) (loc, scale *mat.Dense, err error)
}

// ConditionalEncoder maps inputs and one-hot labels to q(z|x,y).
type ConditionalEncoder interface {
	EncodeZ(x, y mat.Matrix) (loc, scale *mat.Dense, err error)
}

// Dataset exposes aligned feature rows and one-hot label rows.
type Dataset interface {
	Features() *mat.Dense
	Labels() *mat.Dense
}

// EmbedTestSet encodes the whole dataset with a VAE encoder and renders the
// t-SNE of the latent locations under the name "VAE".
func EmbedTestSet(enc Encoder, ds Dataset, v *EmbeddingVisualizer) (*EmbeddingResult, error) {
	start := time.Now()
	loc, _, err := enc.Encode(ds.Features())
	if err != nil {
		return nil, fmt.Errorf("encode test set: %w", err)
	}
	return renderEncoded(v, loc, ds, "VAE", time.Since(start))
}

// EmbedTestSetSSVAE is EmbedTestSet for a semi-supervised VAE, whose latent
// encoder also sees the labels. An empty name defaults to "SS-VAE".
func EmbedTestSetSSVAE(name string, enc ConditionalEncoder, ds Dataset, v *EmbeddingVisualizer) (*EmbeddingResult, error) {
	if name == "" {
		name = "SS-VAE"
	}
	start := time.Now()
	loc, _, err := enc.EncodeZ(ds.Features(), ds.Labels())
	if err != nil {
		return nil, fmt.Errorf("encode test set: %w", err)
	}
	return renderEncoded(v, loc, ds, name, time.Since(start))
}

func renderEncoded(v *EmbeddingVisualizer, loc *mat.Dense, ds Dataset, name string, encodeTime time.Duration) (*EmbeddingResult, error) {
	res, err := v.Render(loc, ds.Labels(), name)
	if err != nil {
		return nil, err
	}
	res.Timings.Encode = encodeTime
	return res, nil
}
