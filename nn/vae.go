package nn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"vaeplot/utils"
)

// Arch describes the layer widths of a VAE. Classes is only used by the
// semi-supervised model.
type Arch struct {
	Input   int
	Hidden  int
	Latent  int
	Classes int
}

// ArchFromSizes reads "input hidden latent" as parsed by
// utils.ParseArchitecture.
func ArchFromSizes(sizes []int, classes int) (Arch, error) {
	if len(sizes) != 3 {
		return Arch{}, fmt.Errorf("nn: architecture needs 3 sizes, got %v", sizes)
	}
	for _, s := range sizes {
		if s <= 0 {
			return Arch{}, fmt.Errorf("nn: layer sizes must be positive, got %v", sizes)
		}
	}
	return Arch{Input: sizes[0], Hidden: sizes[1], Latent: sizes[2], Classes: classes}, nil
}

// Encoder parameterises the diagonal Gaussian q(z|x).
type Encoder struct {
	FC1, FC21, FC22 *Linear
}

// Forward returns the location and (positive) scale of q(z|x).
func (e *Encoder) Forward(x mat.Matrix) (loc, scale *mat.Dense, err error) {
	hidden, err := NewSequential(e.FC1, Softplus).Forward(x)
	if err != nil {
		return nil, nil, err
	}
	if loc, err = e.FC21.Forward(hidden); err != nil {
		return nil, nil, err
	}
	if scale, err = NewSequential(e.FC22, Exp).Forward(hidden); err != nil {
		return nil, nil, err
	}
	return loc, scale, nil
}

// Decoder maps latent codes to Bernoulli pixel means.
type Decoder struct {
	FC1, FC21 *Linear
}

func (d *Decoder) Forward(z mat.Matrix) (*mat.Dense, error) {
	return NewSequential(d.FC1, Softplus, d.FC21, Sigmoid).Forward(z)
}

// VAE is an unconditional variational autoencoder.
type VAE struct {
	Arch    Arch
	Encoder *Encoder
	Decoder *Decoder

	prior distuv.Normal
}

// NewVAE returns a randomly initialised VAE. The same seed gives the same
// weights and the same sequence of prior samples.
func NewVAE(arch Arch, seed uint64) *VAE {
	src := rand.NewSource(seed)
	return &VAE{
		Arch: arch,
		Encoder: &Encoder{
			FC1:  NewLinear("encoder.fc1", arch.Input, arch.Hidden, src),
			FC21: NewLinear("encoder.fc21", arch.Hidden, arch.Latent, src),
			FC22: NewLinear("encoder.fc22", arch.Hidden, arch.Latent, src),
		},
		Decoder: &Decoder{
			FC1:  NewLinear("decoder.fc1", arch.Latent, arch.Hidden, src),
			FC21: NewLinear("decoder.fc21", arch.Hidden, arch.Input, src),
		},
		prior: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// LoadVAE builds a VAE from saved weights; widths come from the weight
// shapes. seed drives prior sampling.
func LoadVAE(w *utils.ModelWeights, seed uint64) (*VAE, error) {
	layers, err := loadLinears(w, "encoder.fc1", "encoder.fc21", "encoder.fc22", "decoder.fc1", "decoder.fc21")
	if err != nil {
		return nil, err
	}
	v := &VAE{
		Encoder: &Encoder{FC1: layers[0], FC21: layers[1], FC22: layers[2]},
		Decoder: &Decoder{FC1: layers[3], FC21: layers[4]},
		prior:   distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}
	v.Arch = Arch{Input: layers[0].In(), Hidden: layers[0].Out(), Latent: layers[1].Out()}
	if err := checkChain(layers); err != nil {
		return nil, err
	}
	return v, nil
}

// Encode returns the parameters of q(z|x) for every row of x.
func (v *VAE) Encode(x mat.Matrix) (loc, scale *mat.Dense, err error) {
	return v.Encoder.Forward(x)
}

// Model draws one z ~ N(0, I) per row of x and returns the decoded pixel
// means. Only the batch size of x is used.
func (v *VAE) Model(x mat.Matrix) (*mat.Dense, error) {
	r, _ := x.Dims()
	return v.Decoder.Forward(samplePrior(v.prior, r, v.Arch.Latent))
}

// Loss returns the mean negative ELBO of x, using the posterior mean as the
// single latent sample.
func (v *VAE) Loss(x mat.Matrix) (float64, error) {
	loc, scale, err := v.Encode(x)
	if err != nil {
		return 0, err
	}
	probs, err := v.Decoder.Forward(loc)
	if err != nil {
		return 0, err
	}
	return negativeELBO(probs, x, loc, scale)
}

// Weights exports the parameters in the JSON weights format.
func (v *VAE) Weights() *utils.ModelWeights {
	return exportLinears("vae", v.Encoder.FC1, v.Encoder.FC21, v.Encoder.FC22, v.Decoder.FC1, v.Decoder.FC21)
}

func samplePrior(prior distuv.Normal, rows, cols int) *mat.Dense {
	z := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] = prior.Rand()
		}
	}
	return z
}

func negativeELBO(probs, x, loc, scale mat.Matrix) (float64, error) {
	rec, err := BinaryCrossEntropy(probs, x)
	if err != nil {
		return 0, err
	}
	kl := GaussianKL(loc, scale)
	var total float64
	for i := range rec {
		total += rec[i] + kl[i]
	}
	return total / float64(len(rec)), nil
}

func loadLinears(w *utils.ModelWeights, names ...string) ([]*Linear, error) {
	out := make([]*Linear, len(names))
	for i, name := range names {
		wt, b, err := w.Layer(name)
		if err != nil {
			return nil, err
		}
		if out[i], err = LinearFromTensors(name, wt, b); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkChain verifies the widths of the five VAE layers line up.
func checkChain(l []*Linear) error {
	switch {
	case l[1].In() != l[0].Out() || l[2].In() != l[0].Out():
		return fmt.Errorf("nn: encoder heads take %d/%d inputs, hidden layer gives %d", l[1].In(), l[2].In(), l[0].Out())
	case l[1].Out() != l[2].Out():
		return fmt.Errorf("nn: loc has %d dims, scale has %d", l[1].Out(), l[2].Out())
	case l[3].In() != l[1].Out():
		return fmt.Errorf("nn: decoder takes %d latent dims, encoder gives %d", l[3].In(), l[1].Out())
	case l[4].In() != l[3].Out():
		return fmt.Errorf("nn: decoder output layer takes %d inputs, hidden layer gives %d", l[4].In(), l[3].Out())
	case l[4].Out() != l[0].In():
		return fmt.Errorf("nn: decoder writes %d pixels, encoder reads %d", l[4].Out(), l[0].In())
	}
	return nil
}

func exportLinears(model string, layers ...*Linear) *utils.ModelWeights {
	mw := &utils.ModelWeights{Version: "1.0", Model: model, Layers: map[string]utils.LayerWeight{}}
	for _, l := range layers {
		w, b := l.Tensors()
		mw.Layers[l.Name] = utils.LayerWeight{
			Weight: utils.TensorToWeightData(l.Name+".weight", w),
			Bias:   utils.TensorToWeightData(l.Name+".bias", b),
		}
	}
	return mw
}
