package nn

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"vaeplot/utils"
)

// SSVAE is a semi-supervised VAE (M2 model). The latent encoder and the
// decoder are both conditioned on a one-hot class y; a classifier head
// predicts y from x alone.
type SSVAE struct {
	Arch     Arch
	EncoderY *Sequential // x -> class probabilities
	EncoderZ *Encoder    // [x, y] -> q(z|x,y)
	Decoder  *Decoder    // [z, y] -> pixel means

	classifier [2]*Linear
	prior      distuv.Normal
}

// NewSSVAE returns a randomly initialised SS-VAE; arch.Classes must be set.
func NewSSVAE(arch Arch, seed uint64) (*SSVAE, error) {
	if arch.Classes <= 0 {
		return nil, fmt.Errorf("nn: SS-VAE needs a positive class count")
	}
	src := rand.NewSource(seed)
	m := &SSVAE{
		Arch: arch,
		classifier: [2]*Linear{
			NewLinear("encoder_y.fc1", arch.Input, arch.Hidden, src),
			NewLinear("encoder_y.fc2", arch.Hidden, arch.Classes, src),
		},
		EncoderZ: &Encoder{
			FC1:  NewLinear("encoder_z.fc1", arch.Input+arch.Classes, arch.Hidden, src),
			FC21: NewLinear("encoder_z.fc21", arch.Hidden, arch.Latent, src),
			FC22: NewLinear("encoder_z.fc22", arch.Hidden, arch.Latent, src),
		},
		Decoder: &Decoder{
			FC1:  NewLinear("decoder.fc1", arch.Latent+arch.Classes, arch.Hidden, src),
			FC21: NewLinear("decoder.fc21", arch.Hidden, arch.Input, src),
		},
		prior: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
	m.EncoderY = NewSequential(m.classifier[0], Softplus, m.classifier[1])
	return m, nil
}

// LoadSSVAE builds an SS-VAE from saved weights.
func LoadSSVAE(w *utils.ModelWeights, seed uint64) (*SSVAE, error) {
	l, err := loadLinears(w,
		"encoder_y.fc1", "encoder_y.fc2",
		"encoder_z.fc1", "encoder_z.fc21", "encoder_z.fc22",
		"decoder.fc1", "decoder.fc21")
	if err != nil {
		return nil, err
	}
	arch := Arch{Input: l[0].In(), Hidden: l[2].Out(), Latent: l[3].Out(), Classes: l[1].Out()}
	switch {
	case l[1].In() != l[0].Out():
		return nil, fmt.Errorf("nn: classifier head takes %d inputs, hidden layer gives %d", l[1].In(), l[0].Out())
	case l[2].In() != arch.Input+arch.Classes:
		return nil, fmt.Errorf("nn: encoder_z takes %d inputs, want %d", l[2].In(), arch.Input+arch.Classes)
	case l[3].In() != arch.Hidden || l[4].In() != arch.Hidden || l[4].Out() != arch.Latent:
		return nil, fmt.Errorf("nn: encoder_z heads do not match hidden width %d", arch.Hidden)
	case l[5].In() != arch.Latent+arch.Classes:
		return nil, fmt.Errorf("nn: decoder takes %d inputs, want %d", l[5].In(), arch.Latent+arch.Classes)
	case l[6].In() != l[5].Out() || l[6].Out() != arch.Input:
		return nil, fmt.Errorf("nn: decoder output layer is %dx%d", l[6].Out(), l[6].In())
	}
	m := &SSVAE{
		Arch:       arch,
		classifier: [2]*Linear{l[0], l[1]},
		EncoderZ:   &Encoder{FC1: l[2], FC21: l[3], FC22: l[4]},
		Decoder:    &Decoder{FC1: l[5], FC21: l[6]},
		prior:      distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}
	m.EncoderY = NewSequential(l[0], Softplus, l[1])
	return m, nil
}

// Classify returns class probabilities for every row of x.
func (m *SSVAE) Classify(x mat.Matrix) (*mat.Dense, error) {
	logits, err := m.EncoderY.Forward(x)
	if err != nil {
		return nil, err
	}
	return Softmax(logits), nil
}

// EncodeZ returns the parameters of q(z|x,y).
func (m *SSVAE) EncodeZ(x, y mat.Matrix) (loc, scale *mat.Dense, err error) {
	if err := m.checkLabels(y); err != nil {
		return nil, nil, err
	}
	xy, err := concat(x, y)
	if err != nil {
		return nil, nil, err
	}
	return m.EncoderZ.Forward(xy)
}

// Model draws z ~ N(0, I) per row of x and decodes it conditioned on y,
// which must have one row per row of x.
func (m *SSVAE) Model(x, y mat.Matrix) (*mat.Dense, error) {
	if err := m.checkLabels(y); err != nil {
		return nil, err
	}
	r, _ := x.Dims()
	zy, err := concat(samplePrior(m.prior, r, m.Arch.Latent), y)
	if err != nil {
		return nil, err
	}
	return m.Decoder.Forward(zy)
}

// Loss returns the mean negative ELBO of labelled data (x, y).
func (m *SSVAE) Loss(x, y mat.Matrix) (float64, error) {
	loc, scale, err := m.EncodeZ(x, y)
	if err != nil {
		return 0, err
	}
	zy, err := concat(loc, y)
	if err != nil {
		return 0, err
	}
	probs, err := m.Decoder.Forward(zy)
	if err != nil {
		return 0, err
	}
	return negativeELBO(probs, x, loc, scale)
}

// Weights exports the parameters in the JSON weights format.
func (m *SSVAE) Weights() *utils.ModelWeights {
	return exportLinears("ssvae",
		m.classifier[0], m.classifier[1],
		m.EncoderZ.FC1, m.EncoderZ.FC21, m.EncoderZ.FC22,
		m.Decoder.FC1, m.Decoder.FC21)
}

func (m *SSVAE) checkLabels(y mat.Matrix) error {
	if _, c := y.Dims(); c != m.Arch.Classes {
		return fmt.Errorf("nn: labels have %d columns, want %d", c, m.Arch.Classes)
	}
	return nil
}
