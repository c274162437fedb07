package plots

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"

	"vaeplot/tensor"
)

const (
	imageSide      = 28
	imagePixels    = imageSide * imageSide
	sampleClasses  = 10
	sampleGrids    = 10
	samplesPerGrid = 100
	gridRow        = 10
	gridPadding    = 2
)

// Sampler draws images from an unconditional VAE. Model returns one decoded
// 784-pixel image per row of x; x only fixes the batch size.
type Sampler interface {
	Model(x mat.Matrix) (*mat.Dense, error)
}

// ConditionalSampler draws images from an SS-VAE conditioned on one-hot y.
type ConditionalSampler interface {
	Model(x, y mat.Matrix) (*mat.Dense, error)
}

// Display shows a batch of images laid out nrow per row.
type Display interface {
	Images(images []image.Image, nrow, padding int) error
}

// PlotVAESamples shows ten grids of 100 samples each.
func PlotVAESamples(vae Sampler, d Display) error {
	x := mat.NewDense(1, imagePixels, nil)
	for g := 0; g < sampleGrids; g++ {
		images := make([]image.Image, 0, samplesPerGrid)
		for s := 0; s < samplesPerGrid; s++ {
			out, err := vae.Model(x)
			if err != nil {
				return fmt.Errorf("sample %d of grid %d: %w", s, g, err)
			}
			img, err := ToGray(out.RawRowView(0), imageSide, imageSide)
			if err != nil {
				return err
			}
			images = append(images, img)
		}
		if err := d.Images(images, gridRow, gridPadding); err != nil {
			return fmt.Errorf("display grid %d: %w", g, err)
		}
	}
	return nil
}

// PlotConditionalSamples shows one grid of 100 samples per digit class.
func PlotConditionalSamples(ssvae ConditionalSampler, d Display) error {
	x := mat.NewDense(1, imagePixels, nil)
	for class := 0; class < sampleClasses; class++ {
		oh, err := tensor.OneHot([]int{class}, sampleClasses)
		if err != nil {
			return err
		}
		y, err := oh.ToDense()
		if err != nil {
			return err
		}
		images := make([]image.Image, 0, samplesPerGrid)
		for s := 0; s < samplesPerGrid; s++ {
			out, err := ssvae.Model(x, y)
			if err != nil {
				return fmt.Errorf("class %d sample %d: %w", class, s, err)
			}
			img, err := ToGray(out.RawRowView(0), imageSide, imageSide)
			if err != nil {
				return err
			}
			images = append(images, img)
		}
		if err := d.Images(images, gridRow, gridPadding); err != nil {
			return fmt.Errorf("display class %d: %w", class, err)
		}
	}
	return nil
}

// ToGray converts intensities in [0, 1] to a w×h grayscale image. Values
// outside the range are clamped.
func ToGray(pixels []float64, w, h int) (*image.Gray, error) {
	if len(pixels) != w*h {
		return nil, fmt.Errorf("%w: %d pixels for a %dx%d image", ErrShape, len(pixels), w, h)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range pixels {
		v = math.Max(0, math.Min(1, v))
		if math.IsNaN(v) {
			v = 0
		}
		img.SetGray(i%w, i/w, color.Gray{Y: uint8(math.Round(v * 255))})
	}
	return img, nil
}
