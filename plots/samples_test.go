package plots

import (
	"errors"
	"image"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type constSampler struct {
	calls int
}

func (s *constSampler) Model(x mat.Matrix) (*mat.Dense, error) {
	s.calls++
	r, _ := x.Dims()
	out := mat.NewDense(r, imagePixels, nil)
	for j := 0; j < imagePixels; j++ {
		out.Set(0, j, 0.5)
	}
	return out, nil
}

// labelSampler paints every pixel with the class index divided by ten.
type labelSampler struct {
	seen []int
}

func (s *labelSampler) Model(x, y mat.Matrix) (*mat.Dense, error) {
	class := mat.Row(nil, 0, y)
	idx := -1
	for i, v := range class {
		if v == 1 {
			idx = i
		}
	}
	s.seen = append(s.seen, idx)
	out := mat.NewDense(1, imagePixels, nil)
	for j := 0; j < imagePixels; j++ {
		out.Set(0, j, float64(idx)/10)
	}
	return out, nil
}

type recordingDisplay struct {
	batches [][]image.Image
	nrows   []int
	pads    []int
}

func (d *recordingDisplay) Images(images []image.Image, nrow, padding int) error {
	d.batches = append(d.batches, images)
	d.nrows = append(d.nrows, nrow)
	d.pads = append(d.pads, padding)
	return nil
}

func TestPlotVAESamples(t *testing.T) {
	s := &constSampler{}
	d := &recordingDisplay{}
	require.NoError(t, PlotVAESamples(s, d))

	assert.Equal(t, 1000, s.calls)
	require.Len(t, d.batches, 10)
	for i, b := range d.batches {
		assert.Len(t, b, 100)
		assert.Equal(t, 10, d.nrows[i])
		assert.Equal(t, 2, d.pads[i])
	}
	g := d.batches[0][0].(*image.Gray)
	assert.Equal(t, image.Rect(0, 0, 28, 28), g.Bounds())
	assert.Equal(t, uint8(128), g.GrayAt(5, 5).Y)
}

func TestPlotConditionalSamples(t *testing.T) {
	s := &labelSampler{}
	d := &recordingDisplay{}
	require.NoError(t, PlotConditionalSamples(s, d))

	require.Len(t, s.seen, 1000)
	require.Len(t, d.batches, 10)
	for class, b := range d.batches {
		assert.Len(t, b, 100)
		assert.Equal(t, class, s.seen[class*100])
		assert.Equal(t, class, s.seen[class*100+99])
		want := uint8(math.Round(float64(class) / 10 * 255))
		assert.Equal(t, want, b[0].(*image.Gray).GrayAt(0, 0).Y)
	}
}

type failingSampler struct{}

func (failingSampler) Model(mat.Matrix) (*mat.Dense, error) { return nil, errors.New("decoder down") }

func TestPlotVAESamplesError(t *testing.T) {
	d := &recordingDisplay{}
	err := PlotVAESamples(failingSampler{}, d)
	assert.ErrorContains(t, err, "decoder down")
	assert.Empty(t, d.batches)
}

func TestToGray(t *testing.T) {
	img, err := ToGray([]float64{0, 1, -3, 7, math.NaN(), 0.5}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 255, 0, 255, 0, 128}, img.Pix)

	_, err = ToGray(make([]float64, 5), 3, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestMakeGrid(t *testing.T) {
	tiles := make([]image.Image, 10)
	for i := range tiles {
		tiles[i] = image.NewGray(image.Rect(0, 0, 28, 28))
	}
	grid, err := MakeGrid(tiles, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 302, 32), grid.Bounds())

	full := make([]image.Image, 100)
	for i := range full {
		full[i] = tiles[0]
	}
	grid, err = MakeGrid(full, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 302, 302), grid.Bounds())
}

func TestMakeGridPlacement(t *testing.T) {
	white := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	grid, err := MakeGrid([]image.Image{white, white, white}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 7, 7), grid.Bounds())
	assert.Equal(t, uint8(0), grid.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(4, 2).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(1, 4).Y)
	assert.Equal(t, uint8(0), grid.GrayAt(4, 4).Y)
}

func TestMakeGridErrors(t *testing.T) {
	_, err := MakeGrid(nil, 10, 2)
	assert.Error(t, err)
	_, err = MakeGrid([]image.Image{image.NewGray(image.Rect(0, 0, 2, 2))}, 0, 2)
	assert.Error(t, err)
	_, err = MakeGrid([]image.Image{
		image.NewGray(image.Rect(0, 0, 2, 2)),
		image.NewGray(image.Rect(0, 0, 3, 2)),
	}, 2, 0)
	assert.ErrorIs(t, err, ErrShape)
}

func TestGridDisplayWritesScaledFiles(t *testing.T) {
	dir := t.TempDir()
	d := NewGridDisplay(dir, "vae_samples")
	require.NoError(t, PlotVAESamples(&constSampler{}, d))
	require.Len(t, d.Files, 10)

	f, err := os.Open(d.Files[9])
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 302*3, cfg.Width)
	assert.Equal(t, 302*3, cfg.Height)
}
