package plots

import (
	"bytes"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func TestCanvasSavePNG(t *testing.T) {
	c := NewCanvas("points")
	c.SetLabels("x", "y")
	_, err := c.Scatter(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}}, Tab10[0], vg.Points(2))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "points.png")
	require.NoError(t, c.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestCanvasUnknownFormat(t *testing.T) {
	err := NewCanvas("").Save(filepath.Join(t.TempDir(), "figure.bmp-ish"))
	assert.Error(t, err)
}

func TestCanvasEmptyLayers(t *testing.T) {
	c := NewCanvas("")
	s, err := c.Scatter(nil, Tab10[0], vg.Points(2))
	assert.NoError(t, err)
	assert.Nil(t, s)
	l, err := c.Line(plotter.XYs{}, Tab10[0], true)
	assert.NoError(t, err)
	assert.Nil(t, l)
}

func TestCanvasSaveMissingDir(t *testing.T) {
	err := NewCanvas("").Save(filepath.Join(t.TempDir(), "nope", "x.png"))
	assert.Error(t, err)
}

func TestIntegerTicks(t *testing.T) {
	for _, r := range [][2]float64{{-110, -92}, {0.2, 0.9}, {-3, 3}, {1000, 1e4}} {
		ticks := integerTicks{}.Ticks(r[0], r[1])
		require.NotEmpty(t, ticks, "range %v", r)
		for _, tk := range ticks {
			assert.Equal(t, math.Trunc(tk.Value), tk.Value, "range %v", r)
		}
	}
}

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette([]string{"#1f77b4", "ff7f0e", " #000000 "})
	require.NoError(t, err)
	require.Len(t, p, 3)
	assert.Equal(t, Tab10[0], p[0])
	assert.Equal(t, Tab10[1], p[1])
	assert.Equal(t, color.RGBA{A: 0xff}, p[2])

	_, err = ParsePalette([]string{"#fff"})
	assert.Error(t, err)
	_, err = ParsePalette([]string{"#gggggg"})
	assert.Error(t, err)
}

func TestPaletteValidate(t *testing.T) {
	assert.NoError(t, Tab10.Validate(10))
	assert.NoError(t, Tab10.Validate(3))
	assert.ErrorIs(t, Tab10.Validate(11), ErrPalette)
	assert.ErrorIs(t, Palette(nil).Validate(1), ErrPalette)
}
