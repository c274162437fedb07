package plots

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
)

func TestPlotELBOCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vae_results")
	train := ELBOHistory{1: 120.5, 2: 110.2, 3: 104.9}
	test := ELBOHistory{1: 118.0, 3: 103.1}

	path, err := PlotELBO(train, test, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ELBOFile), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotELBOSingleSeries(t *testing.T) {
	path, err := PlotELBO(nil, ELBOHistory{1: 99}, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestPlotELBOEmpty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	_, err := PlotELBO(ELBOHistory{}, nil, dir)
	assert.Error(t, err)
	assert.NoDirExists(t, dir)
}

func TestELBOPointsSortedAndNegated(t *testing.T) {
	h := ELBOHistory{3: 90, 1: 120, 2: 100}
	assert.Equal(t, plotter.XYs{{X: 1, Y: -120}, {X: 2, Y: -100}, {X: 3, Y: -90}}, h.points())
}

func TestLoadELBOHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elbo.json")
	doc := `{"train": {"1": 150.5, "2": 120}, "test": {"2": 125.25}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	train, test, err := LoadELBOHistory(path)
	require.NoError(t, err)
	assert.Equal(t, ELBOHistory{1: 150.5, 2: 120}, train)
	assert.Equal(t, ELBOHistory{2: 125.25}, test)
}

func TestLoadELBOHistoryErrors(t *testing.T) {
	_, _, err := LoadELBOHistory(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"train": {"one": 1}}`), 0o644))
	_, _, err = LoadELBOHistory(path)
	assert.Error(t, err)
}
