package plots

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/skratchdot/open-golang/open"
	xdraw "golang.org/x/image/draw"
)

// GridDisplay is a Display that tiles each batch into one PNG file,
// <Dir>/<Prefix>_<k>.png with k counting batches from 0.
type GridDisplay struct {
	Dir    string
	Prefix string
	// Scale enlarges each grid by an integer factor (nearest neighbour).
	Scale int
	// Open shows each written grid in the desktop image viewer.
	Open bool

	Files []string
}

// NewGridDisplay returns a display writing 3x enlarged grids to dir.
func NewGridDisplay(dir, prefix string) *GridDisplay {
	return &GridDisplay{Dir: dir, Prefix: prefix, Scale: 3}
}

// Images lays out images nrow per row separated by padding black pixels
// and writes the grid.
func (g *GridDisplay) Images(images []image.Image, nrow, padding int) error {
	grid, err := MakeGrid(images, nrow, padding)
	if err != nil {
		return err
	}
	var out image.Image = grid
	if g.Scale > 1 {
		b := grid.Bounds()
		scaled := image.NewGray(image.Rect(0, 0, b.Dx()*g.Scale, b.Dy()*g.Scale))
		xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), grid, b, xdraw.Src, nil)
		out = scaled
	}

	path := filepath.Join(g.Dir, fmt.Sprintf("%s_%d.png", g.Prefix, len(g.Files)))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid: %w", err)
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	g.Files = append(g.Files, path)

	if g.Open {
		if err := open.Start(path); err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
	}
	return nil
}

// MakeGrid tiles equally sized images into rows of nrow, with padding
// pixels around and between tiles.
func MakeGrid(images []image.Image, nrow, padding int) (*image.Gray, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("plots: no images for grid")
	}
	if nrow <= 0 || padding < 0 {
		return nil, fmt.Errorf("plots: invalid grid layout nrow=%d padding=%d", nrow, padding)
	}
	tile := images[0].Bounds()
	for i, img := range images {
		if img.Bounds().Dx() != tile.Dx() || img.Bounds().Dy() != tile.Dy() {
			return nil, fmt.Errorf("%w: image %d is %v, want %v", ErrShape, i, img.Bounds().Size(), tile.Size())
		}
	}

	cols := min(nrow, len(images))
	rows := (len(images) + cols - 1) / cols
	cellW, cellH := tile.Dx()+padding, tile.Dy()+padding
	grid := image.NewGray(image.Rect(0, 0, cols*cellW+padding, rows*cellH+padding))
	for i, img := range images {
		x := (i%cols)*cellW + padding
		y := (i/cols)*cellH + padding
		b := img.Bounds()
		for dy := 0; dy < b.Dy(); dy++ {
			for dx := 0; dx < b.Dx(); dx++ {
				grid.SetGray(x+dx, y+dy, color.GrayModel.Convert(img.At(b.Min.X+dx, b.Min.Y+dy)).(color.Gray))
			}
		}
	}
	return grid, nil
}
