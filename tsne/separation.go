package tsne

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Separation returns the mean Euclidean distance between rows of y that
// share a group and between rows that do not. A well separated embedding
// has within < between.
func Separation(y mat.Matrix, groups []int) (within, between float64, err error) {
	n, _ := y.Dims()
	if len(groups) != n {
		return 0, 0, fmt.Errorf("tsne: %d groups for %d points", len(groups), n)
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, y)
	}
	var nw, nb int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(rows[i], rows[j], 2)
			if groups[i] == groups[j] {
				within += d
				nw++
			} else {
				between += d
				nb++
			}
		}
	}
	if nw == 0 || nb == 0 {
		return 0, 0, fmt.Errorf("tsne: separation needs at least two groups with a shared member")
	}
	return within / float64(nw), between / float64(nb), nil
}
