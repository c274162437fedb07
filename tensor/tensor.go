package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a simple n-D array backed by a flat []float64.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a 1-D tensor from existing data slice.
func NewWithData(data []float64) *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: []int{len(data)},
	}
}

// FromDense copies a gonum matrix into a 2-D tensor.
func FromDense(m mat.Matrix) *Tensor {
	r, c := m.Dims()
	out := New(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Data[i*c+j] = m.At(i, j)
		}
	}
	return out
}

// ToDense views a tensor as an r×c gonum matrix. 1-D tensors become a
// single row. The returned matrix copies the data.
func (t *Tensor) ToDense() (*mat.Dense, error) {
	switch len(t.Shape) {
	case 1:
		if t.Shape[0] == 0 {
			return nil, fmt.Errorf("ToDense: empty tensor")
		}
		return mat.NewDense(1, t.Shape[0], append([]float64(nil), t.Data...)), nil
	case 2:
		if t.Shape[0] == 0 || t.Shape[1] == 0 {
			return nil, fmt.Errorf("ToDense: empty tensor %v", t.Shape)
		}
		return mat.NewDense(t.Shape[0], t.Shape[1], append([]float64(nil), t.Data...)), nil
	default:
		return nil, fmt.Errorf("ToDense requires a 1-D or 2-D tensor, got %v", t.Shape)
	}
}

// Row returns a copy of row i of a 2-D tensor.
func (t *Tensor) Row(i int) []float64 {
	if len(t.Shape) != 2 {
		panic(fmt.Sprintf("Row: expected 2-D tensor, got %v", t.Shape))
	}
	c := t.Shape[1]
	return append([]float64(nil), t.Data[i*c:(i+1)*c]...)
}

// OneHot returns an n×classes tensor with a single 1 per row at labels[i].
func OneHot(labels []int, classes int) (*Tensor, error) {
	out := New(len(labels), classes)
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, fmt.Errorf("OneHot: label %d at row %d out of range [0,%d)", l, i, classes)
		}
		out.Data[i*classes+l] = 1
	}
	return out, nil
}

// At returns the element at the given indices.
// For a 4D tensor [a, b, c, d], At(i, j, k, l) returns the element at position [i][j][k][l].
func (t *Tensor) At(indices ...int) float64 {
	return t.Data[t.offset("At", indices)]
}

// Set sets the element at the given indices to the given value.
func (t *Tensor) Set(value float64, indices ...int) {
	t.Data[t.offset("Set", indices)] = value
}

func (t *Tensor) offset(op string, indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("%s: expected %d indices, got %d", op, len(t.Shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("%s: index %d out of bounds for dimension %d (shape: %v)", op, indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}
