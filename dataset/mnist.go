// Package dataset loads labelled image data as gonum matrices.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"vaeplot/tensor"
)

// MNIST geometry.
const (
	ImageSide   = 28
	ImagePixels = ImageSide * ImageSide
	Classes     = 10
)

// Set is a batch of feature rows with aligned one-hot label rows.
type Set struct {
	X      *mat.Dense
	Y      *mat.Dense
	Digits []int
}

// Features returns the N×784 pixel matrix, one image per row.
func (s *Set) Features() *mat.Dense { return s.X }

// Labels returns the N×10 one-hot label matrix aligned with Features.
func (s *Set) Labels() *mat.Dense { return s.Y }

// Len returns the number of examples.
func (s *Set) Len() int {
	if s.X == nil {
		return 0
	}
	r, _ := s.X.Dims()
	return r
}

// LoadMNIST reads an MNIST CSV file (label first, then 784 pixel values in
// 0..255). Pixels are scaled to [0, 1]. limit > 0 keeps the first limit rows.
func LoadMNIST(filename string, limit int) (*Set, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open MNIST data: %w", err)
	}
	defer file.Close()
	return ReadMNIST(file, limit)
}

// ReadMNIST is LoadMNIST on an open reader.
func ReadMNIST(reader io.Reader, limit int) (*Set, error) {
	r := csv.NewReader(bufio.NewReader(reader))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var pixels []float64
	var digits []int
	lineNum := 0
	for limit <= 0 || len(digits) < limit {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read MNIST csv: %w", err)
		}
		lineNum++
		if len(record) != ImagePixels+1 {
			return nil, errInvalidLine{lineNum: lineNum, splits: len(record), expected: ImagePixels + 1}
		}
		d, err := strconv.Atoi(record[0])
		if err != nil || d < 0 || d >= Classes {
			return nil, fmt.Errorf("line %d: invalid label %q", lineNum, record[0])
		}
		for i, field := range record[1:] {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d pixel %d: %w", lineNum, i, err)
			}
			pixels = append(pixels, x/255.0)
		}
		digits = append(digits, d)
	}
	if len(digits) == 0 {
		return nil, fmt.Errorf("no MNIST rows read")
	}

	oh, err := tensor.OneHot(digits, Classes)
	if err != nil {
		return nil, err
	}
	y, err := oh.ToDense()
	if err != nil {
		return nil, err
	}
	return &Set{X: mat.NewDense(len(digits), ImagePixels, pixels), Y: y, Digits: digits}, nil
}

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

// Normalize returns a copy of s with every feature column shifted by mean
// and divided by std. Columns with zero spread are only shifted.
func (s *Set) Normalize(mean, std []float64) (*Set, error) {
	r, c := s.X.Dims()
	if len(mean) != c || len(std) != c {
		return nil, fmt.Errorf("normalize: %d features, got %d means and %d stds", c, len(mean), len(std))
	}
	x := mat.NewDense(r, c, nil)
	x.Apply(func(_, j int, v float64) float64 {
		if std[j] == 0 {
			return v - mean[j]
		}
		return (v - mean[j]) / std[j]
	}, s.X)
	return &Set{X: x, Y: s.Y, Digits: s.Digits}, nil
}

// MeanStd returns per-feature mean and population standard deviation.
func (s *Set) MeanStd() (mean, std []float64) {
	_, c := s.X.Dims()
	mean = make([]float64, c)
	std = make([]float64, c)
	col := make([]float64, s.Len())
	for j := 0; j < c; j++ {
		mat.Col(col, j, s.X)
		mean[j], std[j] = stat.PopMeanStdDev(col, nil)
	}
	return mean, std
}

// Batch returns rows [batchSize*iteration, batchSize*(iteration+1)) of s,
// truncated at the end, or nil when the range is empty.
func (s *Set) Batch(batchSize, iteration int) *Set {
	start := batchSize * iteration
	end := batchSize * (iteration + 1)
	n := s.Len()
	if start < 0 || start >= n || end <= start {
		return nil
	}
	if end > n {
		end = n
	}
	_, c := s.X.Dims()
	_, k := s.Y.Dims()
	return &Set{
		X:      s.X.Slice(start, end, 0, c).(*mat.Dense),
		Y:      s.Y.Slice(start, end, 0, k).(*mat.Dense),
		Digits: s.Digits[start:end],
	}
}
