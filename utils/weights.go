package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"vaeplot/tensor"
)

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string                 `json:"version"`
	Model   string                 `json:"model,omitempty"`
	Layers  map[string]LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// Layer returns the weight and bias tensors stored under name. The weight
// must be 2-D and the bias, when present, must match its first dimension.
func (w *ModelWeights) Layer(name string) (weight, bias *tensor.Tensor, err error) {
	lw, ok := w.Layers[name]
	if !ok || lw.Weight == nil {
		return nil, nil, fmt.Errorf("layer %q: missing weight", name)
	}
	if err := checkShape(lw.Weight); err != nil {
		return nil, nil, fmt.Errorf("layer %q weight: %w", name, err)
	}
	if len(lw.Weight.Shape) != 2 {
		return nil, nil, fmt.Errorf("layer %q: weight must be 2-D, got %v", name, lw.Weight.Shape)
	}
	weight = WeightDataToTensor(lw.Weight)
	if lw.Bias == nil {
		return weight, tensor.New(lw.Weight.Shape[0]), nil
	}
	if err := checkShape(lw.Bias); err != nil {
		return nil, nil, fmt.Errorf("layer %q bias: %w", name, err)
	}
	if len(lw.Bias.Data) != lw.Weight.Shape[0] {
		return nil, nil, fmt.Errorf("layer %q: bias has %d values, want %d", name, len(lw.Bias.Data), lw.Weight.Shape[0])
	}
	return weight, WeightDataToTensor(lw.Bias), nil
}

func checkShape(wd *WeightData) error {
	n := 1
	for _, d := range wd.Shape {
		n *= d
	}
	if n != len(wd.Data) {
		return fmt.Errorf("shape %v holds %d values, got %d", wd.Shape, n, len(wd.Data))
	}
	return nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: t.Shape,
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) *tensor.Tensor {
	t := tensor.New(wd.Shape...)
	copy(t.Data, wd.Data)
	return t
}
