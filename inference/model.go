package inference

import (
	"fmt"
	"slices"

	"github.com/kbukum/edgecam/capture"
)

// Model predicts on single frames.
type Model interface {
	// Name identifies the model in logs and errors.
	Name() string
	// Predict runs the model on one frame.
	Predict(frame capture.Frame) (PredictionSet, error)
	// Release frees the model's runtime state. A released model may be
	// used again and reloads lazily.
	Release() error
}

// Array is a dense row-major n-dimensional float array.
type Array struct {
	Shape []int64   `json:"shape"`
	Data  []float64 `json:"data"`
}

// NewArray checks that data fills shape exactly.
func NewArray(shape []int64, data []float64) (Array, error) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return Array{}, fmt.Errorf("negative dimension %d", d)
		}
		n *= d
	}
	if n != int64(len(data)) {
		return Array{}, fmt.Errorf("shape %v needs %d values, got %d", shape, n, len(data))
	}
	return Array{Shape: shape, Data: data}, nil
}

// Vector returns a one-dimensional array over values.
func Vector(values ...float64) Array {
	return Array{Shape: []int64{int64(len(values))}, Data: values}
}

// Rows returns the size of the first dimension.
func (a Array) Rows() int64 {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// PredictionSet maps output names, such as "boxes", to arrays.
type PredictionSet map[string]Array

// Names returns the output names in sorted order.
func (p PredictionSet) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Result pairs a frame with the predictions made for it.
type Result struct {
	Frame       capture.Frame
	Predictions PredictionSet
	// Fresh is false when the predictions were reused from an earlier frame.
	Fresh bool
}
