package inference

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/edgecam/capture"
)

// MotionConfig tunes MotionModel.
type MotionConfig struct {
	// Cell is the side in pixels of the square averaged into one sample.
	Cell int `mapstructure:"cell" validate:"min=0"`
	// Threshold is the luma difference, 0 to 255, at which a cell counts
	// as moving.
	Threshold float64 `mapstructure:"threshold" validate:"min=0,max=255"`
}

// ApplyDefaults fills zero values.
func (c *MotionConfig) ApplyDefaults() {
	if c.Cell == 0 {
		c.Cell = 8
	}
	if c.Threshold == 0 {
		c.Threshold = 25
	}
}

// MotionModel detects motion by differencing each frame against the
// previous one on a coarse luma grid. It outputs "motion" as
// [score, mean, stddev], where score is the fraction of moving cells, and
// "boxes" as an Nx4 array of [x0, y0, x1, y1] around the moving cells.
type MotionModel struct {
	cfg MotionConfig

	mu         sync.Mutex
	prev       []float64
	prevBounds image.Rectangle
}

// NewMotionModel creates a model with no reference frame.
func NewMotionModel(cfg MotionConfig) *MotionModel {
	cfg.ApplyDefaults()
	return &MotionModel{cfg: cfg}
}

// Name returns "motion".
func (m *MotionModel) Name() string { return "motion" }

// Predict compares frame with the previous frame. The first frame, or one
// whose size changed, only becomes the reference. A frame without pixels
// is an error and leaves the reference alone.
func (m *MotionModel) Predict(frame capture.Frame) (PredictionSet, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("frame %d has no image", frame.Seq)
	}
	bounds := frame.Image.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("frame %d has an empty %dx%d image", frame.Seq, bounds.Dx(), bounds.Dy())
	}
	cols, rows, cur := m.sample(frame.Image)

	m.mu.Lock()
	prev, sameSize := m.prev, m.prevBounds == bounds
	m.prev, m.prevBounds = cur, bounds
	m.mu.Unlock()

	if prev == nil || !sameSize {
		return PredictionSet{
			"motion": Vector(0, 0, 0),
			"boxes":  {Shape: []int64{0, 4}, Data: []float64{}},
		}, nil
	}

	diff := make([]float64, len(cur))
	floats.SubTo(diff, cur, prev)
	moving := 0
	box := image.Rectangle{}
	for i, d := range diff {
		if d < 0 {
			d = -d
			diff[i] = d
		}
		if d < m.cfg.Threshold {
			continue
		}
		moving++
		x, y := (i%cols)*m.cfg.Cell, (i/cols)*m.cfg.Cell
		cell := image.Rect(x, y, x+m.cfg.Cell, y+m.cfg.Cell).Add(bounds.Min).Intersect(bounds)
		box = box.Union(cell)
	}
	mean, std := stat.MeanStdDev(diff, nil)
	if len(diff) < 2 {
		std = 0
	}
	score := float64(moving) / float64(cols*rows)

	boxes := Array{Shape: []int64{0, 4}, Data: []float64{}}
	if moving > 0 {
		boxes = Array{
			Shape: []int64{1, 4},
			Data:  []float64{float64(box.Min.X), float64(box.Min.Y), float64(box.Max.X), float64(box.Max.Y)},
		}
	}
	return PredictionSet{"motion": Vector(score, mean, std), "boxes": boxes}, nil
}

// sample averages luma over cells.
func (m *MotionModel) sample(img image.Image) (cols, rows int, out []float64) {
	b := img.Bounds()
	c := m.cfg.Cell
	cols = (b.Dx() + c - 1) / c
	rows = (b.Dy() + c - 1) / c
	out = make([]float64, cols*rows)
	counts := make([]float64, cols*rows)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := ((y-b.Min.Y)/c)*cols + (x-b.Min.X)/c
			out[i] += float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			counts[i]++
		}
	}
	floats.Div(out, counts)
	return cols, rows, out
}

// Release drops the reference frame.
func (m *MotionModel) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev = nil
	m.prevBounds = image.Rectangle{}
	return nil
}
