package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/time/rate"
)

// GeneratorConfig sizes and paces the synthetic test pattern.
type GeneratorConfig struct {
	Width  int     `mapstructure:"width" validate:"min=0"`
	Height int     `mapstructure:"height" validate:"min=0"`
	FPS    float64 `mapstructure:"fps" validate:"min=0"`
	// Block is the side of the moving square in pixels.
	Block int `mapstructure:"block" validate:"min=0"`
}

// ApplyDefaults fills zero values.
func (c *GeneratorConfig) ApplyDefaults() {
	if c.Width == 0 {
		c.Width = 320
	}
	if c.Height == 0 {
		c.Height = 240
	}
	if c.FPS == 0 {
		c.FPS = 15
	}
	if c.Block == 0 {
		c.Block = c.Height / 4
	}
}

// Generator is a FrameSource rendering a square that sweeps across a gray
// background, one step per frame, at a fixed frame rate.
type Generator struct {
	cfg GeneratorConfig

	mu      sync.Mutex
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
	tick    int
}

// NewGenerator creates a closed generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	cfg.ApplyDefaults()
	return &Generator{cfg: cfg}
}

// Open arms the generator. The descriptor is informational.
func (g *Generator) Open(_ context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cfg.Block > g.cfg.Width || g.cfg.Block > g.cfg.Height {
		return fmt.Errorf("block %d does not fit %dx%d", g.cfg.Block, g.cfg.Width, g.cfg.Height)
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.limiter = rate.NewLimiter(rate.Limit(g.cfg.FPS), 1)
	g.tick = 0
	return nil
}

// Read waits for the next frame slot and renders it.
func (g *Generator) Read() (image.Image, error) {
	g.mu.Lock()
	ctx, limiter := g.ctx, g.limiter
	g.mu.Unlock()
	if ctx == nil {
		return nil, fmt.Errorf("generator is not open")
	}
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generator closed: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	img := g.render(g.tick)
	g.tick++
	return img, nil
}

func (g *Generator) render(tick int) *image.Gray {
	w, h, b := g.cfg.Width, g.cfg.Height, g.cfg.Block
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 64
	}
	span := w - b + 1
	x0 := (tick * max(1, b/4)) % span
	y0 := (h - b) / 2
	square := image.Rect(x0, y0, x0+b, y0+b)
	for y := square.Min.Y; y < square.Max.Y; y++ {
		for x := square.Min.X; x < square.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: 230})
		}
	}
	return img
}

// Close stops the generator and unblocks a pending Read.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.ctx = nil
	return nil
}
