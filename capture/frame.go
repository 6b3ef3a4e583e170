package capture

import (
	"context"
	"image"
	"time"
)

// Frame is one captured image with its capture order and time.
type Frame struct {
	Seq      uint64
	Captured time.Time
	Image    image.Image
}

// Bounds returns the image bounds, or an empty rectangle for a frame with
// no image.
func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// FrameSource is a camera, file or stream that yields images.
type FrameSource interface {
	// Open connects to the source named by descriptor.
	Open(ctx context.Context, descriptor string) error
	// Read returns the next image, blocking until one is available.
	Read() (image.Image, error)
	// Close releases the source. Closing a closed source is a no-op.
	Close() error
}
