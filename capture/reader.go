package capture

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/logger"
)

// Reader adapts a FrameSource to a stage upstream. It numbers frames and
// stamps their capture time. Open and read failures are returned as
// OPEN_FAILED and READ_FAILED errors.
type Reader struct {
	src        FrameSource
	descriptor string
	log        *logger.Logger

	mu  sync.Mutex
	seq uint64
}

// NewReader wraps src, which is opened with descriptor.
func NewReader(src FrameSource, descriptor string) *Reader {
	return &Reader{
		src:        src,
		descriptor: descriptor,
		log:        logger.WithComponent("capture").WithFields(logger.Fields(logger.FieldSource, descriptor)),
	}
}

// Open connects the underlying source.
func (r *Reader) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.src.Open(ctx, r.descriptor); err != nil {
		return errors.OpenFailed(r.descriptor, err)
	}
	r.log.Info("frame source opened")
	return nil
}

// Get reads the next frame. The source decides how long a read blocks, so
// timeout is not applied.
func (r *Reader) Get(time.Duration) (Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, err := r.src.Read()
	if err != nil {
		return Frame{}, errors.ReadFailed(r.descriptor, err)
	}
	r.seq++
	return Frame{Seq: r.seq, Captured: time.Now(), Image: img}, nil
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.src.Close()
	r.log.Info("frame source closed")
	return err
}

// Descriptor returns the source descriptor.
func (r *Reader) Descriptor() string { return r.descriptor }
