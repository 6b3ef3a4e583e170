package inference

import (
	"fmt"
	"sync"
)

// Skipper decides, once per frame, whether to skip work. With step n the
// first frame of every n is processed and the rest are skipped.
type Skipper struct {
	mu   sync.Mutex
	step int
	pos  int
}

// NewSkipper returns a skipper with the given step. A step of 1 never
// skips.
func NewSkipper(step int) (*Skipper, error) {
	if step < 1 {
		return nil, fmt.Errorf("step must be a positive integer, got %d", step)
	}
	return &Skipper{step: step, pos: -1}, nil
}

// Next advances one frame and reports whether it should be skipped.
func (s *Skipper) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos++
	if s.pos >= s.step {
		s.pos = 0
	}
	return s.pos != 0
}

// Step returns the current step.
func (s *Skipper) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetStep changes the step at runtime. The current cycle continues with the
// new length.
func (s *Skipper) SetStep(step int) error {
	if step < 1 {
		return fmt.Errorf("step must be a positive integer, got %d", step)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	return nil
}

// Reset restarts the cycle so the next frame is processed.
func (s *Skipper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = -1
}
