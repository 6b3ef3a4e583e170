package buffer

import "sync/atomic"

// Stats is a snapshot of a buffer's lifetime counters.
//
// At any quiescent point Got == Pushed + Put - Evicted - Flushed - Size.
type Stats struct {
	Capacity int    `json:"capacity"`
	Size     int    `json:"size"`
	Pushed   uint64 `json:"pushed"`
	Put      uint64 `json:"put"`
	Got      uint64 `json:"got"`
	Evicted  uint64 `json:"evicted"`
	Flushed  uint64 `json:"flushed"`
}

type counters struct {
	pushed  atomic.Uint64
	put     atomic.Uint64
	got     atomic.Uint64
	evicted atomic.Uint64
	flushed atomic.Uint64
}

func (c *counters) snapshot(capacity, size int) Stats {
	return Stats{
		Capacity: capacity,
		Size:     size,
		Pushed:   c.pushed.Load(),
		Put:      c.put.Load(),
		Got:      c.got.Load(),
		Evicted:  c.evicted.Load(),
		Flushed:  c.flushed.Load(),
	}
}
