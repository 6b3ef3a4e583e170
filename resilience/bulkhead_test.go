package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "stream", MaxConcurrent: 2})

	r1, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r2, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b.InUse() != 2 || b.Available() != 0 {
		t.Errorf("expected full bulkhead, got inUse=%d", b.InUse())
	}
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}

	r1()
	r1()
	if b.InUse() != 1 {
		t.Errorf("expected double release to count once, got %d", b.InUse())
	}
	r2()
	if b.Available() != 2 {
		t.Errorf("expected all slots free, got %d", b.Available())
	}
}

func TestBulkhead_WaitTimeout(t *testing.T) {
	var rejected atomic.Int32
	b := NewBulkhead(BulkheadConfig{
		Name:          "stream",
		MaxConcurrent: 1,
		MaxWait:       20 * time.Millisecond,
		OnReject:      func(string) { rejected.Add(1) },
	})
	release, _ := b.Acquire(context.Background())
	defer release()

	start := time.Now()
	_, err := b.Acquire(context.Background())
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Error("expected to wait before timing out")
	}
	if rejected.Load() != 1 {
		t.Errorf("expected OnReject once, got %d", rejected.Load())
	}
}

func TestBulkhead_WaitGetsReleasedSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()
	r, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot after release, got %v", err)
	}
	r()
}

func TestBulkhead_ContextCanceled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected Canceled, got %v", err)
	}
}

func TestBulkhead_Execute(t *testing.T) {
	b := NewBulkhead(DefaultBulkheadConfig("x"))
	var seen int
	if err := b.Execute(context.Background(), func() error {
		seen = b.InUse()
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if seen != 1 || b.InUse() != 0 || b.MaxConcurrent() != 10 {
		t.Errorf("unexpected usage seen=%d after=%d", seen, b.InUse())
	}
}
