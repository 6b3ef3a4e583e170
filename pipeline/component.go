package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/edgecam/component"
	"github.com/kbukum/edgecam/task"
)

// Runner is a stage bound to its transform and timeout. It satisfies
// component.Component so stages chain through a component.Registry, and
// exposes run state for supervisors and the stats endpoint.
type Runner interface {
	component.Component
	component.Describable
	IsRunning() bool
	Done() <-chan struct{}
	LastOutcome() task.Outcome
	Err() error
	Stats() Stats
}

// Component binds the stage to transform and timeout.
func (s *Stage[I, O]) Component(transform Transform[I, O], timeout time.Duration) Runner {
	return &stageRunner[I, O]{stage: s, transform: transform, timeout: timeout}
}

type stageRunner[I, O any] struct {
	stage     *Stage[I, O]
	transform Transform[I, O]
	timeout   time.Duration
}

func (r *stageRunner[I, O]) Name() string { return r.stage.Name() }

func (r *stageRunner[I, O]) Start(ctx context.Context) error {
	return r.stage.StartContext(ctx, r.transform, r.timeout)
}

// Stop treats an already dead stage as stopped: its cleanup has run.
func (r *stageRunner[I, O]) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- r.stage.Stop() }()
	select {
	case err := <-done:
		if stderrors.Is(err, task.ErrNotRunning) {
			return nil
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", r.stage.Name(), ctx.Err())
	}
}

func (r *stageRunner[I, O]) Health(context.Context) component.Health { return r.stage.Health() }

func (r *stageRunner[I, O]) Describe() component.Description {
	return describe(r.stage.opts, r.timeout)
}

func (r *stageRunner[I, O]) IsRunning() bool          { return r.stage.IsRunning() }
func (r *stageRunner[I, O]) Done() <-chan struct{}    { return r.stage.Done() }
func (r *stageRunner[I, O]) LastOutcome() task.Outcome { return r.stage.LastOutcome() }
func (r *stageRunner[I, O]) Err() error               { return r.stage.Err() }
func (r *stageRunner[I, O]) Stats() Stats             { return r.stage.Stats() }

// Component binds the async stage to transform and timeout.
func (s *AsyncStage[I, O]) Component(transform Transform[I, O], timeout time.Duration) Runner {
	return &asyncStageRunner[I, O]{stage: s, transform: transform, timeout: timeout}
}

type asyncStageRunner[I, O any] struct {
	stage     *AsyncStage[I, O]
	transform Transform[I, O]
	timeout   time.Duration
}

func (r *asyncStageRunner[I, O]) Name() string { return r.stage.Name() }

func (r *asyncStageRunner[I, O]) Start(ctx context.Context) error {
	return r.stage.Start(ctx, r.transform, r.timeout)
}

func (r *asyncStageRunner[I, O]) Stop(ctx context.Context) error {
	err := r.stage.Stop(ctx)
	if stderrors.Is(err, task.ErrNotRunning) {
		return nil
	}
	return err
}

func (r *asyncStageRunner[I, O]) Health(context.Context) component.Health { return r.stage.Health() }

func (r *asyncStageRunner[I, O]) Describe() component.Description {
	return describe(r.stage.opts, r.timeout)
}

func (r *asyncStageRunner[I, O]) IsRunning() bool          { return r.stage.IsRunning() }
func (r *asyncStageRunner[I, O]) Done() <-chan struct{}    { return r.stage.Done() }
func (r *asyncStageRunner[I, O]) LastOutcome() task.Outcome { return r.stage.LastOutcome() }
func (r *asyncStageRunner[I, O]) Err() error               { return r.stage.Err() }
func (r *asyncStageRunner[I, O]) Stats() Stats             { return r.stage.Stats() }

func describe(o options, timeout time.Duration) component.Description {
	return component.Description{
		Type:    "stage",
		Details: fmt.Sprintf("timeout=%s empty=%s resources=%d", timeout, o.emptyPolicy, len(o.resources)),
	}
}

// Chain registers components in pipeline order, upstream first, so
// StartAll starts producers before consumers and StopAll stops consumers
// first.
func Chain(components ...component.Component) (*component.Registry, error) {
	reg := component.NewRegistry()
	for _, c := range components {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
