// Package pipeline connects a source to a sink through a transform, driven
// by a background task.
//
// A Stage repeatedly takes one item from its upstream Source, transforms
// it and pushes the result to its downstream Sink. Because a buffer's Push
// never blocks, the only suspension point in an iteration is the upstream
// Get, whose timeout bounds how long Stop can take.
//
// Stages are chained by sharing buffers: the sink of one stage is the
// source of the next. Each hop is independently lossy and independently
// restartable.
//
//	frames, _ := buffer.New[capture.Frame](4)
//	results, _ := buffer.New[inference.Result](2)
//
//	grab := pipeline.NewStage("capture", reader, frames, pipeline.WithResources(reader))
//	infer := pipeline.NewStage("inference", frames, results, pipeline.WithEmptyPolicy(pipeline.EmptyRetry))
//
//	reg, err := pipeline.Chain(
//	    grab.Component(pipeline.Identity[capture.Frame](), time.Second),
//	    infer.Component(detector.Transform, time.Second),
//	)
//	err = reg.StartAll(ctx)
//
// An upstream ErrEmpty is handled according to the stage's EmptyPolicy.
// EmptyFail, the default, treats it like any other error and terminates
// the stage. EmptyRetry ends the iteration quietly so the stop flag is
// checked again.
package pipeline
