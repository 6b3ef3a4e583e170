// Package observability provides OpenTelemetry tracing and metrics for
// edgecam pipelines.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("edgecam"))
//	defer tp.Shutdown(ctx)
//
// Stage metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("edgecam"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewStageMetrics(observability.Meter("edgecam"))
//	ctx, run := observability.StartRun(ctx, "inference", metrics)
//	defer run.End(ctx, "stopped", nil)
//
// Buffers are exported as observable instruments read at collection time:
//
//	reg, err := observability.ObserveBuffer(meter, "frames", frames.Stats)
//	defer reg.Unregister()
package observability
