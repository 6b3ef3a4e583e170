// Package sse streams stage lifecycle events to browsers and operators
// over Server-Sent Events.
//
// A Hub fans messages out to connected clients. Each client subscribes
// with a glob over stage names, so a dashboard can follow "inference*"
// while an alerting hook follows "*". Observer turns task lifecycle
// events into hub messages:
//
//	events := sse.NewComponent("/events", log)
//	stage := pipeline.NewStage("inference", frames, results,
//		pipeline.WithObserver(sse.Observer(events.Hub())))
//	engine.GET("/events", sse.Handler(events.Hub()))
package sse
