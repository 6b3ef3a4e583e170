// Package edge assembles the edgecam services from the pipeline parts.
//
// Inference wires capture → frames buffer → detector → results buffer →
// WebSocket stream. Relay wires a remote WebSocket stream → async buffer →
// WebSocket stream. Both serve health, version, stage statistics and
// lifecycle events over HTTP, expose buffer resizing under /admin, and can
// run a Supervisor that restarts stages which terminate unexpectedly.
//
//	svc, err := edge.NewInference(&cfg, log)
//	if err != nil {
//	    return err
//	}
//	return svc.Register(app.Components)
package edge
