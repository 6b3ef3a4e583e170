// Package resilience holds the failure-handling policies used around
// pipeline stages and their clients:
//
//   - Retry: restarts with exponential backoff and jitter
//   - CircuitBreaker: stops restarting a stage that keeps dying
//   - Bulkhead: caps concurrent stream clients
//
// The supervisor combines the first two:
//
//	if !breaker.Allow() {
//	    return resilience.ErrCircuitOpen
//	}
//	err := resilience.RetryFunc(ctx, cfg.Retry, func() error {
//	    return stage.Start(ctx)
//	})
//	breaker.Record(err)
package resilience
