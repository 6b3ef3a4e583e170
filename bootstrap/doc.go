// Package bootstrap runs the lifecycle of an edgecam service.
//
// NewApp applies config defaults, validates, and initializes the logger.
// Run then assembles the service through OnConfigure callbacks, starts the
// component registry in registration order, runs hooks, prints a startup
// summary, and blocks until SIGINT/SIGTERM. Shutdown runs OnStop hooks and
// stops components in reverse order within the graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.OnConfigure(build)
//	return app.Run(ctx)
package bootstrap
