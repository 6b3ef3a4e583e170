// Command edgerelay reads the stream of an edgecam instance and serves it
// again at /ws/relay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/edgecam/bootstrap"
	"github.com/kbukum/edgecam/config"
	"github.com/kbukum/edgecam/edge"
	"github.com/kbukum/edgecam/logger"
	"github.com/kbukum/edgecam/version"
)

const serviceName = "edgerelay"

func main() {
	configFile := flag.String("config", "", "path to the config file")
	envFile := flag.String("env", "", "path to a .env file")
	upstream := flag.String("upstream", "", "stream URL to relay, overrides relay.url")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}
	if err := run(*configFile, *envFile, *upstream); err != nil {
		// LOG_* variables configure this logger; the config file may not have loaded.
		logger.NewFromEnv(serviceName).Error("service exited", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}
}

func run(configFile, envFile, upstream string) error {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	cfg := edge.RelayConfig{}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if upstream != "" {
		cfg.Relay.URL = upstream
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	app.OnConfigure(func(_ context.Context, a *bootstrap.App[*edge.RelayConfig]) error {
		svc, err := edge.NewRelay(a.Cfg, a.Logger)
		if err != nil {
			return err
		}
		return svc.Register(a.Components)
	})
	return app.Run(context.Background())
}
