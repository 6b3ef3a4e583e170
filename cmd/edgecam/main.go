// Command edgecam captures frames, runs the motion detector on them and
// streams the results to WebSocket clients at /ws/stream.
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

const serviceName = "edgecam"

func main() {
	configFile := flag.String("config", "", "path to the config file")
	envFile := flag.String("env", "", "path to a .env file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}
	if err := run(*configFile, *envFile); err != nil {
		// LOG_* variables configure this logger; the config file may not have loaded.
		logger.NewFromEnv(serviceName).Error("service exited", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	cfg := edge.InferenceConfig{}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	app.OnConfigure(func(_ context.Context, a *bootstrap.App[*edge.InferenceConfig]) error {
		svc, err := edge.NewInference(a.Cfg, a.Logger)
		if err != nil {
			return err
		}
		return svc.Register(a.Components)
	})
	return app.Run(context.Background())
}
