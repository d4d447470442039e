// Package providers contains dependency injection providers for watchstate.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/watchstate/internal/config"
	"github.com/listenupapp/watchstate/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting watchstate",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"root", cfg.Watch.Root,
		"mode", cfg.Watch.Mode,
		"backend", cfg.Watch.Backend,
	)

	return log, nil
}
