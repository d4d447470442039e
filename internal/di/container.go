// Package di provides dependency injection configuration for watchstate.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/watchstate/internal/config"
	"github.com/listenupapp/watchstate/internal/di/providers"
	"github.com/listenupapp/watchstate/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is loaded from flags, the environment and the .env file.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	register(injector)
	return injector
}

// NewContainerWithConfig creates a container around an already loaded configuration.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	register(injector)
	return injector
}

func register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)

	// Watching
	do.Provide(injector, providers.ProvideWatcher)
}

// Bootstrap initializes all services. The watcher is started here, so a
// root that cannot be watched fails the bootstrap.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.WatcherHandle](injector); err != nil {
		return err
	}
	return nil
}
