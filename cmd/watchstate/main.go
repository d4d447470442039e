// Package main provides the entry point for watchstate, which watches a file or
// directory and logs every change until interrupted.
package main

import (
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/listenupapp/watchstate/internal/di"
	"github.com/listenupapp/watchstate/internal/di/providers"
	"github.com/listenupapp/watchstate/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap starts the watcher
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start watching: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	handle := do.MustInvoke[*providers.WatcherHandle](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	// The DI container stops the watcher through WatcherHandle.Shutdown
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	summary := handle.Summary()
	args := make([]any, 0, len(summary)*2+2)
	args = append(args, "root", handle.Root())
	for _, kind := range slices.Sorted(maps.Keys(summary)) {
		args = append(args, kind, summary[kind])
	}
	log.Info("Watch summary", args...)
}
