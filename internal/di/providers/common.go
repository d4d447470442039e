package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for the event logger to drain on shutdown.
	shutdownTimeout = 5 * time.Second
)
