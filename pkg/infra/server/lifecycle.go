// Package server runs the service's servers under one lifecycle with
// ordered graceful shutdown.
package server

import "context"

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start starts the server. It must return once the server accepts work.
	Start(ctx context.Context) error
	// Stop stops the server gracefully.
	Stop(ctx context.Context) error
}

// Runnable represents a component that can be started and stopped.
type Runnable interface {
	Lifecycle
	// Name returns the server name for identification.
	Name() string
}

// Closer releases a resource during shutdown, after every server stopped.
type Closer struct {
	Name  string
	Close func(ctx context.Context) error
}
