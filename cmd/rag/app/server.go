// Package app provides the RAG server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/sentinel-rag/cmd/rag/app/options"
	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `sentinel-rag ingests PDF and text documents into a vector store and
answers questions over them with bounded conversational memory.

The server provides:
  - Document ingest with sliding-window or sentence chunking
  - Retrieval-augmented chat with per-session history
  - Ingest records and interview bookings in a relational store`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(ragsvc.Name),
		app.WithShortDescription("Retrieval-augmented chat over uploaded documents"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run builds the server from the completed options and blocks until the
// process receives SIGINT or SIGTERM.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		// Restore default signal handling once shutdown begins so a second
		// Ctrl-C kills a stuck drain.
		go func() {
			<-ctx.Done()
			stop()
		}()

		return server.Run(ctx)
	}
}
