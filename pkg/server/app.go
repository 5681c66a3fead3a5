package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"DerivBot/internal/domain/repository"
	"DerivBot/pkg/config"
	xhttp "DerivBot/pkg/http"
	applogger "DerivBot/pkg/logger"
)

// Runner is the long-running trading loop.
type Runner interface {
	Run(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	logger       *applogger.Logger
	venue        repository.Venue
	orchestrator Runner
	httpServer   *xhttp.Server
	sinks        []repository.TradeSink
	closers      []closer
}

// New creates a new App instance with all dependencies. httpServer may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	venue repository.Venue,
	orchestrator Runner,
	httpServer *xhttp.Server,
	sinks []repository.TradeSink,
) *App {
	return &App{
		cfg:          cfg,
		logger:       logger,
		venue:        venue,
		orchestrator: orchestrator,
		httpServer:   httpServer,
		sinks:        sinks,
	}
}

// OnClose registers infrastructure to release after everything else has stopped.
// Closers run in reverse registration order.
func (a *App) OnClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	if err := a.venue.Connect(ctx); err != nil {
		a.logger.Error("initial venue connect failed", applogger.Error(err))
		a.shutdown(context.Background())
		return fmt.Errorf("connect venue: %w", err)
	}
	a.logger.Info("venue connected", applogger.String("symbol", a.cfg.Trading.Symbol))

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", applogger.Error(err))
			a.shutdown(context.Background())
			return err
		}
		a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))
	}

	done := make(chan error, 1)
	go func() {
		done <- a.orchestrator.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		runErr = <-done
	case runErr = <-done:
		a.logger.Warn("orchestrator exited", applogger.Error(runErr))
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	a.shutdown(context.Background())
	return runErr
}

// shutdown gracefully stops all services. Every step is attempted even when an earlier one fails.
func (a *App) shutdown(ctx context.Context) {
	a.logger.Info("shutting down...")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	if err := a.venue.Close(); err != nil {
		a.logger.Warn("venue close error", applogger.Error(err))
	}

	for _, s := range a.sinks {
		if err := s.Close(); err != nil {
			a.logger.Warn("trade sink close error", applogger.String("sink", s.Name()), applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	// flushes the pending error digest
	a.logger.RemoveCollector()
}
