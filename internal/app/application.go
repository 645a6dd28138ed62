// Package app holds the runtime state shared by every command: the loaded
// configuration, the logger and the analyzer with its store.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/raysh454/harstyle/internal/analyzer"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/linter"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/store"
)

// Application is the global runtime state container. Pass it into commands
// rather than using package-level variables.
type Application struct {
	Config   *config.Config
	Logger   logging.Logger
	Analyzer *analyzer.Analyzer

	start time.Time
}

// NewApplication opens the configured store and wires an analyzer around it.
// A nil StyleLinter selects the built-in engine.
func NewApplication(ctx context.Context, cfg *config.Config, l linter.StyleLinter, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a, err := analyzer.New(cfg, l, st, logger)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("app: %w", err), st.Close())
	}

	return &Application{
		Config:   cfg,
		Logger:   logger,
		Analyzer: a,
		start:    time.Now(),
	}, nil
}

// Uptime is the time since the application was created.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.start)
}

// Shutdown releases the analyzer and its store.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated", logging.Field{Key: "uptime", Value: a.Uptime()})

	err := a.Analyzer.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = multierr.Append(err, ctxErr)
	}
	return err
}
