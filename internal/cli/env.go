// Package cli implements the harstyle command line: the shared program
// environment and every subcommand.
package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/raysh454/harstyle/internal/app"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/logging"
)

type envKey struct{}

// Env keeps everything the program needs in a single place.
type Env struct {
	Cfg *config.Config
	Log *zap.Logger

	app           *app.Application
	start         time.Time
	restoreStdLog func()
}

// EnvFromContext returns the environment installed by ContextWithEnv.
func EnvFromContext(ctx context.Context) *Env {
	if env, ok := ctx.Value(envKey{}).(*Env); ok {
		return env
	}
	// this should never happen
	panic("env not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &Env{start: time.Now()})
}

func (e *Env) Uptime() time.Duration {
	return time.Since(e.start)
}

// Logger adapts the zap logger to the component logging contract.
func (e *Env) Logger() logging.Logger {
	return logging.NewZapLogger(e.Log)
}

// Application wires the analyzer on first use, so commands that never
// analyze anything do not open the store.
func (e *Env) Application(ctx context.Context) (*app.Application, error) {
	if e.app != nil {
		return e.app, nil
	}
	if e.Cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}
	a, err := app.NewApplication(ctx, e.Cfg, nil, e.Logger())
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

func (e *Env) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *Env) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
