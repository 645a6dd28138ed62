// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of recorded warnings.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── Linter ────────────────────────────────────────────────────────────

// FakeLinter implements linter.StyleLinter.
// Results[text] is returned for an exact text match, Errors[text] fails it.
// Any other text yields Default. Every call is recorded in Texts.
type FakeLinter struct {
	Results map[string][]model.RawDiagnostic
	Errors  map[string]error
	Default []model.RawDiagnostic

	mu    sync.Mutex
	Texts []string
}

func (f *FakeLinter) Lint(ctx context.Context, text string, _ *config.RuleConfig) ([]model.RawDiagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Texts = append(f.Texts, text)
	f.mu.Unlock()

	if err, ok := f.Errors[text]; ok {
		return nil, err
	}
	if diags, ok := f.Results[text]; ok {
		return append([]model.RawDiagnostic(nil), diags...), nil
	}
	return append([]model.RawDiagnostic(nil), f.Default...), nil
}

// Calls returns the number of Lint invocations.
func (f *FakeLinter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Texts)
}
