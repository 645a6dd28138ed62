// Package stylecheck is the built-in style linter. It lexes CSS with
// tdewolff/parse, builds a shallow rule/declaration tree and runs a fixed set
// of stylelint-compatible rules against it.
package stylecheck

import (
	"context"
	"fmt"
	"sort"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/model"
)

// Engine lints CSS text. The zero value is ready to use and safe for
// concurrent calls.
type Engine struct{}

// New returns an Engine.
func New() *Engine {
	return &Engine{}
}

// Supported lists the rule names the engine implements, sorted.
func Supported() []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lint checks text against every enabled rule of cfg that the engine knows.
// Diagnostic lines are 1-based and relative to text. Text that cannot be
// walked yields a *SyntaxError and no diagnostics.
func (e *Engine) Lint(ctx context.Context, text string, cfg *config.RuleConfig) ([]model.RawDiagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	sh, err := build(toks)
	if err != nil {
		return nil, err
	}

	var out []model.RawDiagnostic
	for _, name := range Supported() {
		setting, ok := cfg.Setting(name)
		if !ok {
			continue
		}
		checks[name](sh, setting, func(line, col int, text string) {
			if setting.Message != "" {
				text = setting.Message
			}
			out = append(out, model.RawDiagnostic{
				Line:     line,
				Column:   col,
				Rule:     name,
				Severity: setting.Severity,
				Text:     fmt.Sprintf("%s (%s)", text, name),
			})
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out, nil
}
