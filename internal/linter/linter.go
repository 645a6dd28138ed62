// Package linter runs a StyleLinter over the style fragments of one page and
// returns raw diagnostics positioned in the joined style text.
package linter

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
)

// StyleLinter checks CSS text against a rule configuration. Returned lines
// are 1-based and relative to text.
type StyleLinter interface {
	Lint(ctx context.Context, text string, cfg *config.RuleConfig) ([]model.RawDiagnostic, error)
}

// Input is one page worth of styles: the joined text plus the records and
// fragments it was built from.
type Input struct {
	Joined    string
	Records   []model.OffsetRecord
	Fragments []model.Fragment
}

// Adapter applies a lint strategy on top of a StyleLinter.
type Adapter struct {
	linter      StyleLinter
	rules       *config.RuleConfig
	strategy    string
	concurrency int
	logger      logging.Logger
}

// New creates an Adapter. An unknown strategy falls back to joined.
func New(l StyleLinter, rules *config.RuleConfig, lc config.LintConfig, logger logging.Logger) *Adapter {
	if lc.Concurrency < 1 {
		lc.Concurrency = 1
	}
	if lc.Strategy != config.StrategyPerFragment {
		lc.Strategy = config.StrategyJoined
	}
	return &Adapter{
		linter:      l,
		rules:       rules,
		strategy:    lc.Strategy,
		concurrency: lc.Concurrency,
		logger:      logger.With(logging.Field{Key: "component", Value: "linter"}),
	}
}

// Strategy returns the configured strategy name.
func (a *Adapter) Strategy() string {
	return a.strategy
}

// Lint returns diagnostics whose lines are 1-based positions in in.Joined.
// A linter failure never fails the page: the affected input contributes no
// diagnostics. Only context cancellation is returned as an error.
func (a *Adapter) Lint(ctx context.Context, in Input) ([]model.RawDiagnostic, error) {
	if len(in.Fragments) == 0 {
		return nil, ctx.Err()
	}
	if a.strategy == config.StrategyJoined {
		diags, err := a.linter.Lint(ctx, in.Joined, a.rules)
		if err == nil {
			return diags, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Warn("joined lint failed, linting fragments one by one",
			logging.Field{Key: "error", Value: err},
			logging.Field{Key: "fragments", Value: len(in.Fragments)})
	}
	return a.perFragment(ctx, in)
}

func (a *Adapter) perFragment(ctx context.Context, in Input) ([]model.RawDiagnostic, error) {
	if len(in.Records) != len(in.Fragments) {
		return nil, fmt.Errorf("linter: %d records for %d fragments", len(in.Records), len(in.Fragments))
	}

	results := make([][]model.RawDiagnostic, len(in.Fragments))
	failures := make([]error, len(in.Fragments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range in.Fragments {
		g.Go(func() error {
			frag, rec := in.Fragments[i], in.Records[i]
			diags, err := a.linter.Lint(gctx, frag.Content, a.rules)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures[i] = fmt.Errorf("%s (index %d): %w", frag.URL, frag.Index, err)
				return nil
			}
			for j := range diags {
				diags[j].Line += rec.StartLine
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := multierr.Combine(failures...); err != nil {
		a.logger.Warn("some style fragments could not be linted",
			logging.Field{Key: "failed", Value: len(multierr.Errors(err))},
			logging.Field{Key: "error", Value: err})
	}

	var out []model.RawDiagnostic
	for _, diags := range results {
		out = append(out, diags...)
	}
	return out, nil
}
