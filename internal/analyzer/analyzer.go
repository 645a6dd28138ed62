// Package analyzer runs the per-page pipeline: decode the capture, extract
// and harvest styles, lint them, attribute the diagnostics and record the
// result under its group.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/har"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/raysh454/harstyle/internal/capture"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/harvester"
	"github.com/raysh454/harstyle/internal/knowledge"
	"github.com/raysh454/harstyle/internal/linter"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
	"github.com/raysh454/harstyle/internal/offsets"
	"github.com/raysh454/harstyle/internal/store"
	"github.com/raysh454/harstyle/internal/stylecheck"
)

// Analyzer is safe for concurrent use: pages are independent and the store
// serializes appends.
type Analyzer struct {
	rules     *config.RuleConfig
	harvester *harvester.Harvester
	linter    *linter.Adapter
	store     store.Store
	logger    logging.Logger
}

// New wires an Analyzer. A nil StyleLinter selects the built-in stylecheck
// engine and a nil store an in-memory one.
func New(cfg *config.Config, l linter.StyleLinter, st store.Store, logger logging.Logger) (*Analyzer, error) {
	if cfg == nil {
		return nil, errors.New("analyzer: nil config")
	}
	if logger == nil {
		return nil, errors.New("analyzer: nil logger provided")
	}
	if l == nil {
		l = stylecheck.New()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	componentLogger := logger.With(logging.Field{Key: "component", Value: "analyzer"})
	componentLogger.Info("created analyzer",
		logging.Field{Key: "ruleset", Value: cfg.Ruleset.Name},
		logging.Field{Key: "strategy", Value: cfg.Lint.Strategy})

	return &Analyzer{
		rules:     &cfg.Ruleset,
		harvester: harvester.New(nil, logger),
		linter:    linter.New(l, &cfg.Ruleset, cfg.Lint, logger),
		store:     st,
		logger:    componentLogger,
	}, nil
}

// AnalyzePage decodes a raw HAR document and analyzes it. An empty group
// selects DefaultGroup(pageURL).
func (a *Analyzer) AnalyzePage(ctx context.Context, pageURL, group string, data []byte) (*model.PageResult, error) {
	log, err := capture.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("AnalyzePage %s: %w", pageURL, err)
	}
	return a.AnalyzeLog(ctx, pageURL, group, log)
}

// AnalyzeLog analyzes an already decoded capture.
func (a *Analyzer) AnalyzeLog(ctx context.Context, pageURL, group string, log *har.Log) (*model.PageResult, error) {
	if log == nil {
		return nil, fmt.Errorf("AnalyzeLog %s: %w", pageURL, capture.ErrNoEntries)
	}
	if group == "" {
		group = DefaultGroup(pageURL)
	}

	ext := capture.Extract(log, pageURL)
	a.harvester.Harvest(ext)

	var kn *model.KnowledgeSnapshot
	if len(ext.HTMLs) == 0 {
		a.logger.Warn("capture holds no html", logging.Field{Key: "url", Value: pageURL})
		kn = knowledge.NoNetwork(pageURL, group)
	} else {
		joined, records := offsets.Join(ext.AllStyles)
		raw, err := a.linter.Lint(ctx, linter.Input{Joined: joined, Records: records, Fragments: ext.AllStyles})
		if err != nil {
			return nil, fmt.Errorf("AnalyzeLog %s: %w", pageURL, err)
		}
		kn = knowledge.Aggregate(offsets.Attribute(raw, records), a.rules, pageURL, group)
	}

	if err := a.store.Record(group, pageURL, ext, kn); err != nil {
		return nil, fmt.Errorf("AnalyzeLog %s: %w", pageURL, err)
	}

	a.logger.Info("analyzed page",
		logging.Field{Key: "url", Value: pageURL},
		logging.Field{Key: "group", Value: group},
		logging.Field{Key: "styles", Value: len(ext.AllStyles)},
		logging.Field{Key: "rules", Value: len(kn.Issues)})

	return &model.PageResult{
		ID:            uuid.NewString(),
		URL:           pageURL,
		Group:         group,
		Version:       model.ToolVersion,
		Dependencies:  a.dependencies(),
		AnalyzedData:  ext,
		KnowledgeData: kn,
	}, nil
}

func (a *Analyzer) dependencies() map[string]string {
	return map[string]string{
		model.ToolName: model.ToolVersion,
		"ruleset":      a.rules.Name + "@" + a.rules.Version,
		"strategy":     a.linter.Strategy(),
	}
}

// Summarize returns the accumulated state of every group.
func (a *Analyzer) Summarize() map[string]*model.GroupState {
	return a.store.Summarize()
}

// Group returns the accumulated state of one group.
func (a *Analyzer) Group(group string) (*model.GroupState, bool) {
	return a.store.Get(group)
}

// Groups lists the known group keys, sorted.
func (a *Analyzer) Groups() []string {
	return a.store.Groups()
}

// Rules returns the active rule configuration.
func (a *Analyzer) Rules() *config.RuleConfig {
	return a.rules
}

// Health checks if the analyzer is ready to accept pages.
func (a *Analyzer) Health(ctx context.Context) (string, error) {
	a.logger.Debug("health check")
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "ok", nil
}

// Close releases the store.
func (a *Analyzer) Close() error {
	return a.store.Close()
}

// DefaultGroup derives a group key from a page URL: its registrable domain,
// or the host name when there is none. Unparsable input is returned as is.
func DefaultGroup(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return pageURL
	}
	host := strings.ToLower(u.Hostname())
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
