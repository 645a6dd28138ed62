// Package knowledge folds attributed diagnostics into per-rule buckets.
package knowledge

import (
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/model"
)

// NoNetworkRule is the synthetic rule reported when a capture held no HTML.
const NoNetworkRule = "no-network"

const noNetworkText = "No HTML document was captured for this page, so its styles could not be checked"

// Aggregate groups diags by rule. The first diagnostic of a rule sets the
// bucket's category and severity; sub-issues keep the order received. Every
// enabled rule of rules without diagnostics gets an empty bucket with
// severity resolved. Disabled rules never appear unless they reported.
func Aggregate(diags []model.Diagnostic, rules *config.RuleConfig, url, group string) *model.KnowledgeSnapshot {
	snap := &model.KnowledgeSnapshot{
		URL:    url,
		Group:  group,
		Issues: make(map[string]*model.RuleBucket),
	}
	for _, d := range diags {
		b, ok := snap.Issues[d.Rule]
		if !ok {
			b = &model.RuleBucket{
				Rule:      d.Rule,
				Category:  d.Category,
				Severity:  d.Severity,
				SubIssues: []model.Diagnostic{},
			}
			snap.Issues[d.Rule] = b
		}
		b.SubIssues = append(b.SubIssues, d)
	}
	for _, name := range rules.EnabledRules() {
		if _, ok := snap.Issues[name]; ok {
			continue
		}
		snap.Issues[name] = &model.RuleBucket{
			Rule:      name,
			Category:  model.CategoryStandard,
			Severity:  model.SeverityResolved,
			SubIssues: []model.Diagnostic{},
		}
	}
	return snap
}

// NoNetwork returns the snapshot for a capture without HTML: a single
// technical warning and nothing else.
func NoNetwork(url, group string) *model.KnowledgeSnapshot {
	d := model.Diagnostic{
		URL:      url,
		Rule:     NoNetworkRule,
		Category: model.CategoryTechnical,
		Severity: model.SeverityWarning,
		Text:     noNetworkText,
	}
	return &model.KnowledgeSnapshot{
		URL:   url,
		Group: group,
		Issues: map[string]*model.RuleBucket{
			NoNetworkRule: {
				Rule:      NoNetworkRule,
				Category:  model.CategoryTechnical,
				Severity:  model.SeverityWarning,
				SubIssues: []model.Diagnostic{d},
			},
		},
	}
}
