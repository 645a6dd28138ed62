// Package report derives display views from the canonical rule-indexed
// knowledge snapshots.
package report

import (
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/harstyle/internal/model"
	"github.com/raysh454/harstyle/internal/offsets"
)

// PageSummary counts one page's buckets by outcome.
type PageSummary struct {
	URL      string   `json:"url"`
	Errors   int      `json:"errors"`
	Warnings int      `json:"warnings"`
	Resolved []string `json:"resolved"`
	Violated []string `json:"violated"`
}

// RuleTotal is one rule across every page of a group.
type RuleTotal struct {
	Rule          string `json:"rule"`
	Category      string `json:"category"`
	Issues        int    `json:"issues"`
	PagesViolated int    `json:"pagesViolated"`
	PagesResolved int    `json:"pagesResolved"`
}

// Drift is the line change of the joined style text between two
// consecutive pages of a group.
type Drift struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Inserted int    `json:"inserted"`
	Deleted  int    `json:"deleted"`
}

// GroupSummary is the report view of one group.
type GroupSummary struct {
	Group string        `json:"group"`
	Pages []PageSummary `json:"pages"`
	Rules []RuleTotal   `json:"rules"`
	Drift []Drift       `json:"drift"`
}

// FlatIssues lists every diagnostic of snap, ordered by rule name and, within
// a rule, in the order received. Resolved buckets contribute nothing.
func FlatIssues(snap *model.KnowledgeSnapshot) []model.Diagnostic {
	out := []model.Diagnostic{}
	if snap == nil {
		return out
	}
	for _, name := range sortedRules(snap) {
		out = append(out, snap.Issues[name].SubIssues...)
	}
	return out
}

// ResolvedRules lists the rules snap holds as resolved, sorted.
func ResolvedRules(snap *model.KnowledgeSnapshot) []string {
	out := []string{}
	if snap == nil {
		return out
	}
	for _, name := range sortedRules(snap) {
		if snap.Issues[name].Severity == model.SeverityResolved {
			out = append(out, name)
		}
	}
	return out
}

func sortedRules(snap *model.KnowledgeSnapshot) []string {
	names := make([]string, 0, len(snap.Issues))
	for name := range snap.Issues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group builds the report view of one group.
func Group(group string, state *model.GroupState) *GroupSummary {
	sum := &GroupSummary{Group: group, Pages: []PageSummary{}, Rules: []RuleTotal{}, Drift: []Drift{}}
	if state == nil {
		return sum
	}

	totals := map[string]*RuleTotal{}
	for _, snap := range state.KnowledgeData {
		if snap == nil {
			continue
		}
		ps := PageSummary{URL: snap.URL, Resolved: []string{}, Violated: []string{}}
		for _, name := range sortedRules(snap) {
			b := snap.Issues[name]
			t, ok := totals[name]
			if !ok {
				t = &RuleTotal{Rule: name, Category: b.Category}
				totals[name] = t
			}
			switch b.Severity {
			case model.SeverityResolved:
				ps.Resolved = append(ps.Resolved, name)
				t.PagesResolved++
				continue
			case model.SeverityWarning:
				ps.Warnings += len(b.SubIssues)
			default:
				ps.Errors += len(b.SubIssues)
			}
			ps.Violated = append(ps.Violated, name)
			t.PagesViolated++
			t.Issues += len(b.SubIssues)
		}
		sum.Pages = append(sum.Pages, ps)
	}
	for _, t := range totals {
		sum.Rules = append(sum.Rules, *t)
	}
	sort.Slice(sum.Rules, func(i, j int) bool {
		if sum.Rules[i].Issues != sum.Rules[j].Issues {
			return sum.Rules[i].Issues > sum.Rules[j].Issues
		}
		return sum.Rules[i].Rule < sum.Rules[j].Rule
	})

	sum.Drift = drift(state)
	return sum
}

func drift(state *model.GroupState) []Drift {
	out := []Drift{}
	n := len(state.AnalyzedData)
	if len(state.KnowledgeData) < n {
		n = len(state.KnowledgeData)
	}
	if n < 2 {
		return out
	}

	dmp := diffmatchpatch.New()
	prev := joinedStyles(state.AnalyzedData[0])
	for i := 1; i < n; i++ {
		cur := joinedStyles(state.AnalyzedData[i])
		a, b, lines := dmp.DiffLinesToChars(prev, cur)
		diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

		d := Drift{From: pageURL(state, i-1), To: pageURL(state, i)}
		for _, df := range diffs {
			switch df.Type {
			case diffmatchpatch.DiffInsert:
				d.Inserted += strings.Count(df.Text, "\n")
			case diffmatchpatch.DiffDelete:
				d.Deleted += strings.Count(df.Text, "\n")
			}
		}
		out = append(out, d)
		prev = cur
	}
	return out
}

func joinedStyles(ext *model.ExtractionResult) string {
	if ext == nil {
		return ""
	}
	joined, _ := offsets.Join(ext.AllStyles)
	return joined
}

func pageURL(state *model.GroupState, i int) string {
	if snap := state.KnowledgeData[i]; snap != nil {
		return snap.URL
	}
	return ""
}
