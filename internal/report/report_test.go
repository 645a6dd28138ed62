package report

import (
	"testing"

	"github.com/raysh454/harstyle/internal/model"
)

func snapshot(url string, buckets ...*model.RuleBucket) *model.KnowledgeSnapshot {
	s := &model.KnowledgeSnapshot{URL: url, Group: "g", Issues: map[string]*model.RuleBucket{}}
	for _, b := range buckets {
		s.Issues[b.Rule] = b
	}
	return s
}

func violated(rule string, sev model.Severity, lines ...int) *model.RuleBucket {
	b := &model.RuleBucket{Rule: rule, Category: model.CategoryStandard, Severity: sev}
	for _, l := range lines {
		b.SubIssues = append(b.SubIssues, model.Diagnostic{Rule: rule, Severity: sev, Line: l})
	}
	return b
}

func resolved(rule string) *model.RuleBucket {
	return &model.RuleBucket{Rule: rule, Category: model.CategoryStandard, Severity: model.SeverityResolved, SubIssues: []model.Diagnostic{}}
}

func extraction(styles ...string) *model.ExtractionResult {
	ext := model.NewExtractionResult()
	for i, s := range styles {
		ext.AllStyles = append(ext.AllStyles, model.Fragment{URL: "u", Content: s, Index: i + 1})
	}
	return ext
}

func TestFlatIssues(t *testing.T) {
	snap := snapshot("u",
		violated("z-rule", model.SeverityError, 3, 1),
		resolved("m-rule"),
		violated("a-rule", model.SeverityWarning, 7),
	)
	flat := FlatIssues(snap)
	want := []struct {
		rule string
		line int
	}{{"a-rule", 7}, {"z-rule", 3}, {"z-rule", 1}}
	if len(flat) != len(want) {
		t.Fatalf("expected %d issues, got %+v", len(want), flat)
	}
	for i, w := range want {
		if flat[i].Rule != w.rule || flat[i].Line != w.line {
			t.Errorf("issue %d = %s:%d, want %s:%d", i, flat[i].Rule, flat[i].Line, w.rule, w.line)
		}
	}
	if got := FlatIssues(nil); got == nil || len(got) != 0 {
		t.Errorf("nil snapshot should give an empty list, got %v", got)
	}
}

func TestResolvedRules(t *testing.T) {
	snap := snapshot("u", resolved("b"), violated("c", model.SeverityError, 1), resolved("a"))
	got := ResolvedRules(snap)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("resolved = %v", got)
	}
}

func TestGroup_CountsAndTotals(t *testing.T) {
	state := &model.GroupState{
		AnalyzedData: []*model.ExtractionResult{extraction("a{}"), extraction("a{}")},
		KnowledgeData: []*model.KnowledgeSnapshot{
			snapshot("p1", violated("x", model.SeverityError, 1, 2), violated("y", model.SeverityWarning, 4), resolved("z")),
			snapshot("p2", resolved("x"), violated("y", model.SeverityWarning, 1), resolved("z")),
		},
	}
	sum := Group("g", state)

	if sum.Group != "g" || len(sum.Pages) != 2 {
		t.Fatalf("summary = %+v", sum)
	}
	p1 := sum.Pages[0]
	if p1.Errors != 2 || p1.Warnings != 1 || len(p1.Resolved) != 1 || len(p1.Violated) != 2 {
		t.Errorf("page 1 = %+v", p1)
	}
	if len(sum.Rules) != 3 {
		t.Fatalf("rules = %+v", sum.Rules)
	}
	// most issues first, ties by name
	if sum.Rules[0].Rule != "x" || sum.Rules[0].Issues != 2 || sum.Rules[0].PagesViolated != 1 || sum.Rules[0].PagesResolved != 1 {
		t.Errorf("first rule = %+v", sum.Rules[0])
	}
	if sum.Rules[1].Rule != "y" || sum.Rules[1].PagesViolated != 2 {
		t.Errorf("second rule = %+v", sum.Rules[1])
	}
	if sum.Rules[2].Rule != "z" || sum.Rules[2].PagesResolved != 2 {
		t.Errorf("third rule = %+v", sum.Rules[2])
	}
}

func TestGroup_Drift(t *testing.T) {
	state := &model.GroupState{
		AnalyzedData: []*model.ExtractionResult{
			extraction("a{color:red}", "b{}"),
			extraction("a{color:red}", "b{}", "c{}\nd{}"),
			extraction("b{}"),
		},
		KnowledgeData: []*model.KnowledgeSnapshot{snapshot("p1"), snapshot("p2"), snapshot("p3")},
	}
	d := Group("g", state).Drift
	if len(d) != 2 {
		t.Fatalf("expected 2 drift entries, got %+v", d)
	}
	if d[0].From != "p1" || d[0].To != "p2" || d[0].Inserted != 2 || d[0].Deleted != 0 {
		t.Errorf("first drift = %+v", d[0])
	}
	if d[1].Inserted != 0 || d[1].Deleted != 3 {
		t.Errorf("second drift = %+v", d[1])
	}
}

func TestGroup_Nil(t *testing.T) {
	sum := Group("g", nil)
	if sum.Pages == nil || sum.Rules == nil || sum.Drift == nil {
		t.Errorf("nil state should give empty lists: %+v", sum)
	}
}
