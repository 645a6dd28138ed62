package model

// Severity of a rule bucket or diagnostic.
type Severity string

const (
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityResolved Severity = "resolved"
)

// Diagnostic categories.
const (
	CategoryStandard  = "standard"
	CategoryUnknown   = "unknown"
	CategoryTechnical = "technical"
)

// UnknownURL marks a diagnostic whose line could not be mapped to a fragment.
const UnknownURL = "unknown"

// RawDiagnostic is what a rule engine reports. Line and Column are 1-based
// positions in the text that was linted.
type RawDiagnostic struct {
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
}

// Diagnostic is a raw diagnostic attributed to the fragment it came from.
// Line is 1-based and relative to that fragment.
type Diagnostic struct {
	URL      string   `json:"url"`
	Rule     string   `json:"rule"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Text     string   `json:"text"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

// RuleBucket groups every diagnostic of one rule for one page.
type RuleBucket struct {
	Rule      string       `json:"rule"`
	Category  string       `json:"category"`
	Severity  Severity     `json:"severity"`
	SubIssues []Diagnostic `json:"subIssues"`
}

// KnowledgeSnapshot is the per-page report of rule compliance.
type KnowledgeSnapshot struct {
	URL    string                 `json:"url"`
	Group  string                 `json:"group"`
	Issues map[string]*RuleBucket `json:"issues"`
}

// GroupState is the positional history of one group.
type GroupState struct {
	AnalyzedData  []*ExtractionResult  `json:"analyzedData"`
	KnowledgeData []*KnowledgeSnapshot `json:"knowledgeData"`
}

// NewGroupState returns an empty state with non-nil histories.
func NewGroupState() *GroupState {
	return &GroupState{
		AnalyzedData:  []*ExtractionResult{},
		KnowledgeData: []*KnowledgeSnapshot{},
	}
}

// Clone returns a copy of the history slices. Entries are shared; they are
// never mutated after being recorded.
func (g *GroupState) Clone() *GroupState {
	if g == nil {
		return nil
	}
	return &GroupState{
		AnalyzedData:  append([]*ExtractionResult{}, g.AnalyzedData...),
		KnowledgeData: append([]*KnowledgeSnapshot{}, g.KnowledgeData...),
	}
}

// PageResult is emitted to the host after each page. ID, Version and
// Dependencies are optional envelope fields.
type PageResult struct {
	ID            string             `json:"id,omitempty"`
	URL           string             `json:"url"`
	Group         string             `json:"group"`
	Version       string             `json:"version,omitempty"`
	Dependencies  map[string]string  `json:"dependencies,omitempty"`
	AnalyzedData  *ExtractionResult  `json:"analyzedData"`
	KnowledgeData *KnowledgeSnapshot `json:"knowledgeData"`
}
