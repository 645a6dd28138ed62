package model

// Fragment is one unit of extracted text: an HTML page, a CSS file, an
// embedded <style> block or a synthesized attribute rule. Index is the
// 1-based position of the originating entry among the eligible entries of
// the capture; fragments harvested from a page inherit the page's index.
type Fragment struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// ExtractionResult holds the classified content of one capture.
type ExtractionResult struct {
	HTMLs           []Fragment `json:"htmls"`
	StyleElements   []Fragment `json:"style-elements"`
	StyleAttributes []Fragment `json:"style-attributes"`
	StyleFiles      []Fragment `json:"style-files"`
	AllStyles       []Fragment `json:"all-styles"`

	// Script buckets are part of the result shape hosts expect but are
	// never filled: scripts are not linted.
	ScriptElements   []Fragment `json:"script-elements"`
	ScriptAttributes []Fragment `json:"script-attributes"`
	ScriptFiles      []Fragment `json:"script-files"`
}

// NewExtractionResult returns a result whose buckets encode as [] rather
// than null.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		HTMLs:           []Fragment{},
		StyleElements:   []Fragment{},
		StyleAttributes: []Fragment{},
		StyleFiles:      []Fragment{},
		AllStyles:       []Fragment{},

		ScriptElements:   []Fragment{},
		ScriptAttributes: []Fragment{},
		ScriptFiles:      []Fragment{},
	}
}

// OffsetRecord describes where a fragment sits inside a joined text.
// StartLine is 0-based; the fragment covers [StartLine, StartLine+LineCount).
type OffsetRecord struct {
	URL       string `json:"url"`
	Index     int    `json:"index"`
	StartLine int    `json:"startLine"`
	LineCount int    `json:"lineCount"`
}

// Contains reports whether the 0-based joined line falls inside the record.
func (o OffsetRecord) Contains(line int) bool {
	return line >= o.StartLine && line < o.StartLine+o.LineCount
}

// End returns the first line after the record.
func (o OffsetRecord) End() int {
	return o.StartLine + o.LineCount
}
