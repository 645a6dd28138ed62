// Package offsets joins style fragments into one lint input and maps
// diagnostics on the joined text back to the fragment they came from.
package offsets

import (
	"sort"
	"strings"

	"github.com/raysh454/harstyle/internal/model"
)

// LineCount returns the number of newline-delimited lines in s. An empty
// string is one (empty) line.
func LineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

// Join concatenates fragments, each followed by a newline, and records where
// each one starts. Records come out in fragment order and their ranges are
// contiguous: record i+1 starts where record i ends.
func Join(fragments []model.Fragment) (string, []model.OffsetRecord) {
	var sb strings.Builder
	records := make([]model.OffsetRecord, 0, len(fragments))
	line := 0
	for _, f := range fragments {
		n := LineCount(f.Content)
		records = append(records, model.OffsetRecord{
			URL:       f.URL,
			Index:     f.Index,
			StartLine: line,
			LineCount: n,
		})
		sb.WriteString(f.Content)
		sb.WriteByte('\n')
		line += n
	}
	return sb.String(), records
}

// Locate returns the record holding the 0-based joined line.
func Locate(records []model.OffsetRecord, line int) (model.OffsetRecord, bool) {
	i := sort.Search(len(records), func(i int) bool {
		return records[i].End() > line
	})
	if i < len(records) && records[i].Contains(line) {
		return records[i], true
	}
	return model.OffsetRecord{}, false
}

// Attribute maps raw diagnostics (1-based lines in the joined text) onto
// their fragments. Lines become 1-based and fragment-relative. A diagnostic
// outside every record is kept with url and category "unknown".
func Attribute(raw []model.RawDiagnostic, records []model.OffsetRecord) []model.Diagnostic {
	out := make([]model.Diagnostic, 0, len(raw))
	for _, r := range raw {
		d := model.Diagnostic{
			Rule:     r.Rule,
			Severity: r.Severity,
			Text:     r.Text,
			Line:     r.Line,
			Column:   r.Column,
		}
		joined := r.Line - 1
		if rec, ok := Locate(records, joined); ok {
			d.URL = rec.URL
			d.Category = model.CategoryStandard
			d.Line = joined - rec.StartLine + 1
		} else {
			d.URL = model.UnknownURL
			d.Category = model.CategoryUnknown
		}
		out = append(out, d)
	}
	return out
}
