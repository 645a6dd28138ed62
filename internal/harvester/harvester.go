// Package harvester pulls embedded style sheets and style attributes out of
// captured HTML.
package harvester

import (
	"fmt"

	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
)

// AttributeSelector wraps the declarations of a style attribute so they
// form a standalone, lintable rule.
const AttributeSelector = "#dummy-style-attribute-id"

// Harvester appends <style> blocks and style attributes to an extraction
// result.
type Harvester struct {
	parser Parser
	logger logging.Logger
}

// New creates a Harvester. A nil parser selects goquery.
func New(parser Parser, logger logging.Logger) *Harvester {
	if parser == nil {
		parser = GoqueryParser{}
	}
	return &Harvester{
		parser: parser,
		logger: logger.With(logging.Field{Key: "component", Value: "harvester"}),
	}
}

// Harvest walks every HTML fragment in extraction order and appends, in
// document order, one fragment per <style> element (style-elements) and one
// per element carrying a style attribute (style-attributes). Both also go to
// all-styles.
func (h *Harvester) Harvest(res *model.ExtractionResult) {
	for _, page := range res.HTMLs {
		doc, err := h.parser.Parse(page.Content)
		if err != nil {
			h.logger.Warn("skipping unparsable html",
				logging.Field{Key: "url", Value: page.URL},
				logging.Field{Key: "error", Value: err})
			continue
		}

		attrs := 0
		for _, el := range doc.FindAll("style, [style]") {
			if doc.TagName(el) == "style" {
				frag := model.Fragment{URL: page.URL, Content: doc.TextContent(el), Index: page.Index}
				res.StyleElements = append(res.StyleElements, frag)
				res.AllStyles = append(res.AllStyles, frag)
			}
			if value, ok := doc.Attribute(el, "style"); ok {
				attrs++
				frag := model.Fragment{URL: page.URL, Content: AttributeRule(attrs, value), Index: page.Index}
				res.StyleAttributes = append(res.StyleAttributes, frag)
				res.AllStyles = append(res.AllStyles, frag)
			}
		}
		h.logger.Debug("harvested page",
			logging.Field{Key: "url", Value: page.URL},
			logging.Field{Key: "style_attributes", Value: attrs})
	}
}

// AttributeRule synthesizes the rule for the n-th (1-based) style attribute
// of a page. The first keeps the plain selector; later ones get a suffix so
// rules keyed on selectors do not coalesce them.
func AttributeRule(n int, value string) string {
	sel := AttributeSelector
	if n > 1 {
		sel = fmt.Sprintf("%s-%d", AttributeSelector, n)
	}
	return fmt.Sprintf("%s { %s }", sel, value)
}
