package harvester

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Element is an opaque handle to one DOM node owned by a Document.
type Element any

// Document is the narrow DOM capability the harvester needs.
type Document interface {
	// FindAll returns every element matching selector in document order.
	FindAll(selector string) []Element
	TextContent(el Element) string
	Attribute(el Element, name string) (string, bool)
	TagName(el Element) string
}

// Parser turns HTML text into a Document.
type Parser interface {
	Parse(html string) (Document, error)
}

// GoqueryParser is the default Parser, backed by goquery and x/net/html.
// Scripting is off, so <noscript> content is parsed as markup.
type GoqueryParser struct{}

func (GoqueryParser) Parse(text string) (Document, error) {
	root, err := html.ParseWithOptions(strings.NewReader(text), html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &goqueryDocument{doc: goquery.NewDocumentFromNode(root)}, nil
}

type goqueryDocument struct {
	doc *goquery.Document
}

func (d *goqueryDocument) FindAll(selector string) []Element {
	var out []Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

func (d *goqueryDocument) TextContent(el Element) string {
	if s, ok := el.(*goquery.Selection); ok {
		return s.Text()
	}
	return ""
}

func (d *goqueryDocument) Attribute(el Element, name string) (string, bool) {
	if s, ok := el.(*goquery.Selection); ok {
		return s.Attr(name)
	}
	return "", false
}

func (d *goqueryDocument) TagName(el Element) string {
	if s, ok := el.(*goquery.Selection); ok {
		return goquery.NodeName(s)
	}
	return ""
}
