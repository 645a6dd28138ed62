// Package enumerator discovers the pages of a site breadth first from the
// HTML of pages already loaded.
package enumerator

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/raysh454/harstyle/internal/harvester"
	"github.com/raysh454/harstyle/internal/logging"
)

// Spider keeps the frontier of a crawl. It does not fetch anything: the
// caller loads each page returned by Next and hands its HTML to Visit.
// A Spider is not safe for concurrent use.
type Spider struct {
	MaxDepth int
	MaxPages int

	site    string
	depth   map[string]int
	results []string
	next    int
	parser  harvester.Parser
	logger  logging.Logger
}

// NewSpider starts a crawl at root. maxPages <= 0 means no page limit. A nil
// parser selects goquery.
func NewSpider(root string, maxDepth, maxPages int, parser harvester.Parser, logger logging.Logger) (*Spider, error) {
	u, err := normalize(nil, root)
	if err != nil {
		return nil, fmt.Errorf("enumerator: root %q: %w", root, err)
	}
	if parser == nil {
		parser = harvester.GoqueryParser{}
	}
	return &Spider{
		MaxDepth: maxDepth,
		MaxPages: maxPages,
		site:     siteOf(u),
		depth:    map[string]int{u.String(): 0},
		results:  []string{u.String()},
		parser:   parser,
		logger:   logger.With(logging.Field{Key: "component", Value: "enumerator"}),
	}, nil
}

// Next returns the next page to load, in discovery order.
func (s *Spider) Next() (string, bool) {
	if s.next >= len(s.results) {
		return "", false
	}
	if s.MaxPages > 0 && s.next >= s.MaxPages {
		return "", false
	}
	page := s.results[s.next]
	s.next++
	return page, true
}

// Visit extracts the links of a loaded page and queues the same-site ones
// not seen yet. It returns how many were queued.
func (s *Spider) Visit(pageURL, html string) int {
	d, ok := s.depth[pageURL]
	if !ok || d >= s.MaxDepth {
		return 0
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}
	doc, err := s.parser.Parse(html)
	if err != nil {
		s.logger.Warn("couldn't parse page", logging.Field{Key: "url", Value: pageURL}, logging.Field{Key: "error", Value: err.Error()})
		return 0
	}

	added := 0
	for _, el := range doc.FindAll("a[href]") {
		href, _ := doc.Attribute(el, "href")
		u, err := normalize(base, href)
		if err != nil {
			s.logger.Debug("couldn't resolve link",
				logging.Field{Key: "href", Value: href},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		if siteOf(u) != s.site {
			continue
		}
		link := u.String()
		if _, seen := s.depth[link]; seen {
			continue
		}
		s.depth[link] = d + 1
		s.results = append(s.results, link)
		added++
	}
	return added
}

// Results lists every discovered page, in discovery order.
func (s *Spider) Results() []string {
	return append([]string(nil), s.results...)
}

func (s *Spider) Depth(page string) (int, bool) {
	d, ok := s.depth[page]
	return d, ok
}

// normalize resolves ref against base, keeps http(s) only and drops the
// fragment.
func normalize(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

func siteOf(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if site, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return site
	}
	return host
}
