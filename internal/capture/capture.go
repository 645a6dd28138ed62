// Package capture turns a HAR document into classified content fragments.
package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/har"

	"github.com/raysh454/harstyle/internal/model"
)

// ErrNoEntries is returned for a capture without an entries member. The
// pipeline cannot recover from it; the page fails.
var ErrNoEntries = errors.New("capture: document has no entries")

// Decode parses a HAR document, accepting both the {"log": {...}} envelope
// and a bare log object.
func Decode(data []byte) (*har.Log, error) {
	var envelope struct {
		Log     json.RawMessage `json:"log"`
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}

	body := data
	if len(envelope.Log) > 0 && !isNull(envelope.Log) {
		body = envelope.Log
		envelope.Entries = nil
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode capture log: %w", err)
		}
	}
	if len(envelope.Entries) == 0 || isNull(envelope.Entries) {
		return nil, ErrNoEntries
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode capture log: %w", err)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(fields["entries"], &raw); err != nil {
		return nil, fmt.Errorf("decode capture entries: %w", err)
	}
	delete(fields, "entries")

	// log metadata is informational only; a malformed creator or page list
	// does not cost the entries
	log := &har.Log{}
	if meta, err := json.Marshal(fields); err == nil {
		_ = json.Unmarshal(meta, log)
	}

	// a malformed entry is skipped and takes no index slot
	log.Entries = make([]*har.Entry, 0, len(raw))
	for _, r := range raw {
		var e har.Entry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}
		log.Entries = append(log.Entries, &e)
	}
	return log, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Eligible reports whether an entry carries usable content: a response with
// non-empty text, a MIME type, a positive size and a status.
func Eligible(e *har.Entry) bool {
	if e == nil || e.Response == nil || e.Response.Content == nil {
		return false
	}
	c := e.Response.Content
	return c.Text != "" && c.MimeType != "" && c.Size > 0 && e.Response.Status != 0
}

// Extract classifies the eligible entries of log. Index counts eligible
// entries only, starting at 1; entries of other MIME types still take a
// slot. pageURL stands in for entries whose request carries no URL.
func Extract(log *har.Log, pageURL string) *model.ExtractionResult {
	out := model.NewExtractionResult()
	if log == nil {
		return out
	}

	index := 1
	for _, entry := range log.Entries {
		if !Eligible(entry) {
			continue
		}
		current := index
		index++

		mime := strings.ToLower(entry.Response.Content.MimeType)
		isHTML := strings.Contains(mime, "html")
		isCSS := !isHTML && strings.Contains(mime, "css")
		if !isHTML && !isCSS {
			continue
		}

		text, ok := contentText(entry.Response.Content)
		if !ok {
			continue
		}
		reqURL := pageURL
		if entry.Request != nil && entry.Request.URL != "" {
			reqURL = entry.Request.URL
		}

		frag := model.Fragment{URL: reqURL, Content: text, Index: current}
		if isHTML {
			out.HTMLs = append(out.HTMLs, frag)
		} else {
			out.StyleFiles = append(out.StyleFiles, frag)
			out.AllStyles = append(out.AllStyles, frag)
		}
	}
	return out
}

// contentText returns the body text, decoding base64 bodies.
func contentText(c *har.Content) (string, bool) {
	if !strings.EqualFold(c.Encoding, "base64") {
		return c.Text, true
	}
	raw, err := base64.StdEncoding.DecodeString(c.Text)
	if err != nil {
		return "", false
	}
	return string(raw), len(raw) > 0
}
