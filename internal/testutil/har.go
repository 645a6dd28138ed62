package testutil

import (
	"encoding/json"
)

// HAREntry describes one captured exchange for BuildHAR. Zero Status and
// Size default to 200 and len(Text); use -1 to force a zero value.
type HAREntry struct {
	URL      string
	MimeType string
	Text     string
	Status   int
	Size     int
	Encoding string
}

// HTML is a shorthand for an eligible text/html entry.
func HTML(url, body string) HAREntry {
	return HAREntry{URL: url, MimeType: "text/html; charset=utf-8", Text: body}
}

// CSS is a shorthand for an eligible text/css entry.
func CSS(url, body string) HAREntry {
	return HAREntry{URL: url, MimeType: "text/css", Text: body}
}

// BuildHAR renders entries as a HAR document, optionally inside the
// {"log": ...} envelope.
func BuildHAR(wrapped bool, entries ...HAREntry) []byte {
	list := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		status := e.Status
		switch status {
		case 0:
			status = 200
		case -1:
			status = 0
		}
		size := e.Size
		switch size {
		case 0:
			size = len(e.Text)
		case -1:
			size = 0
		}
		content := map[string]any{
			"size":     size,
			"mimeType": e.MimeType,
			"text":     e.Text,
		}
		if e.Encoding != "" {
			content["encoding"] = e.Encoding
		}
		list = append(list, map[string]any{
			"startedDateTime": "2026-01-02T10:00:00.000Z",
			"time":            12.5,
			"request": map[string]any{
				"method":      "GET",
				"url":         e.URL,
				"httpVersion": "HTTP/1.1",
				"headers":     []any{},
				"queryString": []any{},
				"cookies":     []any{},
				"headersSize": -1,
				"bodySize":    0,
			},
			"response": map[string]any{
				"status":      status,
				"statusText":  "OK",
				"httpVersion": "HTTP/1.1",
				"headers":     []any{},
				"cookies":     []any{},
				"content":     content,
				"redirectURL": "",
				"headersSize": -1,
				"bodySize":    size,
			},
			"cache":   map[string]any{},
			"timings": map[string]any{"send": 0, "wait": 10, "receive": 2.5},
		})
	}

	log := map[string]any{
		"version": "1.2",
		"creator": map[string]any{"name": "harstyle-test", "version": "1"},
		"entries": list,
	}
	var doc any = log
	if wrapped {
		doc = map[string]any{"log": log}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return data
}
