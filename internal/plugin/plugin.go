// Package plugin speaks the host's message protocol: it routes incoming
// messages to the analyzer and answers with the messages the host expects.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raysh454/harstyle/internal/analyzer"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
)

// Message types.
const (
	TypeSetup        = "sitespeedio.setup"
	TypeBrowserSetup = "browsertime.setup"
	TypeHAR          = "browsertime.har"
	TypeSummarize    = "sitespeedio.summarize"
	TypePageSummary  = model.ToolName + ".pageSummary"
	TypeSummary      = model.ToolName + ".summary"
	TypeError        = model.ToolName + ".error"
)

// Message is one envelope on the host queue.
type Message struct {
	Type  string          `json:"type"`
	URL   string          `json:"url,omitempty"`
	Group string          `json:"group,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Plugin adapts an Analyzer to the host queue.
type Plugin struct {
	analyzer *analyzer.Analyzer
	logger   logging.Logger
}

func New(a *analyzer.Analyzer, logger logging.Logger) *Plugin {
	return &Plugin{
		analyzer: a,
		logger:   logger.With(logging.Field{Key: "component", Value: "plugin"}),
	}
}

// PageSummary wraps one page result in its reply envelope.
func PageSummary(res *model.PageResult) (Message, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return Message{}, fmt.Errorf("encode page summary: %w", err)
	}
	return Message{Type: TypePageSummary, URL: res.URL, Group: res.Group, Data: data}, nil
}

// ErrorPayload is the data of a TypeError reply.
type ErrorPayload struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ErrorReply reports a failed message back to the host, keeping its url
// and group so the host can match it to the page.
func ErrorReply(msg Message, err error) Message {
	data, _ := json.Marshal(ErrorPayload{Type: msg.Type, Error: err.Error()})
	return Message{Type: TypeError, URL: msg.URL, Group: msg.Group, Data: data}
}

// ProcessMessage handles one message and returns the replies to send, in
// order. Unknown types are ignored. A failing page returns an error and no
// replies; the store is left as it was.
func (p *Plugin) ProcessMessage(ctx context.Context, msg Message) ([]Message, error) {
	switch msg.Type {
	case TypeSetup:
		return []Message{{Type: TypeBrowserSetup}}, nil

	case TypeHAR:
		if len(msg.Data) == 0 {
			return nil, fmt.Errorf("%s for %s: empty data", msg.Type, msg.URL)
		}
		res, err := p.analyzer.AnalyzePage(ctx, msg.URL, msg.Group, msg.Data)
		if err != nil {
			p.logger.Error("page analysis failed",
				logging.Field{Key: "url", Value: msg.URL},
				logging.Field{Key: "error", Value: err})
			return nil, err
		}
		reply, err := PageSummary(res)
		if err != nil {
			return nil, err
		}
		return []Message{reply}, nil

	case TypeSummarize:
		summary := p.analyzer.Summarize()
		out := make([]Message, 0, len(summary))
		for _, group := range p.analyzer.Groups() {
			state, ok := summary[group]
			if !ok {
				continue
			}
			data, err := json.Marshal(state)
			if err != nil {
				return nil, fmt.Errorf("encode summary of %s: %w", group, err)
			}
			out = append(out, Message{Type: TypeSummary, Group: group, Data: data})
		}
		p.logger.Info("summarized", logging.Field{Key: "groups", Value: len(out)})
		return out, nil
	}

	p.logger.Debug("ignoring message", logging.Field{Key: "type", Value: msg.Type})
	return nil, nil
}
