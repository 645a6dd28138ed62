package plugin_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/raysh454/harstyle/internal/analyzer"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/model"
	"github.com/raysh454/harstyle/internal/plugin"
	"github.com/raysh454/harstyle/internal/testutil"
)

func newPlugin(t *testing.T) *plugin.Plugin {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	a, err := analyzer.New(cfg, nil, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatal(err)
	}
	return plugin.New(a, &testutil.DummyLogger{})
}

func harMessage(url, group string) plugin.Message {
	return plugin.Message{
		Type:  plugin.TypeHAR,
		URL:   url,
		Group: group,
		Data:  testutil.BuildHAR(true, testutil.HTML(url, `<style>.a{color:red}</style><b style="color:red">x</b>`)),
	}
}

func TestProcessMessage_Setup(t *testing.T) {
	out, err := newPlugin(t).ProcessMessage(context.Background(), plugin.Message{Type: plugin.TypeSetup})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Type != "browsertime.setup" {
		t.Errorf("replies = %+v", out)
	}
}

func TestProcessMessage_HARThenSummarize(t *testing.T) {
	p := newPlugin(t)
	ctx := context.Background()

	for _, m := range []plugin.Message{
		harMessage("https://b.example/1", "b"),
		harMessage("https://a.example/1", "a"),
		harMessage("https://b.example/2", "b"),
	} {
		out, err := p.ProcessMessage(ctx, m)
		if err != nil {
			t.Fatalf("%s: %v", m.URL, err)
		}
		if len(out) != 1 || out[0].Type != "webperf-plugin-css.pageSummary" || out[0].URL != m.URL || out[0].Group != m.Group {
			t.Fatalf("replies = %+v", out)
		}
		var res model.PageResult
		if err := json.Unmarshal(out[0].Data, &res); err != nil {
			t.Fatalf("decode page summary: %v", err)
		}
		if res.KnowledgeData == nil || len(res.AnalyzedData.StyleAttributes) != 1 {
			t.Errorf("page summary = %+v", res)
		}
	}

	out, err := p.ProcessMessage(ctx, plugin.Message{Type: plugin.TypeSummarize})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Group != "a" || out[1].Group != "b" {
		t.Fatalf("summary replies = %+v", out)
	}
	var state model.GroupState
	if err := json.Unmarshal(out[1].Data, &state); err != nil {
		t.Fatal(err)
	}
	if len(state.AnalyzedData) != 2 || len(state.KnowledgeData) != 2 {
		t.Errorf("group b holds %d/%d entries", len(state.AnalyzedData), len(state.KnowledgeData))
	}
}

func TestProcessMessage_Errors(t *testing.T) {
	p := newPlugin(t)
	ctx := context.Background()

	if _, err := p.ProcessMessage(ctx, plugin.Message{Type: plugin.TypeHAR, URL: "https://x/"}); err == nil {
		t.Error("empty data should fail")
	}
	bad := plugin.Message{Type: plugin.TypeHAR, URL: "https://x/", Group: "x", Data: json.RawMessage(`{"log":{}}`)}
	if out, err := p.ProcessMessage(ctx, bad); err == nil || out != nil {
		t.Errorf("missing entries should fail without replies, got %v %v", out, err)
	}
	out, err := p.ProcessMessage(ctx, plugin.Message{Type: plugin.TypeSummarize})
	if err != nil || len(out) != 0 {
		t.Errorf("failed pages must not create groups: %+v %v", out, err)
	}
}

func TestProcessMessage_IgnoresUnknown(t *testing.T) {
	out, err := newPlugin(t).ProcessMessage(context.Background(), plugin.Message{Type: "coach.summary"})
	if err != nil || out != nil {
		t.Errorf("unknown type should be ignored, got %v %v", out, err)
	}
}

func TestErrorReply(t *testing.T) {
	msg := plugin.ErrorReply(plugin.Message{Type: plugin.TypeHAR, URL: "https://example.com/", Group: "site"}, errors.New("boom"))
	if msg.Type != plugin.TypeError || msg.URL != "https://example.com/" || msg.Group != "site" {
		t.Fatalf("reply = %+v", msg)
	}
	var payload plugin.ErrorPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Type != plugin.TypeHAR || payload.Error != "boom" {
		t.Errorf("payload = %+v", payload)
	}
}
