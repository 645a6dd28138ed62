package recorder

import (
	"encoding/json"
	"testing"

	"github.com/chromedp/cdproto/network"

	"github.com/raysh454/harstyle/internal/capture"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/testutil"
)

func sent(id, url string) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Request:   &network.Request{URL: url, Method: "GET", Headers: network.Headers{"Accept": "*/*"}},
	}
}

func received(id, mime string) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Response:  &network.Response{Status: 200, StatusText: "OK", MimeType: mime, Protocol: "h2"},
	}
}

func TestJournal_TracksInFlight(t *testing.T) {
	j := newJournal()

	if active, settled := j.handle(sent("1", "https://example.com/")); active != 1 || settled {
		t.Fatalf("after first request: %d %v", active, settled)
	}
	j.handle(sent("2", "https://example.com/a.css"))
	// redirect hop keeps the same id
	if active, _ := j.handle(sent("2", "https://cdn.example.com/a.css")); active != 2 {
		t.Fatalf("redirect must not count twice, active=%d", active)
	}
	j.handle(received("1", "text/html"))
	if active, settled := j.handle(&network.EventLoadingFinished{RequestID: "1"}); active != 1 || !settled {
		t.Fatalf("after first finish: %d %v", active, settled)
	}
	if active, settled := j.handle(&network.EventLoadingFailed{RequestID: "2"}); active != 0 || !settled {
		t.Fatalf("after failure: %d %v", active, settled)
	}
	// duplicate completion is ignored
	if active, settled := j.handle(&network.EventLoadingFinished{RequestID: "2"}); active != 0 || settled {
		t.Fatalf("duplicate completion: %d %v", active, settled)
	}

	done := j.completed()
	if len(done) != 1 || done[0].id != "1" {
		t.Fatalf("completed = %+v", done)
	}
	if j.order[1].request.URL != "https://cdn.example.com/a.css" {
		t.Errorf("redirect should keep the final url, got %s", j.order[1].request.URL)
	}
}

func TestJournal_HARFeedsExtraction(t *testing.T) {
	j := newJournal()
	j.handle(sent("1", "https://example.com/"))
	j.handle(sent("2", "https://example.com/site.css"))
	j.handle(sent("3", "https://example.com/logo.png"))
	j.handle(sent("4", "https://example.com/gone.css"))
	j.handle(received("1", "text/html"))
	j.handle(received("2", "text/css"))
	j.handle(received("3", "image/png"))
	for _, id := range []network.RequestID{"1", "2", "3"} {
		j.handle(&network.EventLoadingFinished{RequestID: id})
	}
	j.handle(&network.EventLoadingFailed{RequestID: "4"})

	for _, ex := range j.completed() {
		switch ex.id {
		case "1":
			j.setBody(ex, []byte(`<style>.a{color:red}</style>`))
		case "2":
			j.setBody(ex, []byte(".b{}"))
		case "3":
			j.setBody(ex, []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe})
		}
	}

	doc := j.har()
	if len(doc.Log.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(doc.Log.Entries))
	}
	if enc := doc.Log.Entries[2].Response.Content.Encoding; enc != "base64" {
		t.Errorf("binary body encoding = %q", enc)
	}
	if h := doc.Log.Entries[0].Request.Headers; len(h) != 1 || h[0].Name != "Accept" {
		t.Errorf("request headers = %+v", h)
	}

	// the recorded document goes through the same decoder as uploaded ones
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	log, err := capture.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	res := capture.Extract(log, "https://example.com/")
	if len(res.HTMLs) != 1 || len(res.StyleFiles) != 1 {
		t.Fatalf("extraction = %+v", res)
	}
	if res.StyleFiles[0].Index != 2 {
		t.Errorf("style file index = %d", res.StyleFiles[0].Index)
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(config.RecorderConfig{}, &testutil.DummyLogger{})
	if r.idle != defaultIdle {
		t.Errorf("idle = %v", r.idle)
	}
	if len(r.opts) == 0 {
		t.Error("expected default allocator options")
	}
}
