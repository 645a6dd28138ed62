package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raysh454/harstyle/internal/analyzer"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/model"
	"github.com/raysh454/harstyle/internal/plugin"
	"github.com/raysh454/harstyle/internal/report"
	"github.com/raysh454/harstyle/internal/server"
	"github.com/raysh454/harstyle/internal/testutil"
)

const pageHTML = `<html><head><style>.a{color:red}</style></head><body><div style="color:red">x</div><p>{}</p></body></html>`

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Ruleset.Rules = map[string]any{
		"color-no-duplicate-values": true,
		"block-no-empty":            true,
	}
	logger := &testutil.DummyLogger{}
	a, err := analyzer.New(cfg, nil, nil, logger)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	s, err := server.NewServer(server.Config{ListenAddr: ":0", Analyzer: a, Logger: logger})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func postPage(t *testing.T, s http.Handler, pageURL, group string) *httptest.ResponseRecorder {
	t.Helper()
	q := url.Values{"url": {pageURL}}
	if group != "" {
		q.Set("group", group)
	}
	capture := string(testutil.BuildHAR(true, testutil.HTML(pageURL, pageHTML)))
	return doJSON(t, s, "POST", "/pages?"+q.Encode(), capture)
}

// ─── System ────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/healthz", "")
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body server.HealthResponse
	decodeJSON(t, rec, &body)
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
}

func TestServer_SwaggerDoc(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]any
	decodeJSON(t, rec, &doc)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/pages"]; !ok {
		t.Errorf("swagger doc misses /pages: %v", doc)
	}
}

// ─── Pages ─────────────────────────────────────────────────────────────

func TestServer_AnalyzePage(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := postPage(t, s, "https://www.example.com/", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var res model.PageResult
	decodeJSON(t, rec, &res)
	if res.Group != "example.com" {
		t.Errorf("group = %q", res.Group)
	}
	dup := res.KnowledgeData.Issues["color-no-duplicate-values"]
	if dup == nil || len(dup.SubIssues) != 1 || dup.SubIssues[0].URL != "https://www.example.com/" {
		t.Errorf("duplicate color bucket = %+v", dup)
	}
}

func TestServer_AnalyzePage_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	if rec := doJSON(t, s, "POST", "/pages", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing url: expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, s, "POST", "/pages?url=https://x.example/", `{"log":{}}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing entries: expected 422, got %d", rec.Code)
	}
}

// ─── Host messages ─────────────────────────────────────────────────────

func TestServer_Messages(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/messages", `{"type":"sitespeedio.setup"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var replies []plugin.Message
	decodeJSON(t, rec, &replies)
	if len(replies) != 1 || replies[0].Type != plugin.TypeBrowserSetup {
		t.Errorf("replies = %+v", replies)
	}

	msg, _ := json.Marshal(plugin.Message{
		Type:  plugin.TypeHAR,
		URL:   "https://example.com/",
		Group: "site",
		Data:  testutil.BuildHAR(false, testutil.HTML("https://example.com/", pageHTML)),
	})
	rec = doJSON(t, s, "POST", "/messages", string(msg))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeJSON(t, rec, &replies)
	if len(replies) != 1 || replies[0].Type != plugin.TypePageSummary || replies[0].Group != "site" {
		t.Errorf("replies = %+v", replies)
	}

	if rec := doJSON(t, s, "POST", "/messages", `not-json`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := doJSON(t, s, "POST", "/messages", `{"type":"browsertime.har","url":"u","data":{"log":{}}}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestServer_Summarize(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	postPage(t, s, "https://b.example/1", "b")
	postPage(t, s, "https://a.example/1", "a")
	postPage(t, s, "https://b.example/2", "b")

	rec := doJSON(t, s, "POST", "/summarize", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var replies []plugin.Message
	decodeJSON(t, rec, &replies)
	if len(replies) != 2 || replies[0].Group != "a" || replies[1].Group != "b" {
		t.Fatalf("replies = %+v", replies)
	}
	var state model.GroupState
	if err := json.Unmarshal(replies[1].Data, &state); err != nil {
		t.Fatal(err)
	}
	if len(state.KnowledgeData) != 2 {
		t.Errorf("group b holds %d pages", len(state.KnowledgeData))
	}
}

// ─── Groups ────────────────────────────────────────────────────────────

func TestServer_Groups(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	postPage(t, s, "https://example.com/1", "site")
	postPage(t, s, "https://example.com/2", "site")

	rec := doJSON(t, s, "GET", "/groups", "")
	var groups server.GroupsResponse
	decodeJSON(t, rec, &groups)
	if len(groups.Groups) != 1 || groups.Groups[0] != "site" {
		t.Fatalf("groups = %+v", groups)
	}

	rec = doJSON(t, s, "GET", "/groups/site", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state model.GroupState
	decodeJSON(t, rec, &state)
	if len(state.AnalyzedData) != 2 || len(state.KnowledgeData) != 2 {
		t.Errorf("state holds %d/%d", len(state.AnalyzedData), len(state.KnowledgeData))
	}

	rec = doJSON(t, s, "GET", "/groups/site/report", "")
	var sum report.GroupSummary
	decodeJSON(t, rec, &sum)
	if len(sum.Pages) != 2 || len(sum.Drift) != 1 || sum.Drift[0].Inserted != 0 {
		t.Errorf("report = %+v", sum)
	}

	rec = doJSON(t, s, "GET", "/groups/site/issues", "")
	var issues []server.PageIssues
	decodeJSON(t, rec, &issues)
	if len(issues) != 2 || len(issues[0].Issues) != 1 || len(issues[0].Resolved) != 1 || issues[0].Resolved[0] != "block-no-empty" {
		t.Errorf("issues = %+v", issues)
	}

	for _, path := range []string{"/groups/nope", "/groups/nope/report", "/groups/nope/issues"} {
		if rec := doJSON(t, s, "GET", path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestServer_ResultsWS(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/results"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	capture := testutil.BuildHAR(true, testutil.HTML("https://example.com/", pageHTML))
	resp, err := http.Post(ts.URL+"/pages?url="+url.QueryEscape("https://example.com/")+"&group=site", "application/json", bytes.NewReader(capture))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg plugin.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != plugin.TypePageSummary || msg.URL != "https://example.com/" || msg.Group != "site" {
		t.Errorf("message = %+v", msg)
	}
}

func TestNewServer_RequiresAnalyzer(t *testing.T) {
	t.Parallel()
	if _, err := server.NewServer(server.Config{}); err == nil {
		t.Fatal("expected an error without analyzer")
	}
}
