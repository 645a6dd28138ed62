package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raysh454/harstyle/internal/model"
	"github.com/raysh454/harstyle/internal/plugin"
	"github.com/raysh454/harstyle/internal/report"
	"github.com/raysh454/harstyle/internal/testutil"
)

const quietConfig = `
logging:
  console:
    level: none
`

const samplePageHTML = `<html><head><style>.a{}</style></head><body><p style="color:red">x</p></body></html>`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// run executes the root command with stdin and returns the NDJSON lines it
// printed.
func run(t *testing.T, stdin string, args ...string) ([]string, error) {
	t.Helper()
	cfgPath := writeFile(t, "harstyle.yaml", []byte(quietConfig))

	var out bytes.Buffer
	cmd := NewCommand()
	cmd.Reader = strings.NewReader(stdin)
	cmd.Writer = &out
	cmd.ErrWriter = io.Discard

	argv := append([]string{AppName, "--config", cfgPath}, args...)
	err := cmd.Run(ContextWithEnv(context.Background()), argv)

	var lines []string
	sc := bufio.NewScanner(&out)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, err
}

func decodeMessage(t *testing.T, line string) plugin.Message {
	t.Helper()
	var msg plugin.Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return msg
}

func TestPipe_HostConversation(t *testing.T) {
	har, _ := json.Marshal(plugin.Message{
		Type:  plugin.TypeHAR,
		URL:   "https://example.com/",
		Group: "site",
		Data:  testutil.BuildHAR(true, testutil.HTML("https://example.com/", samplePageHTML)),
	})
	stdin := strings.Join([]string{
		`{"type":"sitespeedio.setup"}`,
		string(har),
		`{"type":"something.else"}`,
		`{"type":"sitespeedio.summarize"}`,
	}, "\n")

	lines, err := run(t, stdin, "pipe")
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 replies, got %d: %v", len(lines), lines)
	}
	want := []string{plugin.TypeBrowserSetup, plugin.TypePageSummary, plugin.TypeSummary}
	for i, line := range lines {
		if msg := decodeMessage(t, line); msg.Type != want[i] {
			t.Errorf("reply %d type = %q, want %q", i, msg.Type, want[i])
		}
	}
}

func TestPipe_FailingPageIsReported(t *testing.T) {
	stdin := `{"type":"browsertime.har","url":"https://x.example/","group":"x","data":{"log":{}}}
{"type":"sitespeedio.summarize"}`

	lines, err := run(t, stdin, "pipe")
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	// nothing was recorded, so only the error reply comes back
	if len(lines) != 1 {
		t.Fatalf("expected 1 reply, got %v", lines)
	}
	msg := decodeMessage(t, lines[0])
	if msg.Type != plugin.TypeError || msg.URL != "https://x.example/" || msg.Group != "x" {
		t.Errorf("error reply = %+v", msg)
	}
	var payload plugin.ErrorPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Type != plugin.TypeHAR || payload.Error == "" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestPipe_MalformedInput(t *testing.T) {
	if _, err := run(t, "{not json", "pipe"); err == nil {
		t.Fatal("expected an error for malformed input")
	}
}

func TestAnalyze_FilesAndReport(t *testing.T) {
	first := writeFile(t, "one.har", testutil.BuildHAR(true, testutil.HTML("https://example.com/", samplePageHTML)))
	second := writeFile(t, "two.har", testutil.BuildHAR(false,
		testutil.HTML("https://example.com/b", `<link rel="stylesheet" href="s.css">`),
		testutil.CSS("https://example.com/s.css", "a { color: #ff; }")))

	lines, err := run(t, "", "analyze", "--group", "site", "--report", first, second)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 2 results, 1 summary and 1 report, got %d: %v", len(lines), lines)
	}
	if msg := decodeMessage(t, lines[0]); msg.Type != plugin.TypePageSummary || msg.URL != "https://example.com/" {
		t.Errorf("first result = %+v", msg)
	}
	if msg := decodeMessage(t, lines[1]); msg.URL != "https://example.com/b" || msg.Group != "site" {
		t.Errorf("second result = %+v", msg)
	}
	if msg := decodeMessage(t, lines[2]); msg.Type != plugin.TypeSummary || msg.Group != "site" {
		t.Errorf("summary = %+v", msg)
	}
	var sum report.GroupSummary
	if err := json.Unmarshal([]byte(lines[3]), &sum); err != nil {
		t.Fatal(err)
	}
	if len(sum.Pages) != 2 {
		t.Errorf("report pages = %d", len(sum.Pages))
	}
}

func TestAnalyze_PartialFailure(t *testing.T) {
	good := writeFile(t, "good.har", testutil.BuildHAR(true, testutil.HTML("https://example.com/", samplePageHTML)))
	missing := filepath.Join(t.TempDir(), "missing.har")

	lines, err := run(t, "", "analyze", missing, good)
	if err == nil {
		t.Fatal("expected an error for the missing file")
	}
	if len(lines) != 2 {
		t.Fatalf("good file should still be reported, got %v", lines)
	}
	if msg := decodeMessage(t, lines[1]); msg.Group != "example.com" {
		t.Errorf("default group = %q", msg.Group)
	}
}

func TestAnalyze_NoFiles(t *testing.T) {
	if _, err := run(t, "", "analyze"); err == nil {
		t.Fatal("expected an error without files")
	}
}

func TestDumpConfig(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dump.yaml")
	if _, err := run(t, "", "dumpconfig", "--default", dest); err != nil {
		t.Fatalf("dumpconfig: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("ruleset:")) || !bytes.Contains(data, []byte("harstyle-standard")) {
		t.Errorf("unexpected dump:\n%s", data)
	}

	lines, err := run(t, "", "dumpconfig")
	if err != nil {
		t.Fatalf("dumpconfig to stdout: %v", err)
	}
	// the active configuration carries the quiet console level
	if !strings.Contains(strings.Join(lines, "\n"), "level: none") {
		t.Errorf("actual configuration not dumped: %v", lines)
	}
}

func TestFirstURL(t *testing.T) {
	data := testutil.BuildHAR(false, testutil.CSS("https://cdn.example/a.css", "a{}"))
	lines, err := run(t, "", "analyze", writeFile(t, "css.har", data))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	// no html in the capture, the page is still recorded under the first url
	if msg := decodeMessage(t, lines[0]); msg.URL != "https://cdn.example/a.css" || msg.Group != "cdn.example" {
		t.Errorf("result = %+v", msg)
	}
}

func TestCaptureName(t *testing.T) {
	name := captureName(7, "https://example.com/a/b?c=1")
	if !strings.HasPrefix(name, "007-") || !strings.HasSuffix(name, ".har") {
		t.Errorf("name = %q", name)
	}
	if strings.ContainsAny(name, `/?:`) {
		t.Errorf("name %q is not a plain file name", name)
	}
}

func TestPageHTML(t *testing.T) {
	ext := &model.ExtractionResult{HTMLs: []model.Fragment{
		{URL: "https://example.com/frame", Content: "frame"},
		{URL: "https://example.com/", Content: "page"},
	}}
	if html, ok := pageHTML(ext, "https://example.com/"); !ok || html != "page" {
		t.Errorf("exact match = %q, %v", html, ok)
	}
	if html, ok := pageHTML(ext, "http://example.com/"); !ok || html != "frame" {
		t.Errorf("redirect fallback = %q, %v", html, ok)
	}
	if _, ok := pageHTML(model.NewExtractionResult(), "https://example.com/"); ok {
		t.Error("expected no html")
	}
}
