package recorder

import (
	"encoding/base64"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/har"
	"github.com/chromedp/cdproto/network"

	"github.com/raysh454/harstyle/internal/model"
)

// exchange is one request/response pair seen on the wire.
type exchange struct {
	id       network.RequestID
	seq      int
	started  time.Time
	request  *network.Request
	response *network.Response
	done     bool
	failed   bool
	body     []byte
}

// journal collects network events of one page load. It is fed from the
// chromedp event loop, so every method is safe for concurrent use.
type journal struct {
	mu     sync.Mutex
	byID   map[network.RequestID]*exchange
	order  []*exchange
	active int
}

func newJournal() *journal {
	return &journal{byID: make(map[network.RequestID]*exchange)}
}

// handle records ev and returns the number of requests still in flight and
// whether ev completed one.
func (j *journal) handle(ev any) (active int, settled bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		ex, ok := j.byID[e.RequestID]
		if !ok {
			ex = &exchange{id: e.RequestID, seq: len(j.order)}
			j.byID[e.RequestID] = ex
			j.order = append(j.order, ex)
			j.active++
		}
		// a redirect reuses the id; the final hop wins
		ex.request = e.Request
		if e.WallTime != nil {
			ex.started = e.WallTime.Time()
		}
	case *network.EventResponseReceived:
		if ex, ok := j.byID[e.RequestID]; ok {
			ex.response = e.Response
		}
	case *network.EventLoadingFinished:
		if ex, ok := j.byID[e.RequestID]; ok && !ex.done {
			ex.done = true
			j.active--
			settled = true
		}
	case *network.EventLoadingFailed:
		if ex, ok := j.byID[e.RequestID]; ok && !ex.done {
			ex.done = true
			ex.failed = true
			j.active--
			settled = true
		}
	}
	return j.active, settled
}

// completed returns the exchanges whose body can be fetched, in request
// order.
func (j *journal) completed() []*exchange {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*exchange
	for _, ex := range j.order {
		if ex.done && !ex.failed && ex.response != nil {
			out = append(out, ex)
		}
	}
	return out
}

func (j *journal) setBody(ex *exchange, body []byte) {
	j.mu.Lock()
	ex.body = body
	j.mu.Unlock()
}

// har renders every exchange with a request as a HAR document.
func (j *journal) har() *har.HAR {
	j.mu.Lock()
	defer j.mu.Unlock()

	log := &har.Log{
		Version: "1.2",
		Creator: &har.Creator{Name: model.ToolName, Version: model.ToolVersion},
		Entries: make([]*har.Entry, 0, len(j.order)),
	}
	for _, ex := range j.order {
		if ex.request == nil {
			continue
		}
		log.Entries = append(log.Entries, toEntry(ex))
	}
	return &har.HAR{Log: log}
}

func toEntry(ex *exchange) *har.Entry {
	e := &har.Entry{
		StartedDateTime: ex.started.UTC().Format(time.RFC3339Nano),
		Request: &har.Request{
			Method:      ex.request.Method,
			URL:         ex.request.URL,
			HTTPVersion: "HTTP/1.1",
			Headers:     headerPairs(ex.request.Headers),
			QueryString: []*har.NameValuePair{},
			Cookies:     []*har.Cookie{},
			HeadersSize: -1,
			BodySize:    -1,
		},
		Cache:   &har.Cache{},
		Timings: &har.Timings{Send: 0, Wait: 0, Receive: 0},
	}
	resp := &har.Response{
		HTTPVersion: "HTTP/1.1",
		Headers:     []*har.NameValuePair{},
		Cookies:     []*har.Cookie{},
		Content:     &har.Content{},
		HeadersSize: -1,
		BodySize:    -1,
	}
	if ex.response != nil && !ex.failed {
		resp.Status = ex.response.Status
		resp.StatusText = ex.response.StatusText
		resp.Headers = headerPairs(ex.response.Headers)
		if ex.response.Protocol != "" {
			resp.HTTPVersion = ex.response.Protocol
		}
		resp.Content.MimeType = ex.response.MimeType
		resp.Content.Size = int64(len(ex.body))
		resp.BodySize = int64(len(ex.body))
		if utf8.Valid(ex.body) {
			resp.Content.Text = string(ex.body)
		} else {
			resp.Content.Text = base64.StdEncoding.EncodeToString(ex.body)
			resp.Content.Encoding = "base64"
		}
	}
	e.Response = resp
	return e
}

func headerPairs(h network.Headers) []*har.NameValuePair {
	out := make([]*har.NameValuePair, 0, len(h))
	for name, v := range h {
		value, _ := v.(string)
		out = append(out, &har.NameValuePair{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
