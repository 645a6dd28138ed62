// Package recorder captures a page load in headless Chrome and returns it as
// a HAR document.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/har"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/logging"
)

const defaultIdle = 2 * time.Second

// Recorder drives one headless browser tab per Record call.
type Recorder struct {
	idle    time.Duration
	timeout time.Duration
	opts    []chromedp.ExecAllocatorOption
	logger  logging.Logger
}

func New(cfg config.RecorderConfig, logger logging.Logger) *Recorder {
	idle := cfg.Idle
	if idle <= 0 {
		idle = defaultIdle
	}
	return &Recorder{
		idle:    idle,
		timeout: cfg.Timeout,
		opts:    append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...),
		logger:  logger.With(logging.Field{Key: "component", Value: "recorder"}),
	}
}

// waitNetworkIdle feeds network events into j and closes the returned
// channel once no request has been in flight for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration, j *journal) chan struct{} {
	idleChan := make(chan struct{})
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			j.mu.Lock()
			quiet := j.active == 0
			j.mu.Unlock()
			if quiet {
				once.Do(func() { close(idleChan) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		if active, settled := j.handle(ev); settled && active == 0 {
			startTimer()
		}
	})
	return idleChan
}

// Record loads pageURL, waits for the network to go quiet, fetches every
// response body and returns the exchanges as HAR.
func (r *Recorder) Record(ctx context.Context, pageURL string) (*har.HAR, error) {
	if pageURL == "" {
		return nil, errors.New("recorder: empty url")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	j := newJournal()
	idle := waitNetworkIdle(tabCtx, r.idle, j)

	r.logger.Info("recording page", logging.Field{Key: "url", Value: pageURL})
	if err := chromedp.Run(tabCtx, network.Enable(), chromedp.Navigate(pageURL)); err != nil {
		return nil, fmt.Errorf("recorder: navigate %s: %w", pageURL, err)
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return nil, fmt.Errorf("recorder: waiting for %s: %w", pageURL, ctx.Err())
	}

	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, ex := range j.completed() {
			body, err := network.GetResponseBody(ex.id).Do(ctx)
			if err != nil {
				r.logger.Debug("response body unavailable",
					logging.Field{Key: "url", Value: ex.request.URL},
					logging.Field{Key: "error", Value: err})
				continue
			}
			j.setBody(ex, body)
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("recorder: fetching bodies: %w", err)
	}

	doc := j.har()
	r.logger.Info("recorded page",
		logging.Field{Key: "url", Value: pageURL},
		logging.Field{Key: "entries", Value: len(doc.Log.Entries)})
	return doc, nil
}
