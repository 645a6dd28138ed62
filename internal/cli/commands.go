package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/har"
	"github.com/gosimple/slug"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/raysh454/harstyle/internal/app"
	"github.com/raysh454/harstyle/internal/capture"
	"github.com/raysh454/harstyle/internal/config"
	"github.com/raysh454/harstyle/internal/enumerator"
	"github.com/raysh454/harstyle/internal/model"
	"github.com/raysh454/harstyle/internal/plugin"
	"github.com/raysh454/harstyle/internal/recorder"
	"github.com/raysh454/harstyle/internal/report"
	"github.com/raysh454/harstyle/internal/server"
)

const shutdownTimeout = 15 * time.Second

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func input(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

// firstURL is the request URL of the first entry carrying one.
func firstURL(log *har.Log) string {
	for _, e := range log.Entries {
		if e != nil && e.Request != nil && e.Request.URL != "" {
			return e.Request.URL
		}
	}
	return ""
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	env := EnvFromContext(ctx)
	if cmd.NArg() == 0 {
		return errors.New("nothing to analyze, no HAR files given")
	}
	a, err := env.Application(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(output(cmd))

	var errs error
	for _, path := range cmd.Args().Slice() {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := analyzeFile(ctx, a, path, cmd.String("url"), cmd.String("group"))
		if err != nil {
			env.Log.Error("Unable to analyze capture", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("unable to write result: %w", err)
		}
	}
	if err := summarize(ctx, a, enc, cmd.Bool("report")); err != nil {
		return err
	}
	return errs
}

func analyzeFile(ctx context.Context, a *app.Application, path, pageURL, group string) (plugin.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plugin.Message{}, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	log, err := capture.Decode(data)
	if err != nil {
		return plugin.Message{}, fmt.Errorf("'%s': %w", path, err)
	}
	if pageURL == "" {
		if pageURL = firstURL(log); pageURL == "" {
			return plugin.Message{}, fmt.Errorf("'%s': no request carries a URL, use --url", path)
		}
	}
	res, err := a.Analyzer.AnalyzeLog(ctx, pageURL, group, log)
	if err != nil {
		return plugin.Message{}, err
	}
	return plugin.PageSummary(res)
}

// summarize writes one summary message per group and, with withReport, the
// group reports after them.
func summarize(ctx context.Context, a *app.Application, enc *json.Encoder, withReport bool) error {
	p := plugin.New(a.Analyzer, a.Logger)
	replies, err := p.ProcessMessage(ctx, plugin.Message{Type: plugin.TypeSummarize})
	if err != nil {
		return err
	}
	for _, reply := range replies {
		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("unable to write summary: %w", err)
		}
	}
	if !withReport {
		return nil
	}
	for _, group := range a.Analyzer.Groups() {
		state, ok := a.Analyzer.Group(group)
		if !ok {
			continue
		}
		if err := enc.Encode(report.Group(group, state)); err != nil {
			return fmt.Errorf("unable to write report: %w", err)
		}
	}
	return nil
}

// runPipe answers a stream of host messages. A page that fails is logged
// and answered with an error reply; malformed input ends the stream.
func runPipe(ctx context.Context, cmd *cli.Command) error {
	env := EnvFromContext(ctx)
	a, err := env.Application(ctx)
	if err != nil {
		return err
	}
	p := plugin.New(a.Analyzer, a.Logger)

	dec := json.NewDecoder(input(cmd))
	enc := json.NewEncoder(output(cmd))
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var msg plugin.Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				env.Log.Debug("Input closed", zap.Int("messages", n-1))
				return nil
			}
			return fmt.Errorf("unable to decode message %d: %w", n, err)
		}
		replies, err := p.ProcessMessage(ctx, msg)
		if err != nil {
			env.Log.Warn("Message failed", zap.Int("message", n), zap.String("type", msg.Type), zap.Error(err))
			replies = []plugin.Message{plugin.ErrorReply(msg, err)}
		}
		for _, reply := range replies {
			if err := enc.Encode(reply); err != nil {
				return fmt.Errorf("unable to write reply: %w", err)
			}
		}
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := EnvFromContext(ctx)
	a, err := env.Application(ctx)
	if err != nil {
		return err
	}
	addr := cmd.String("listen")
	if addr == "" {
		addr = env.Cfg.Server.ListenAddr
	}
	s, err := server.NewServer(server.Config{ListenAddr: addr, Analyzer: a.Analyzer, Logger: a.Logger})
	if err != nil {
		return err
	}
	srv := s.HTTPServer()

	serveErr := make(chan error, 1)
	go func() {
		env.Log.Info("Listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	env.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runRecord(ctx context.Context, cmd *cli.Command) error {
	env := EnvFromContext(ctx)
	if cmd.NArg() == 0 {
		return errors.New("nothing to record, no URLs given")
	}
	a, err := env.Application(ctx)
	if err != nil {
		return err
	}
	saveDir := cmd.String("save")
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o755); err != nil {
			return fmt.Errorf("unable to create '%s': %w", saveDir, err)
		}
	}
	rec := recorder.New(env.Cfg.Recorder, a.Logger)
	enc := json.NewEncoder(output(cmd))

	var (
		errs  error
		saved int
	)
	for _, root := range cmd.Args().Slice() {
		spider, err := enumerator.NewSpider(root, int(cmd.Int("depth")), int(cmd.Int("max-pages")), nil, a.Logger)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for pageURL, ok := spider.Next(); ok; pageURL, ok = spider.Next() {
			doc, err := rec.Record(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				env.Log.Error("Unable to record page", zap.String("url", pageURL), zap.Error(err))
				errs = multierr.Append(errs, err)
				continue
			}
			if saveDir != "" {
				saved++
				if err := saveHAR(filepath.Join(saveDir, captureName(saved, pageURL)), doc); err != nil {
					env.Log.Warn("Unable to save capture", zap.String("url", pageURL), zap.Error(err))
				}
			}
			res, err := a.Analyzer.AnalyzeLog(ctx, pageURL, cmd.String("group"), doc.Log)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			msg, err := plugin.PageSummary(res)
			if err != nil {
				return err
			}
			if err := enc.Encode(msg); err != nil {
				return fmt.Errorf("unable to write result: %w", err)
			}
			if html, ok := pageHTML(res.AnalyzedData, pageURL); ok {
				spider.Visit(pageURL, html)
			}
		}
	}
	if err := summarize(ctx, a, enc, false); err != nil {
		return err
	}
	return errs
}

// pageHTML picks the document of pageURL among the captured HTML responses,
// falling back to the first one after a redirect.
func pageHTML(ext *model.ExtractionResult, pageURL string) (string, bool) {
	if ext == nil || len(ext.HTMLs) == 0 {
		return "", false
	}
	for _, h := range ext.HTMLs {
		if h.URL == pageURL {
			return h.Content, true
		}
	}
	return ext.HTMLs[0].Content, true
}

// captureName is a file name for the n-th saved capture of pageURL.
func captureName(n int, pageURL string) string {
	return fmt.Sprintf("%03d-%s.har", n, slug.Make(pageURL))
}

func saveHAR(path string, doc *har.HAR) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := output(cmd)
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	cfg := env.Cfg
	if cmd.Bool("default") {
		state = "default"
		if cfg, err = config.Default(); err != nil {
			return fmt.Errorf("unable to get configuration: %w", err)
		}
	} else {
		state = "actual"
	}
	if data, err = config.Dump(cfg); err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
