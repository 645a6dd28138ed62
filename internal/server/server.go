package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/harstyle/internal/analyzer"
	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/plugin"
	"github.com/raysh454/harstyle/internal/report"
)

// maxCaptureBytes bounds a single HAR upload.
const maxCaptureBytes = 64 << 20

// Server is the HTTP + WebSocket host for the analyzer.
type Server struct {
	cfg      Config
	analyzer *analyzer.Analyzer
	plugin   *plugin.Plugin
	router   chi.Router
	upgrader websocket.Upgrader
	hub      *hub
	logger   logging.Logger
}

// NewServer creates a Server around cfg.Analyzer.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("server: nil analyzer")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}
	logger = logger.With(logging.Field{Key: "component", Value: "server"})

	s := &Server{
		cfg:      cfg,
		analyzer: cfg.Analyzer,
		plugin:   plugin.New(cfg.Analyzer, logger),
		router:   chi.NewRouter(),
		hub:      newHub(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/messages", s.optionsHandler("POST"))
	r.Options("/pages", s.optionsHandler("POST"))
	r.Options("/summarize", s.optionsHandler("POST"))

	r.Get("/healthz", s.handleHealth)

	// Host protocol
	r.Post("/messages", s.handleMessage)
	r.Post("/pages", s.handleAnalyzePage)
	r.Post("/summarize", s.handleSummarize)

	// Groups
	r.Get("/groups", s.handleListGroups)
	r.Get("/groups/{group}", s.handleGetGroup)
	r.Get("/groups/{group}/report", s.handleGroupReport)
	r.Get("/groups/{group}/issues", s.handleGroupIssues)

	// Page results as they are produced
	r.Get("/ws/results", s.handleResultsWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}
	if r.ContentLength > 0 {
		fields = append(fields, logging.Field{Key: "content_length", Value: r.ContentLength})
	}
	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close releases the analyzer.
func (s *Server) Close() error {
	return s.analyzer.Close()
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.analyzer.Health(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: status})
}

// handleMessage godoc
// @Summary Process one host message
// @Tags host
// @Accept json
// @Produce json
// @Param message body plugin.Message true "Host message"
// @Success 200 {array} plugin.Message
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /messages [post]
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg plugin.Message
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCaptureBytes)).Decode(&msg); err != nil {
		s.logger.Warn("decoding message body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	replies, err := s.plugin.ProcessMessage(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	for _, reply := range replies {
		if reply.Type == plugin.TypePageSummary {
			s.broadcast(reply)
		}
	}
	if replies == nil {
		replies = []plugin.Message{}
	}
	writeJSON(w, http.StatusOK, replies)
}

// handleAnalyzePage godoc
// @Summary Analyze one HAR capture
// @Tags pages
// @Accept json
// @Produce json
// @Param url query string true "Page URL"
// @Param group query string false "Group key, defaults to the registrable domain of url"
// @Param capture body object true "HAR document, bare or inside {\"log\": ...}"
// @Success 201 {object} model.PageResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /pages [post]
func (s *Server) handleAnalyzePage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		s.logger.Warn("analyzing page: missing url query parameter")
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxCaptureBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}

	res, err := s.analyzer.AnalyzePage(r.Context(), url, r.URL.Query().Get("group"), data)
	if err != nil {
		s.logger.Warn("analyzing page", logging.Field{Key: "url", Value: url}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if msg, err := plugin.PageSummary(res); err == nil {
		s.broadcast(msg)
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleSummarize godoc
// @Summary Summarize every group
// @Tags host
// @Produce json
// @Success 200 {array} plugin.Message
// @Router /summarize [post]
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	replies, err := s.plugin.ProcessMessage(r.Context(), plugin.Message{Type: plugin.TypeSummarize})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("summarized groups", logging.Field{Key: "count", Value: len(replies)})
	writeJSON(w, http.StatusOK, replies)
}

// handleListGroups godoc
// @Summary List group keys
// @Tags groups
// @Produce json
// @Success 200 {object} GroupsResponse
// @Router /groups [get]
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: s.analyzer.Groups()})
}

// handleGetGroup godoc
// @Summary Accumulated state of one group
// @Tags groups
// @Produce json
// @Param group path string true "Group key"
// @Success 200 {object} model.GroupState
// @Failure 404 {object} ErrorResponse
// @Router /groups/{group} [get]
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	state, ok := s.analyzer.Group(group)
	if !ok {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleGroupReport godoc
// @Summary Per-page counts, per-rule totals and style drift of one group
// @Tags groups
// @Produce json
// @Param group path string true "Group key"
// @Success 200 {object} report.GroupSummary
// @Failure 404 {object} ErrorResponse
// @Router /groups/{group}/report [get]
func (s *Server) handleGroupReport(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	state, ok := s.analyzer.Group(group)
	if !ok {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, report.Group(group, state))
}

// handleGroupIssues godoc
// @Summary Flat issue lists of every page of one group
// @Tags groups
// @Produce json
// @Param group path string true "Group key"
// @Success 200 {array} PageIssues
// @Failure 404 {object} ErrorResponse
// @Router /groups/{group}/issues [get]
func (s *Server) handleGroupIssues(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	state, ok := s.analyzer.Group(group)
	if !ok {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	out := make([]PageIssues, 0, len(state.KnowledgeData))
	for _, snap := range state.KnowledgeData {
		out = append(out, PageIssues{
			URL:      snap.URL,
			Issues:   report.FlatIssues(snap),
			Resolved: report.ResolvedRules(snap),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// WebSockets

func (s *Server) broadcast(msg plugin.Message) {
	if err := s.hub.publish(msg); err != nil {
		s.logger.Warn("broadcasting result", logging.Field{Key: "error", Value: err.Error()})
	}
}

func (s *Server) handleResultsWS(w http.ResponseWriter, r *http.Request) {
	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()
	s.logger.Info("results subscriber connected", logging.Field{Key: "subscribers", Value: s.hub.count()})

	// the read loop only notices the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
