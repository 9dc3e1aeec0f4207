// Package server exposes the curriculum drill-down, progress, and
// assistant HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/drillbook/drillbook/internal/assist"
	"github.com/drillbook/drillbook/internal/catalog"
	"github.com/drillbook/drillbook/internal/generate"
	"github.com/drillbook/drillbook/internal/progress"
	"github.com/drillbook/drillbook/internal/source"
)

const maxBodyBytes = 64 << 10

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires the catalog, content pipeline, assistant, and progress
// stores into an HTTP handler.
type Server struct {
	catalog   *catalog.Catalog
	content   *ContentService
	assistant *assist.Engine
	store     progress.Store
	events    progress.EventLogger
	exchanges assist.ExchangeStore
	tokenHash string
	logger    *slog.Logger
	checks    []HealthChecker
}

// Options carries the collaborators a Server needs.
type Options struct {
	Catalog   *catalog.Catalog
	Content   *ContentService
	Assistant *assist.Engine
	Store     progress.Store
	Events    progress.EventLogger
	Exchanges assist.ExchangeStore
	TokenHash string
	Logger    *slog.Logger
	Readiness []HealthChecker
}

// New creates a Server. Store defaults to an in-memory store; Events to a
// no-op logger; Exchanges to an in-memory exchange store.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = progress.NewMemoryStore()
	}
	if opts.Events == nil {
		opts.Events = progress.NopEventLogger{}
	}
	if opts.Exchanges == nil {
		opts.Exchanges = assist.NewMemoryExchangeStore()
	}
	return &Server{
		catalog:   opts.Catalog,
		content:   opts.Content,
		assistant: opts.Assistant,
		store:     opts.Store,
		events:    opts.Events,
		exchanges: opts.Exchanges,
		tokenHash: opts.TokenHash,
		logger:    opts.Logger,
		checks:    opts.Readiness,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/terms", s.handleTerms)
	mux.HandleFunc("GET /api/terms/{term}/subjects", s.handleSubjects)
	mux.HandleFunc("GET /api/subjects/{code}/units", s.handleUnits)
	mux.HandleFunc("GET /api/subjects/{code}/units/{unit}/topics", s.handleTopics)
	mux.HandleFunc("GET /api/subjects/{code}/units/{unit}/topics/{index}/content", s.handleContent)

	mux.HandleFunc("POST /api/progress", s.requireAuth(s.handleProgress))
	mux.HandleFunc("GET /api/progress/report", s.requireAuth(s.handleProgressReport))
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/exchanges", s.requireAuth(s.handleExchanges))
	mux.HandleFunc("GET /api/drill", s.handleDrill)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "dependency unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleTerms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Terms())
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	subjects, ok := s.catalog.Subjects(term)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown term %q", term))
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	units, ok := s.catalog.Units(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown subject %q", code))
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	unit, err := strconv.Atoi(r.PathValue("unit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unit must be an integer")
		return
	}
	topics, ok := s.catalog.Topics(code, unit)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown unit %s/%d", code, unit))
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	unit, err := strconv.Atoi(r.PathValue("unit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unit must be an integer")
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "topic index must be an integer")
		return
	}

	content, err := s.content.Topic(r.Context(), code, unit, index)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, generate.ErrGenerationFailed) {
		s.logger.Error("content generation failed", "code", code, "unit", unit, "topic", index, "error", err)
		writeError(w, http.StatusBadGateway, "content generation failed")
		return
	}
	if err != nil {
		s.logger.Error("content lookup failed", "code", code, "unit", unit, "topic", index, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := validateJSON(progressValidator, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rec progress.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if _, ok := s.catalog.Topic(rec.SubjectCode, rec.UnitNumber, rec.TopicIndex); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown topic %s/%d/%d", rec.SubjectCode, rec.UnitNumber, rec.TopicIndex))
		return
	}

	if err := s.store.Add(r.Context(), rec); err != nil {
		s.logger.Error("progress persistence failed", "code", rec.SubjectCode, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record progress")
		return
	}

	progress.LogAsync(s.events, s.logger, progress.Event{
		EventType: "topic_completed",
		Data: map[string]any{
			"code":  rec.SubjectCode,
			"unit":  rec.UnitNumber,
			"topic": rec.TopicIndex,
		},
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "progress recorded"})
}

func (s *Server) handleProgressReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := progress.WriteReport(r.Context(), w, s.store, s.catalog); err != nil {
		s.logger.Error("progress report failed", "error", err)
	}
}

type queryPayload struct {
	Topic            string `json:"topic"`
	KnowledgeLevel   string `json:"knowledgeLevel"`
	Subject          string `json:"subject"`
	Reference        string `json:"reference"`
	IncludeResources bool   `json:"includeResources"`
	HasImage         bool   `json:"hasImage"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := validateJSON(queryValidator, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload queryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	answer, err := s.assistant.Answer(r.Context(), source.ContentQuery{
		Topic:            payload.Topic,
		KnowledgeLevel:   source.KnowledgeLevel(payload.KnowledgeLevel),
		Subject:          payload.Subject,
		Reference:        payload.Reference,
		IncludeResources: payload.IncludeResources,
		HasImage:         payload.HasImage,
	})
	if err != nil {
		s.logger.Error("assistant query failed", "topic", payload.Topic, "error", err)
		writeError(w, http.StatusBadGateway, "answer generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "ok",
		"response": answer,
	})
}

const defaultExchangeLimit = 20

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	limit := defaultExchangeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	exchanges, err := s.exchanges.RecentExchanges(r.Context(), limit)
	if err != nil {
		s.logger.Error("exchange listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list exchanges")
		return
	}
	if exchanges == nil {
		exchanges = []assist.Exchange{}
	}
	writeJSON(w, http.StatusOK, exchanges)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
