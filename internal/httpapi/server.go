// Package httpapi is the chi HTTP boundary: one question-answering
// endpoint plus health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/logger"
	"github.com/anoguera/cvassist/internal/metrics"
	"github.com/anoguera/cvassist/internal/prompt"
	"github.com/anoguera/cvassist/internal/usecase/chat"
	healthuc "github.com/anoguera/cvassist/internal/usecase/health"
)

// maxHistoryTurns caps how much client-supplied history one request may
// carry, regardless of what the prompt assembler later keeps.
const maxHistoryTurns = 50

// Asker answers one conversation turn.
type Asker interface {
	Ask(ctx context.Context, question string, history []domain.ConversationTurn) (chat.Answer, error)
}

// HealthChecker aggregates component readiness.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the question answering API.
type Server struct {
	chat         Asker
	health       HealthChecker
	logger       *zap.Logger
	contactEmail string
}

// NewServer creates the HTTP API server. contactEmail lands in degraded
// answers so a broken upstream still leaves the visitor a way to reach out.
func NewServer(chatSvc Asker, health HealthChecker, contactEmail string, logger *zap.Logger) *Server {
	return &Server{
		chat:         chatSvc,
		health:       health,
		logger:       logger,
		contactEmail: contactEmail,
	}
}

// Register mounts the API routes on r. Middleware is the caller's
// concern; main owns the chain.
func (s *Server) Register(r chi.Router) {
	r.Post("/ask", s.handleAsk)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// Router builds a self-contained router with the standard middleware
// chain. Convenience for tests and embedding.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())
	s.Register(r)
	return r
}

// requestLogger scopes the server logger to one request so handlers can
// correlate their log lines by request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := s.logger.With(zap.String("request_id", chimiddleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logger.ContextWithLogger(r.Context(), reqLogger)))
	})
}

type askRequest struct {
	Question string        `json:"question"`
	History  []historyTurn `json:"history,omitempty"`
}

type historyTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type sourceItem struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type askResponse struct {
	Answer  string       `json:"answer"`
	Sources []sourceItem `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	log := s.requestLog(r)
	ans, err := s.chat.Ask(r.Context(), question, historyFromRequest(req.History))
	if err != nil {
		s.handleAskError(w, log, err)
		return
	}

	log.Info("turn answered",
		zap.Int("question_chars", len(question)),
		zap.Int("sources", len(ans.Sources)),
	)

	writeJSON(w, http.StatusOK, askResponse{
		Answer:  ans.Text,
		Sources: sourcesFromResult(ans.Sources),
	})
}

// requestLog returns the request-scoped logger when the middleware chain
// installed one, and the server logger otherwise.
func (s *Server) requestLog(r *http.Request) *zap.Logger {
	if log, ok := logger.TryFromContext(r.Context()); ok {
		return log
	}
	return s.logger
}

// handleAskError maps pipeline failures. Upstream hiccups become a 200
// with an apologetic answer so one failed turn does not end the session;
// a model mismatch is a deployment fault and stays a hard 503.
func (s *Server) handleAskError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrModelVersionMismatch),
		errors.Is(err, domain.ErrManifestNotFound):
		log.Error("index not usable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable,
			errorResponse{Error: "the index is not ready, please try again later"})

	case errors.Is(err, domain.ErrGenerationFailed),
		errors.Is(err, domain.ErrEmbeddingProvider),
		errors.Is(err, domain.ErrIndexUnavailable):
		log.Warn("degraded answer", zap.Error(err))
		writeJSON(w, http.StatusOK, askResponse{
			Answer:  s.degradedAnswer(),
			Sources: []sourceItem{},
		})

	case errors.Is(err, context.Canceled):
		// Client went away; nothing to write.

	default:
		log.Error("ask failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) degradedAnswer() string {
	apology := "Sorry, I'm having trouble answering right now. Please try again in a moment."
	if s.contactEmail == "" {
		return apology
	}
	return apology + " " + prompt.RefusalMessage(s.contactEmail)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	writeJSON(w, status, map[string]any{
		"status": string(report.Status),
		"checks": checks,
	})
}

func historyFromRequest(turns []historyTurn) []domain.ConversationTurn {
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	out := make([]domain.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		role := domain.RoleUser
		if t.Role == domain.RoleAssistant {
			role = domain.RoleAssistant
		}
		out = append(out, domain.ConversationTurn{Role: role, Text: t.Text})
	}
	return out
}

func sourcesFromResult(result domain.RetrievalResult) []sourceItem {
	items := make([]sourceItem, len(result))
	for i, p := range result {
		items[i] = sourceItem{ID: p.ID, Text: p.Text, Score: p.Score}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
