// Package chi exposes the HTTP surface: the recommendations endpoint, the
// static test page, health, and metrics.
package chi

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
	"github.com/fitpick/fitpick/internal/logger"
	healthuc "github.com/fitpick/fitpick/internal/usecase/health"
)

//go:embed index.html
var indexPage []byte

// Recommender runs the recommendation pipeline for one query.
type Recommender interface {
	Recommend(ctx context.Context, query string, withSummary bool) (domain.Recommendation, error)
}

// Server implements the HTTP API.
type Server struct {
	recommender Recommender
	health      *healthuc.Service
	logger      *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(recommender Recommender, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{recommender: recommender, health: health, logger: logger}
}

// Register mounts all routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Post("/recommendations", s.handleRecommendations)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// recommendationRequest is the POST /recommendations body.
type recommendationRequest struct {
	Query       string `json:"query"`
	LLMResponse bool   `json:"llmResponse"`
}

// recommendationResponse is the POST /recommendations reply. Products is null
// when nothing survived the pipeline.
type recommendationResponse struct {
	Response string           `json:"response"`
	Products []domain.Product `json:"products"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	rec, err := s.recommender.Recommend(r.Context(), req.Query, req.LLMResponse)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationResponse{
		Response: rec.Response,
		Products: rec.Products,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleDomainError maps pipeline sentinels to HTTP statuses: exhausted
// upstream retries surface as 503, everything else as 500.
func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)

	switch {
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		log.Warn("upstream unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable",
			"model provider is unavailable, please retry later")
	case errors.Is(err, context.Canceled):
		// Client went away; the status code is never seen.
		log.Debug("request cancelled", zap.Error(err))
		writeError(w, 499, "client_closed_request", "request cancelled")
	default:
		log.Error("recommendation pipeline failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
