package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
	healthuc "github.com/savealife-cloud/lifeline/internal/usecase/health"
	ingestuc "github.com/savealife-cloud/lifeline/internal/usecase/ingest"
	raguc "github.com/savealife-cloud/lifeline/internal/usecase/rag"
	recommenduc "github.com/savealife-cloud/lifeline/internal/usecase/recommend"
	statsuc "github.com/savealife-cloud/lifeline/internal/usecase/stats"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the RAG pipeline over HTTP.
type Server struct {
	guides        *raguc.Service
	advisor       *raguc.Service
	recommend     *recommenduc.Service
	ingestGuides  *ingestuc.Service
	ingestAdvisor *ingestuc.Service
	stats         *statsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	guides *raguc.Service,
	advisor *raguc.Service,
	recommend *recommenduc.Service,
	ingestGuides *ingestuc.Service,
	ingestAdvisor *ingestuc.Service,
	stats *statsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		guides:        guides,
		advisor:       advisor,
		recommend:     recommend,
		ingestGuides:  ingestGuides,
		ingestAdvisor: ingestAdvisor,
		stats:         stats,
		health:        health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrSummarization, http.StatusBadGateway),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway),
		sentinelHandler(domain.ErrUpstreamRejected, http.StatusBadGateway),
		sentinelHandler(domain.ErrMalformedResponse, http.StatusBadGateway),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/rag/search", s.SearchGuides)
		r.Get("/rag/stats", s.Stats)
		r.Post("/advisor/search", s.SearchAdvisor)
		r.Post("/ask", s.Ask)
		r.Post("/guides", s.InsertGuide)
		r.Post("/guides/batch", s.InsertGuideBatch)
	})
}

// SearchGuides handles POST /api/rag/search.
func (s *Server) SearchGuides(w http.ResponseWriter, r *http.Request) {
	s.searchWith(w, r, s.guides)
}

// SearchAdvisor handles POST /api/advisor/search.
func (s *Server) SearchAdvisor(w http.ResponseWriter, r *http.Request) {
	s.searchWith(w, r, s.advisor)
}

func (s *Server) searchWith(w http.ResponseWriter, r *http.Request, svc *raguc.Service) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer, err := svc.Answer(r.Context(), req.SearchText)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(req.SearchText, answer))
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	text, err := s.recommend.Ask(r.Context(), req.Question, assetFromRequest(req.Asset))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Response: text})
}

// InsertGuide handles POST /api/guides.
func (s *Server) InsertGuide(w http.ResponseWriter, r *http.Request) {
	var req guideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	svc, err := s.ingestFor(req.Collection)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	id, err := svc.Insert(r.Context(), req.Collection, guideFromRequest(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, guideResponse{ID: id})
}

// InsertGuideBatch handles POST /api/guides/batch.
func (s *Server) InsertGuideBatch(w http.ResponseWriter, r *http.Request) {
	var req guideBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	svc, err := s.ingestFor(req.Collection)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	guides := make([]domain.Guide, len(req.Guides))
	for i, g := range req.Guides {
		guides[i] = guideFromRequest(g)
	}

	ids, err := svc.InsertMany(r.Context(), req.Collection, guides)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, guideBatchResponse{Inserted: len(ids), IDs: ids})
}

// Stats handles GET /api/rag/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	collected, err := s.stats.Collect(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := statsResponse{Collections: make(map[string]collectionStats, len(collected))}
	for name, st := range collected {
		resp.Collections[name] = collectionStats{
			Documents:      st.Documents,
			IndexExists:    st.IndexExists,
			IndexQueryable: st.IndexQueryable,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, status, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ingestFor routes the write to the ingestion service serving the named
// collection. An empty collection defaults to the repair-guide collection.
func (s *Server) ingestFor(collection string) (*ingestuc.Service, error) {
	switch collection {
	case "", s.guides.Collection():
		return s.ingestGuides, nil
	case s.advisor.Collection():
		return s.ingestAdvisor, nil
	default:
		return nil, domain.ErrNotFound
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrVectorDimMismatch,
		domain.ErrNotFound,
		domain.ErrSummarization,
		domain.ErrUpstreamUnavailable,
		domain.ErrUpstreamRejected,
		domain.ErrMalformedResponse,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
