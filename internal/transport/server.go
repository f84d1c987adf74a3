package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/orchestrator"
	"github.com/sells-group/claim-intel/internal/resilience"
	"github.com/sells-group/claim-intel/internal/similarity"
	"github.com/sells-group/claim-intel/internal/statemachine"
	"github.com/sells-group/claim-intel/internal/store"
)

// Intelligence is the orchestrator surface the server exposes.
type Intelligence interface {
	OrchestrateClaim(ctx context.Context, req orchestrator.Request) (*model.OrchestratorOutput, error)
	ShouldTakeAction(ctx context.Context, claimID string) (bool, error)
}

// Lifecycle is the state machine surface the server exposes.
type Lifecycle interface {
	CurrentState(ctx context.Context, claimID string) (*model.ClaimState, error)
	History(ctx context.Context, claimID string) ([]model.StateHistoryEntry, error)
	Transition(ctx context.Context, claimID, orgID string, newState model.ClaimState, notes string) (*model.StateHistoryEntry, error)
}

// SimilarFinder is the similarity surface the server exposes.
type SimilarFinder interface {
	FindSimilarClaimsWithDetails(ctx context.Context, claimID string, limit int) []similarity.ClaimDetail
}

// Server wires the core behind the HTTP API.
type Server struct {
	intel     Intelligence
	lifecycle Lifecycle
	similar   SimilarFinder
	auth      Authorizer
	limiter   *RateLimiter
	origins   []string
}

func NewServer(intel Intelligence, lifecycle Lifecycle, similar SimilarFinder, auth Authorizer, limiter *RateLimiter, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		intel:     intel,
		lifecycle: lifecycle,
		similar:   similar,
		auth:      auth,
		limiter:   limiter,
		origins:   origins,
	}
}

// Router builds the HTTP handler. /health is open; everything under /v1
// goes through auth and per-principal rate limiting.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.rateLimit)

		r.Post("/claims/{claimID}/orchestrate", s.handleOrchestrate)
		r.Get("/claims/{claimID}/state", s.handleState)
		r.Post("/claims/{claimID}/transition", s.handleTransition)
		r.Get("/claims/{claimID}/similar", s.handleSimilar)
		r.Get("/claims/{claimID}/should-act", s.handleShouldAct)
	})

	return r
}

type principalKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.auth.Verify(bearerToken(r.Header.Get("Authorization")))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := r.Context().Value(principalKey{}).(string)
		if !s.limiter.Allow(principal) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")

	var body struct {
		OrgID       string `json:"org_id"`
		RequestType string `json:"request_type"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	out, err := s.intel.OrchestrateClaim(r.Context(), orchestrator.Request{
		ClaimID:     claimID,
		OrgID:       body.OrgID,
		RequestType: body.RequestType,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")

	state, err := s.lifecycle.CurrentState(r.Context(), claimID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	history, err := s.lifecycle.History(r.Context(), claimID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id":            claimID,
		"current_state":       state,
		"allowed_next_states": statemachine.AllowedNextStates(state),
		"history":             history,
	})
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")

	var body struct {
		State string `json:"state"`
		OrgID string `json:"org_id"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newState := model.ClaimState(body.State)
	if !newState.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown state "+body.State)
		return
	}

	// A concurrent writer can win the append race; retry briefly before
	// surfacing the conflict.
	entry, err := resilience.DoVal(r.Context(), resilience.ConflictRetryConfig(),
		func(ctx context.Context) (*model.StateHistoryEntry, error) {
			return s.lifecycle.Transition(ctx, claimID, body.OrgID, newState, body.Notes)
		})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	details := s.similar.FindSimilarClaimsWithDetails(r.Context(), claimID, limit)
	if details == nil {
		details = []similarity.ClaimDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id": claimID,
		"similar":  details,
	})
}

func (s *Server) handleShouldAct(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claimID")

	should, err := s.intel.ShouldTakeAction(r.Context(), claimID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claim_id":           claimID,
		"should_take_action": should,
	})
}

// writeDomainError maps core sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrClaimNotFound):
		writeError(w, http.StatusNotFound, "claim not found")
	case eris.Is(err, statemachine.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case eris.Is(err, store.ErrStateConflict):
		writeError(w, http.StatusConflict, "state changed concurrently, re-read and retry")
	default:
		zap.L().Error("transport: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("transport: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
