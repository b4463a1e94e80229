// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	service "github.com/okian/speedcube/internal/app"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/ranking"
	"github.com/okian/speedcube/internal/errs"
	"github.com/okian/speedcube/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	SetupDependencies
	RoundDependencies
	FeedDependencies
	StatsProvider
	Pinger
}

// Server wires HTTP routes for the results API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	setupHandler  *SetupHandler
	roundsHandler *RoundsHandler
	feedHandler   *FeedHandler

	requestTimeout time.Duration
	heartbeat      time.Duration
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		requestTimeout: 5 * time.Second,
		heartbeat:      15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	s.setupHandler = NewSetupHandler(deps, v, s.logger)
	s.roundsHandler = NewRoundsHandler(deps, v, s.logger)
	s.feedHandler = NewFeedHandler(deps, s.heartbeat, s.logger)
	return s
}

// Router builds a chi router with every API route attached.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	// The feed streams for as long as the client listens.
	r.Get("/rounds/{roundID}/feed", MetricsMiddleware(s.feedHandler.HandleFeed, "round_feed"))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout))

		r.Post("/competitions", MetricsMiddleware(s.setupHandler.HandleCreateCompetition, "competitions"))
		r.Post("/competitions/{competitionID}/events", MetricsMiddleware(s.setupHandler.HandleCreateEvent, "competition_events"))
		r.Post("/competitors", MetricsMiddleware(s.setupHandler.HandleCreateCompetitor, "competitors"))
		r.Post("/events/{eventID}/rounds", MetricsMiddleware(s.setupHandler.HandleCreateRound, "event_rounds"))
		r.Get("/events/{eventID}/rounds", MetricsMiddleware(s.setupHandler.HandleListRounds, "event_rounds"))
		r.Put("/events/{eventID}/rounds/{number}", MetricsMiddleware(s.setupHandler.HandleUpdateRound, "event_round"))
		r.Post("/events/{eventID}/registrations", MetricsMiddleware(s.setupHandler.HandleRegister, "event_registrations"))

		r.Post("/rounds/{roundID}/open", MetricsMiddleware(s.roundsHandler.HandleOpen, "round_open"))
		r.Post("/rounds/{roundID}/clear", MetricsMiddleware(s.roundsHandler.HandleClear, "round_clear"))
		r.Put("/rounds/{roundID}/results/{competitorID}", MetricsMiddleware(s.roundsHandler.HandleSubmit, "round_results"))
		r.Get("/rounds/{roundID}/standings", MetricsMiddleware(s.roundsHandler.HandleStandings, "round_standings"))
		r.Get("/rounds/{roundID}/advancers", MetricsMiddleware(s.roundsHandler.HandleAdvancers, "round_advancers"))
	})
}

// SetupDependencies covers competition, event, round and competitor setup.
type SetupDependencies interface {
	CreateCompetition(ctx context.Context, c *model.Competition) error
	CreateCompetitor(ctx context.Context, c *model.Competitor) error
	CreateEvent(ctx context.Context, e *model.Event) error
	CreateRound(ctx context.Context, r *model.Round) error
	UpdateRound(ctx context.Context, r *model.Round) (bool, error)
	Register(ctx context.Context, competitorID, eventID uint) error
	ListRounds(ctx context.Context, eventID uint) ([]model.Round, error)
}

// RoundDependencies covers the round lifecycle and its read views.
type RoundDependencies interface {
	OpenRound(ctx context.Context, roundID uint) (model.Round, int, error)
	ClearRound(ctx context.Context, roundID uint) (int, error)
	SubmitResult(ctx context.Context, competitorID, roundID uint, attempts []string) (model.RoundResult, error)
	Standings(ctx context.Context, roundID uint) (ranking.Standings, error)
	Advancers(ctx context.Context, roundID uint) (service.Advancement, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an error kind to its status and code.
func writeFailure(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	switch {
	case errors.Is(err, errs.ErrFormat):
		writeError(w, http.StatusBadRequest, "format_error", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	default:
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body into dst and validates its tags.
func decode(r *http.Request, v *validator.Validate, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrBadRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// idParam reads a positive numeric path parameter.
func idParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, name, raw)
	}
	return uint(n), nil
}
