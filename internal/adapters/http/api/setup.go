package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/types"
	"github.com/okian/speedcube/internal/errs"
	"github.com/okian/speedcube/pkg/logger"
)

// SetupHandler handles competition, competitor, event and round setup.
type SetupHandler struct {
	deps     SetupDependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewSetupHandler creates a new setup handler.
func NewSetupHandler(deps SetupDependencies, v *validator.Validate, l logger.Logger) *SetupHandler {
	return &SetupHandler{deps: deps, validate: v, logger: l}
}

// HandleCreateCompetition handles POST /competitions.
func (h *SetupHandler) HandleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_competition"
	var req types.CreateCompetitionRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	c := model.Competition{Name: req.Name, ShortName: req.ShortName, StartDate: req.StartDate, EndDate: req.EndDate}
	if err := h.deps.CreateCompetition(r.Context(), &c); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromCompetition(c))
}

// HandleCreateCompetitor handles POST /competitors.
func (h *SetupHandler) HandleCreateCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_competitor"
	var req types.CreateCompetitorRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	c := model.Competitor{Name: req.Name, WCAID: req.WCAID, Region: req.Region}
	if err := h.deps.CreateCompetitor(r.Context(), &c); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromCompetitor(c))
}

// HandleCreateEvent handles POST /competitions/{competitionID}/events.
func (h *SetupHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	competitionID := strings.TrimSpace(chi.URLParam(r, "competitionID"))
	var req types.CreateEventRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	e := model.Event{CompetitionID: competitionID, Code: model.EventCode(req.Code), MaxAge: req.MaxAge}
	if err := h.deps.CreateEvent(r.Context(), &e); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromEvent(e))
}

// HandleCreateRound handles POST /events/{eventID}/rounds.
func (h *SetupHandler) HandleCreateRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_round"
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	var req types.CreateRoundRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	proceed, err := model.DecodeProceed(req.Proceed)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	round := model.Round{
		EventID:   eventID,
		Number:    req.Number,
		Format:    model.FormatCode(req.Format),
		Proceed:   proceed,
		Cutoff:    req.Cutoff,
		TimeLimit: req.TimeLimit,
	}
	if err := h.deps.CreateRound(r.Context(), &round); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromRound(round))
}

// HandleUpdateRound handles PUT /events/{eventID}/rounds/{number}. It
// answers 201 when the round did not exist yet.
func (h *SetupHandler) HandleUpdateRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_round"
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	number, err := idParam(r, "number")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	var req types.UpdateRoundRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	proceed, err := model.DecodeProceed(req.Proceed)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	round := model.Round{
		EventID:   eventID,
		Number:    int(number),
		Format:    model.FormatCode(req.Format),
		Proceed:   proceed,
		Cutoff:    req.Cutoff,
		TimeLimit: req.TimeLimit,
	}
	created, err := h.deps.UpdateRound(r.Context(), &round)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, types.FromRound(round))
}

// HandleListRounds handles GET /events/{eventID}/rounds.
func (h *SetupHandler) HandleListRounds(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rounds"
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	rounds, err := h.deps.ListRounds(r.Context(), eventID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	out := make([]types.Round, 0, len(rounds))
	for _, rd := range rounds {
		out = append(out, types.FromRound(rd))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRegister handles POST /events/{eventID}/registrations.
func (h *SetupHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	eventID, err := idParam(r, "eventID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	var req types.RegisterRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	if err := h.deps.Register(r.Context(), req.CompetitorID, eventID); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
