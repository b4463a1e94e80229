package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/speedcube/internal/domain/ranking"
	"github.com/okian/speedcube/internal/domain/types"
	"github.com/okian/speedcube/internal/errs"
	"github.com/okian/speedcube/pkg/logger"
)

// RoundsHandler handles the round lifecycle and standings.
type RoundsHandler struct {
	deps     RoundDependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies, v *validator.Validate, l logger.Logger) *RoundsHandler {
	return &RoundsHandler{deps: deps, validate: v, logger: l}
}

// HandleOpen handles POST /rounds/{roundID}/open.
func (h *RoundsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	const op = "api.open_round"
	roundID, err := idParam(r, "roundID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	round, seeded, err := h.deps.OpenRound(r.Context(), roundID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.OpenRoundResponse{Round: types.FromRound(round), Seeded: seeded})
}

// HandleClear handles POST /rounds/{roundID}/clear.
func (h *RoundsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_round"
	roundID, err := idParam(r, "roundID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	cleared, err := h.deps.ClearRound(r.Context(), roundID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ClearRoundResponse{RoundID: roundID, Cleared: cleared})
}

// HandleSubmit handles PUT /rounds/{roundID}/results/{competitorID}.
func (h *RoundsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_result"
	roundID, err := idParam(r, "roundID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	competitorID, err := idParam(r, "competitorID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	var req types.SubmitResultRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	row, err := h.deps.SubmitResult(r.Context(), competitorID, roundID, req.Attempts)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.Entry(ranking.Ranked{RoundResult: row}))
}

// HandleStandings handles GET /rounds/{roundID}/standings.
func (h *RoundsHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.standings"
	roundID, err := idParam(r, "roundID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	st, err := h.deps.Standings(r.Context(), roundID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromStandings(roundID, st))
}

// HandleAdvancers handles GET /rounds/{roundID}/advancers.
func (h *RoundsHandler) HandleAdvancers(w http.ResponseWriter, r *http.Request) {
	const op = "api.advancers"
	roundID, err := idParam(r, "roundID")
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	adv, err := h.deps.Advancers(r.Context(), roundID)
	if err != nil {
		writeFailure(r.Context(), w, h.logger, errs.Wrap(op, err))
		return
	}
	ids := adv.CompetitorIDs
	if ids == nil {
		ids = []uint{}
	}
	writeJSON(w, http.StatusOK, types.Advancers{
		RoundID:       adv.RoundID,
		Rule:          adv.Rule.String(),
		Threshold:     adv.Threshold,
		TiePolicy:     adv.Policy.String(),
		CompetitorIDs: ids,
	})
}
