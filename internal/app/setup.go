package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/speedcube/internal/adapters/repository"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/errs"
	"github.com/okian/speedcube/pkg/logger"
)

// CreateCompetition stores a new competition and assigns its id.
func (s *Service) CreateCompetition(ctx context.Context, c *model.Competition) error {
	const op = "service.create_competition"
	store, err := s.ready(op)
	if err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errs.New(op, errs.ErrValidation, "competition name is required")
	}
	if !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return errs.New(op, errs.ErrValidation, "competition ends before it starts")
	}
	if err := store.CreateCompetition(ctx, c); err != nil {
		return errs.Wrap(op, err)
	}
	s.logger.Info(ctx, "competition created", logger.String("id", c.ID), logger.String("name", c.Name))
	return nil
}

// CreateCompetitor stores a new competitor and assigns its id.
func (s *Service) CreateCompetitor(ctx context.Context, c *model.Competitor) error {
	const op = "service.create_competitor"
	store, err := s.ready(op)
	if err != nil {
		return err
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errs.New(op, errs.ErrValidation, "competitor name is required")
	}
	if c.WCAID != nil {
		id := strings.ToUpper(strings.TrimSpace(*c.WCAID))
		c.WCAID = &id
	}
	if err := store.CreateCompetitor(ctx, c); err != nil {
		return errs.Wrap(op, err)
	}
	return nil
}

// CreateEvent adds an event to a competition.
func (s *Service) CreateEvent(ctx context.Context, e *model.Event) error {
	const op = "service.create_event"
	store, err := s.ready(op)
	if err != nil {
		return err
	}
	code, err := model.ParseEventCode(string(e.Code))
	if err != nil {
		return errs.Wrap(op, err)
	}
	e.Code = code
	if e.MaxAge != nil && *e.MaxAge <= 0 {
		return errs.New(op, errs.ErrValidation, "max age must be positive")
	}
	if err := store.CreateEvent(ctx, e); err != nil {
		return errs.Wrap(op, err)
	}
	s.logger.Info(ctx, "event created", logger.Uint("id", e.ID), logger.String("label", e.Label()))
	return nil
}

// CreateRound adds a round to an event. Round numbers start at 1 and are
// unique per event.
func (s *Service) CreateRound(ctx context.Context, r *model.Round) error {
	const op = "service.create_round"
	store, err := s.ready(op)
	if err != nil {
		return err
	}
	if err := checkRound(op, r); err != nil {
		return err
	}
	if err := store.CreateRound(ctx, r); err != nil {
		return errs.Wrap(op, err)
	}
	s.logger.Info(ctx, "round created",
		logger.Uint("id", r.ID),
		logger.Uint("event_id", r.EventID),
		logger.Int("number", r.Number),
		logger.String("proceed", r.Proceed.String()),
	)
	return nil
}

// UpdateRound replaces the format, proceed rule, cutoff and time limit of
// the round numbered r.Number in r.EventID, creating the round when the
// event has none with that number. Open rounds cannot change. It reports
// whether the round was created.
func (s *Service) UpdateRound(ctx context.Context, r *model.Round) (bool, error) {
	const op = "service.update_round"
	store, err := s.ready(op)
	if err != nil {
		return false, err
	}
	if err := checkRound(op, r); err != nil {
		return false, err
	}

	var created bool
	err = store.Transaction(ctx, func(tx *repository.Store) error {
		existing, err := tx.RoundByNumber(ctx, r.EventID, r.Number)
		if errors.Is(err, errs.ErrNotFound) {
			created = true
			return tx.CreateRound(ctx, r)
		}
		if err != nil {
			return err
		}
		if existing.Open {
			return errs.New(op, errs.ErrValidation, fmt.Sprintf("round %d is open and cannot change", r.Number))
		}
		r.ID = existing.ID
		return tx.UpdateRound(ctx, *r)
	})
	if err != nil {
		return false, errs.Wrap(op, err)
	}
	s.logger.Info(ctx, "round updated",
		logger.Uint("id", r.ID),
		logger.Uint("event_id", r.EventID),
		logger.Int("number", r.Number),
		logger.String("proceed", r.Proceed.String()),
		logger.Bool("created", created),
	)
	return created, nil
}

// checkRound normalizes r's format and validates its rules. New and
// updated rounds always start closed.
func checkRound(op string, r *model.Round) error {
	format, err := model.ParseFormatCode(string(r.Format))
	if err != nil {
		return errs.Wrap(op, err)
	}
	r.Format = format
	r.Open = false
	if r.Number < 1 {
		return errs.New(op, errs.ErrValidation, "round number must be at least 1")
	}
	if err := r.Proceed.Validate(); err != nil {
		return errs.Wrap(op, err)
	}
	for name, v := range map[string]*float64{"cutoff": r.Cutoff, "time limit": r.TimeLimit} {
		if v != nil && *v <= 0 {
			return errs.New(op, errs.ErrValidation, fmt.Sprintf("%s must be positive", name))
		}
	}
	return nil
}

// Register signs a competitor up for an event.
func (s *Service) Register(ctx context.Context, competitorID, eventID uint) error {
	const op = "service.register"
	store, err := s.ready(op)
	if err != nil {
		return err
	}
	return errs.Wrap(op, store.Register(ctx, competitorID, eventID))
}

// ListRounds returns an event's rounds by number.
func (s *Service) ListRounds(ctx context.Context, eventID uint) ([]model.Round, error) {
	const op = "service.list_rounds"
	store, err := s.ready(op)
	if err != nil {
		return nil, err
	}
	if _, err := store.Event(ctx, eventID); err != nil {
		return nil, errs.Wrap(op, err)
	}
	rounds, err := store.Rounds(ctx, eventID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return rounds, nil
}
