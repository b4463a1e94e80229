// Package service provides the round lifecycle controller that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/speedcube/internal/adapters/mq/feed"
	"github.com/okian/speedcube/internal/adapters/repository"
	"github.com/okian/speedcube/internal/domain/advancement"
	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/ranking"
	"github.com/okian/speedcube/internal/domain/scoring"
	"github.com/okian/speedcube/internal/errs"
	"github.com/okian/speedcube/pkg/logger"
	"github.com/okian/speedcube/pkg/metrics"
)

const defaultDSN = "file:speedcube.db?_pragma=busy_timeout(5000)"

// Publisher receives round changes after they are committed.
type Publisher interface {
	Publish(ctx context.Context, e feed.Event) error
}

// Subscriber streams a round's changes.
type Subscriber interface {
	Subscribe(ctx context.Context, roundID uint) (<-chan feed.Event, error)
}

// Advancement previews who proceeds from a round.
type Advancement struct {
	RoundID       uint
	Rule          model.ProceedRule
	Threshold     int
	Policy        advancement.TiePolicy
	CompetitorIDs []uint
}

// Service opens, clears and scores rounds.
//
// Each state change runs in one store transaction. Feed messages are sent
// only after the transaction commits; a failed publish is logged and does
// not undo the change.
type Service struct {
	mu sync.RWMutex

	store *repository.Store
	feed  Publisher

	// Configuration
	dsn            string
	autoMigrate    bool
	feedBufferSize int
	tiePolicy      advancement.TiePolicy

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dsn:         defaultDSN,
		autoMigrate: true,
		tiePolicy:   advancement.SliceByPosition,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and feed unless they were supplied.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting results service...")

	if s.store == nil {
		st, err := repository.Open(ctx, s.dsn,
			repository.WithLogger(s.logger.Named("store")),
			repository.WithAutoMigrate(s.autoMigrate),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
	}
	if s.feed == nil {
		s.feed = feed.New(
			feed.WithLogger(s.logger.Named("feed")),
			feed.WithBufferSize(s.feedBufferSize),
		)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "results service started",
		logger.String("tie_policy", s.tiePolicy.String()),
		logger.Bool("auto_migrate", s.autoMigrate),
	)
	return nil
}

// Stop closes the feed and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping results service...")

	if c, ok := s.feed.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn(ctx, "feed close failed", logger.Error(err))
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "results service stopped")
}

func (s *Service) ready(op string) (*repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, errs.WrapKind(op, errs.ErrStorage, ErrNotStarted)
	}
	return s.store, nil
}

// OpenRound seeds a round's rows and marks it open. Round 1 takes every
// registered competitor; later rounds take the advancers of the previous
// round. Opening an open round changes nothing. It returns the round and
// the number of rows seeded.
func (s *Service) OpenRound(ctx context.Context, roundID uint) (model.Round, int, error) {
	const op = "service.open_round"
	store, err := s.ready(op)
	if err != nil {
		return model.Round{}, 0, err
	}

	var (
		round    model.Round
		seeded   int
		advanced int
		already  bool
	)
	err = store.Transaction(ctx, func(tx *repository.Store) error {
		r, err := tx.Round(ctx, roundID)
		if err != nil {
			return err
		}
		round = r
		if r.Open {
			already = true
			return nil
		}

		event, err := tx.Event(ctx, r.EventID)
		if err != nil {
			return err
		}
		if _, err := scoring.FormatFor(event, r); err != nil {
			return err
		}

		var ids []uint
		if r.IsFirst() {
			ids, err = tx.RegisteredCompetitors(ctx, r.EventID)
			if err != nil {
				return err
			}
		} else {
			prev, err := tx.RoundByNumber(ctx, r.EventID, r.Number-1)
			if err != nil {
				return err
			}
			if !prev.Open {
				return errs.New(op, errs.ErrValidation, fmt.Sprintf("round %d has not been opened", prev.Number))
			}
			rows, err := tx.RoundResults(ctx, prev.ID)
			if err != nil {
				return err
			}
			st := s.rank(rows)
			if len(st.Valued) == 0 {
				return errs.New(op, errs.ErrValidation, fmt.Sprintf("round %d has no results to advance from", prev.Number))
			}
			ids, err = advancement.Select(st, prev.Proceed, s.tiePolicy)
			if err != nil {
				return err
			}
			advanced = len(ids)
		}

		if seeded, err = tx.SeedResults(ctx, r.ID, ids); err != nil {
			return err
		}
		if err := tx.SetRoundOpen(ctx, r.ID, true); err != nil {
			return err
		}
		round.Open = true
		return nil
	})
	if err != nil {
		s.logger.Warn(ctx, "open round failed", logger.Uint("round_id", roundID), logger.Error(err))
		return model.Round{}, 0, errs.Wrap(op, err)
	}
	if already {
		s.logger.Debug(ctx, "round already open", logger.Uint("round_id", roundID))
		return round, 0, nil
	}

	metrics.RecordRoundOpened()
	metrics.RecordCompetitorsSeeded(seeded)
	if advanced > 0 {
		metrics.RecordAdvancersSelected(advanced)
	}
	s.logger.Info(ctx, "round opened",
		logger.Uint("round_id", round.ID),
		logger.Int("number", round.Number),
		logger.Int("seeded", seeded),
	)
	s.publish(ctx, feed.Event{Type: feed.RoundOpened, RoundID: round.ID, Seeded: seeded})
	return round, seeded, nil
}

// ClearRound resets every row of an open round to empty attempts and
// unscored best and result. Rounds that are not open are rejected.
func (s *Service) ClearRound(ctx context.Context, roundID uint) (int, error) {
	const op = "service.clear_round"
	store, err := s.ready(op)
	if err != nil {
		return 0, err
	}

	var cleared int
	err = store.Transaction(ctx, func(tx *repository.Store) error {
		r, err := tx.Round(ctx, roundID)
		if err != nil {
			return err
		}
		if !r.Open {
			return errs.New(op, errs.ErrValidation, fmt.Sprintf("round %d is not open", roundID))
		}
		cleared, err = tx.ClearResults(ctx, roundID)
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "clear round failed", logger.Uint("round_id", roundID), logger.Error(err))
		return 0, errs.Wrap(op, err)
	}

	metrics.RecordRoundCleared()
	s.logger.Info(ctx, "round cleared", logger.Uint("round_id", roundID), logger.Int("rows", cleared))
	s.publish(ctx, feed.Event{Type: feed.RoundCleared, RoundID: roundID})
	return cleared, nil
}

// SubmitResult parses, checks and scores one competitor's attempts and
// stores attempts, best and result together. Attempts left off the end are
// empty. The competitor must already be seeded into the open round.
func (s *Service) SubmitResult(ctx context.Context, competitorID, roundID uint, texts []string) (model.RoundResult, error) {
	const op = "service.submit_result"
	store, err := s.ready(op)
	if err != nil {
		return model.RoundResult{}, err
	}

	attempts, err := attempt.ParseAll(texts)
	if err != nil {
		return model.RoundResult{}, errs.Wrap(op, err)
	}

	var (
		row    model.RoundResult
		format scoring.Format
	)
	err = store.Transaction(ctx, func(tx *repository.Store) error {
		round, err := tx.Round(ctx, roundID)
		if err != nil {
			return err
		}
		event, err := tx.Event(ctx, round.EventID)
		if err != nil {
			return err
		}
		if !round.Open {
			return errs.New(op, errs.ErrValidation, fmt.Sprintf("round %d is not open", roundID))
		}
		if format, err = scoring.FormatFor(event, round); err != nil {
			return err
		}

		scored, err := prepare(attempts, round, format)
		if err != nil {
			return err
		}
		summary, err := scoring.Aggregate(scored, format)
		if err != nil {
			return err
		}

		row = model.RoundResult{
			CompetitorID: competitorID,
			RoundID:      roundID,
			Attempts:     scored,
			Best:         summary.Best,
			Result:       summary.Result,
		}
		return tx.SaveResult(ctx, row)
	})
	if err != nil {
		s.logger.Warn(ctx, "submit result failed",
			logger.Uint("round_id", roundID),
			logger.Uint("competitor_id", competitorID),
			logger.Error(err),
		)
		return model.RoundResult{}, errs.Wrap(op, err)
	}

	metrics.RecordResultSubmitted(format.String())
	s.logger.Debug(ctx, "result stored",
		logger.Uint("round_id", roundID),
		logger.Uint("competitor_id", competitorID),
		logger.String("result", row.Result.Format()),
	)
	s.publish(ctx, feed.Event{
		Type:         feed.ResultSubmitted,
		RoundID:      roundID,
		CompetitorID: competitorID,
		Attempts:     attempt.FormatAll(row.Attempts),
		Best:         row.Best.Format(),
		Result:       row.Result.Format(),
	})
	return row, nil
}

// prepare pads attempts to the format's length, applies the round's time
// limit and enforces its cutoff.
func prepare(attempts []attempt.Attempt, round model.Round, format scoring.Format) ([]attempt.Attempt, error) {
	out := attempts
	if n := format.Attempts(); len(out) < n {
		out = make([]attempt.Attempt, n)
		copy(out, attempts)
	}
	if round.HasTimeLimit() {
		out = scoring.ApplyTimeLimit(out, *round.TimeLimit, format)
	}
	if format == scoring.AO5Cutoff {
		if err := scoring.CheckCutoff(out, *round.Cutoff); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Standings ranks a round.
func (s *Service) Standings(ctx context.Context, roundID uint) (ranking.Standings, error) {
	const op = "service.standings"
	store, err := s.ready(op)
	if err != nil {
		return ranking.Standings{}, err
	}
	if _, err := store.Round(ctx, roundID); err != nil {
		return ranking.Standings{}, errs.Wrap(op, err)
	}
	rows, err := store.RoundResults(ctx, roundID)
	if err != nil {
		return ranking.Standings{}, errs.Wrap(op, err)
	}
	return s.rank(rows), nil
}

// Advancers previews who would proceed from a round under its proceed rule
// and the configured tie policy.
func (s *Service) Advancers(ctx context.Context, roundID uint) (Advancement, error) {
	const op = "service.advancers"
	store, err := s.ready(op)
	if err != nil {
		return Advancement{}, err
	}
	round, err := store.Round(ctx, roundID)
	if err != nil {
		return Advancement{}, errs.Wrap(op, err)
	}
	rows, err := store.RoundResults(ctx, roundID)
	if err != nil {
		return Advancement{}, errs.Wrap(op, err)
	}
	st := s.rank(rows)
	threshold, err := advancement.Threshold(round.Proceed, st.Total())
	if err != nil {
		return Advancement{}, errs.Wrap(op, err)
	}
	ids, err := advancement.Select(st, round.Proceed, s.tiePolicy)
	if err != nil {
		return Advancement{}, errs.Wrap(op, err)
	}
	return Advancement{
		RoundID:       roundID,
		Rule:          round.Proceed,
		Threshold:     threshold,
		Policy:        s.tiePolicy,
		CompetitorIDs: ids,
	}, nil
}

func (s *Service) rank(rows []model.RoundResult) ranking.Standings {
	start := time.Now()
	st := ranking.Rank(rows)
	metrics.RecordRankingLatency(float64(time.Since(start).Microseconds()) / 1000)
	return st
}

func (s *Service) publish(ctx context.Context, e feed.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, e); err != nil {
		s.logger.Warn(ctx, "feed publish failed",
			logger.String("type", string(e.Type)),
			logger.Uint("round_id", e.RoundID),
			logger.Error(err),
		)
	}
}

// Subscribe streams a round's changes until ctx is done.
func (s *Service) Subscribe(ctx context.Context, roundID uint) (<-chan feed.Event, error) {
	const op = "service.subscribe"
	store, err := s.ready(op)
	if err != nil {
		return nil, err
	}
	if _, err := store.Round(ctx, roundID); err != nil {
		return nil, errs.Wrap(op, err)
	}
	sub, ok := s.feed.(Subscriber)
	if !ok {
		return nil, errs.New(op, errs.ErrStorage, "feed does not support subscriptions")
	}
	ch, err := sub.Subscribe(ctx, roundID)
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorage, err)
	}
	return ch, nil
}

// GetStats returns service statistics for monitoring and refreshes the
// store gauges.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	started, startedAt, store := s.started, s.startedAt, s.store
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   started,
		"tiePolicy": s.tiePolicy.String(),
	}
	if !started {
		return stats
	}
	stats["uptimeSeconds"] = int64(time.Since(startedAt).Seconds())

	st, err := store.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats query failed", logger.Error(err))
		stats["error"] = err.Error()
		return stats
	}
	stats["competitions"] = st.Competitions
	stats["competitors"] = st.Competitors
	stats["events"] = st.Events
	stats["rounds"] = st.Rounds
	stats["openRounds"] = st.OpenRounds
	stats["results"] = st.Results
	stats["scoredResults"] = st.ScoredResults

	if counts, err := store.RoundCounts(ctx); err == nil {
		perRound := make(map[string]interface{}, len(counts))
		for _, c := range counts {
			perRound[fmt.Sprint(c.RoundID)] = map[string]int64{"entries": c.Entries, "scored": c.Scored}
		}
		stats["roundResults"] = perRound
	} else {
		s.logger.Warn(ctx, "round counts query failed", logger.Error(err))
	}

	metrics.UpdateOpenRounds(int(st.OpenRounds))
	metrics.UpdateTotalCompetitors(int(st.Competitors))
	metrics.UpdateTotalResults(int(st.Results))
	return stats
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.ready("service.ping")
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}
