// Package repository persists competitions, rounds and result rows with gorm.
//
// Domain values cross this boundary in their tagged form; the numeric
// encoding (NULL, 0, -1, seconds) exists only in the records.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/errs"
	applog "github.com/okian/speedcube/pkg/logger"
	"github.com/okian/speedcube/pkg/metrics"
)

// Store is a gorm-backed relational store. A Store returned by Transaction is
// bound to that transaction.
type Store struct {
	db           *gorm.DB
	log          applog.Logger
	autoMigrate  bool
	gormLogLevel gormlogger.LogLevel
}

// Stats summarises stored rows.
type Stats struct {
	Competitions  int64
	Competitors   int64
	Events        int64
	Rounds        int64
	OpenRounds    int64
	Results       int64
	ScoredResults int64
}

// RoundCount is the number of seeded and scored rows of one round.
type RoundCount struct {
	RoundID uint
	Entries int64
	Scored  int64
}

// Open connects to the SQLite database at dsn.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	const op = "repository.open"

	s := &Store{gormLogLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(s)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(s.gormLogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorage, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrStorage, err)
	}
	// One connection serialises writers; transactions stay isolated.
	sqlDB.SetMaxOpenConns(1)

	s.db = db
	if s.autoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	if s.log != nil {
		s.log.Info(ctx, "store opened", applog.Bool("auto_migrate", s.autoMigrate))
	}
	return s, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&competitionRecord{},
		&competitorRecord{},
		&eventRecord{},
		&registrationRecord{},
		&roundRecord{},
		&resultRecord{},
	)
	return classify("repository.migrate", err)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify("repository.close", err)
	}
	return classify("repository.close", sqlDB.Close())
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify("repository.ping", err)
	}
	return classify("repository.ping", sqlDB.PingContext(ctx))
}

// Transaction runs fn with a Store bound to one database transaction. The
// transaction commits when fn returns nil and rolls back otherwise. fn must
// only use the Store it is given.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
	if errs.KindOf(err) != nil {
		return err
	}
	return classify("repository.transaction", err)
}

// finish records latency and error metrics for op and classifies err.
func (s *Store) finish(op string, start time.Time, err error) error {
	metrics.RecordStoreQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(op)
		return classify("repository."+op, err)
	}
	return nil
}

// CreateCompetition inserts c, assigning a UUID when c.ID is empty.
func (s *Store) CreateCompetition(ctx context.Context, c *model.Competition) error {
	start := time.Now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	rec := fromCompetition(*c)
	err := s.db.WithContext(ctx).Create(&rec).Error
	return s.finish("create_competition", start, err)
}

// Competition loads a competition by id.
func (s *Store) Competition(ctx context.Context, id string) (model.Competition, error) {
	start := time.Now()
	var rec competitionRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		return model.Competition{}, s.finish("competition", start, notFound(err, ErrCompetitionMissing))
	}
	return rec.toModel(), s.finish("competition", start, nil)
}

// CreateCompetitor inserts c and sets its ID.
func (s *Store) CreateCompetitor(ctx context.Context, c *model.Competitor) error {
	start := time.Now()
	rec := fromCompetitor(*c)
	err := s.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		c.ID = rec.ID
	}
	return s.finish("create_competitor", start, err)
}

// Competitor loads a competitor by id.
func (s *Store) Competitor(ctx context.Context, id uint) (model.Competitor, error) {
	start := time.Now()
	var rec competitorRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if err != nil {
		return model.Competitor{}, s.finish("competitor", start, notFound(err, ErrCompetitorMissing))
	}
	return rec.toModel(), s.finish("competitor", start, nil)
}

// CreateEvent inserts e under an existing competition and sets its ID.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	start := time.Now()
	if _, err := s.Competition(ctx, e.CompetitionID); err != nil {
		return s.finish("create_event", start, err)
	}
	rec := fromEvent(*e)
	err := s.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		e.ID = rec.ID
	}
	return s.finish("create_event", start, err)
}

// Event loads an event by id.
func (s *Store) Event(ctx context.Context, id uint) (model.Event, error) {
	start := time.Now()
	var rec eventRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if err != nil {
		return model.Event{}, s.finish("event", start, notFound(err, ErrEventNotFound))
	}
	return rec.toModel(), s.finish("event", start, nil)
}

// Register records that a competitor takes part in an event. Registering
// twice is a no-op.
func (s *Store) Register(ctx context.Context, competitorID, eventID uint) error {
	start := time.Now()
	if _, err := s.Competitor(ctx, competitorID); err != nil {
		return s.finish("register", start, err)
	}
	if _, err := s.Event(ctx, eventID); err != nil {
		return s.finish("register", start, err)
	}
	rec := registrationRecord{CompetitorID: competitorID, EventID: eventID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	return s.finish("register", start, err)
}

// RegisteredCompetitors returns the ids of everyone registered for an event.
func (s *Store) RegisteredCompetitors(ctx context.Context, eventID uint) ([]uint, error) {
	start := time.Now()
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&registrationRecord{}).
		Where("event_id = ?", eventID).
		Order("competitor_id").
		Pluck("competitor_id", &ids).Error
	return ids, s.finish("registered_competitors", start, err)
}

// CreateRound inserts r and sets its ID. Round numbers are unique per event.
func (s *Store) CreateRound(ctx context.Context, r *model.Round) error {
	start := time.Now()
	if _, err := s.Event(ctx, r.EventID); err != nil {
		return s.finish("create_round", start, err)
	}
	rec := fromRound(*r)
	err := s.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		r.ID = rec.ID
	}
	return s.finish("create_round", start, err)
}

// UpdateRound overwrites the rules of round r.ID. Nil cutoff, time limit
// or a final proceed rule are stored as NULL.
func (s *Store) UpdateRound(ctx context.Context, r model.Round) error {
	start := time.Now()
	res := s.db.WithContext(ctx).Model(&roundRecord{ID: r.ID}).Updates(map[string]any{
		"format":     string(r.Format),
		"proceed":    nullable(r.Proceed.Encode()),
		"cutoff":     nullable(r.Cutoff),
		"time_limit": nullable(r.TimeLimit),
	})
	if res.Error == nil && res.RowsAffected == 0 {
		return s.finish("update_round", start, errs.WrapKind("", errs.ErrNotFound, ErrRoundNotFound))
	}
	return s.finish("update_round", start, res.Error)
}

// Round loads a round by id.
func (s *Store) Round(ctx context.Context, id uint) (model.Round, error) {
	start := time.Now()
	var rec roundRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return model.Round{}, s.finish("round", start, notFound(err, ErrRoundNotFound))
	}
	r, err := rec.toModel()
	return r, s.finish("round", start, err)
}

// RoundByNumber loads the given round of an event.
func (s *Store) RoundByNumber(ctx context.Context, eventID uint, number int) (model.Round, error) {
	start := time.Now()
	var rec roundRecord
	err := s.db.WithContext(ctx).Where("event_id = ? AND number = ?", eventID, number).First(&rec).Error
	if err != nil {
		return model.Round{}, s.finish("round_by_number", start, notFound(err, ErrRoundNotFound))
	}
	r, err := rec.toModel()
	return r, s.finish("round_by_number", start, err)
}

// Rounds lists an event's rounds by number.
func (s *Store) Rounds(ctx context.Context, eventID uint) ([]model.Round, error) {
	start := time.Now()
	var recs []roundRecord
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("number").Find(&recs).Error; err != nil {
		return nil, s.finish("rounds", start, err)
	}
	out := make([]model.Round, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.toModel()
		if err != nil {
			return nil, s.finish("rounds", start, err)
		}
		out = append(out, r)
	}
	return out, s.finish("rounds", start, nil)
}

// SetRoundOpen sets a round's open flag.
func (s *Store) SetRoundOpen(ctx context.Context, roundID uint, open bool) error {
	start := time.Now()
	res := s.db.WithContext(ctx).Model(&roundRecord{ID: roundID}).Update("open", open)
	if res.Error == nil && res.RowsAffected == 0 {
		return s.finish("set_round_open", start, errs.WrapKind("", errs.ErrNotFound, ErrRoundNotFound))
	}
	return s.finish("set_round_open", start, res.Error)
}

// RoundResults returns every row of a round with its competitor.
func (s *Store) RoundResults(ctx context.Context, roundID uint) ([]model.RoundResult, error) {
	start := time.Now()
	var recs []resultRecord
	err := s.db.WithContext(ctx).
		Preload("Competitor").
		Where("round_id = ?", roundID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, s.finish("round_results", start, err)
	}
	out := make([]model.RoundResult, len(recs))
	for i, rec := range recs {
		out[i] = rec.toModel()
	}
	return out, s.finish("round_results", start, nil)
}

// SeedResults inserts a blank row per competitor. Rows that already exist
// are left untouched. It returns the number of rows inserted.
func (s *Store) SeedResults(ctx context.Context, roundID uint, competitorIDs []uint) (int, error) {
	start := time.Now()
	if len(competitorIDs) == 0 {
		return 0, s.finish("seed_results", start, nil)
	}
	recs := make([]resultRecord, len(competitorIDs))
	for i, id := range competitorIDs {
		recs[i] = resultRecord{CompetitorID: id, RoundID: roundID, Attempts: attemptList{}}
	}
	res := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&recs)
	return int(res.RowsAffected), s.finish("seed_results", start, res.Error)
}

// ClearResults resets every row of a round to empty attempts and NULL
// best and result. It returns the number of rows reset.
func (s *Store) ClearResults(ctx context.Context, roundID uint) (int, error) {
	start := time.Now()
	res := s.db.WithContext(ctx).
		Model(&resultRecord{}).
		Where("round_id = ?", roundID).
		Updates(map[string]any{
			"attempts": attemptList{},
			"best":     gorm.Expr("NULL"),
			"result":   gorm.Expr("NULL"),
		})
	return int(res.RowsAffected), s.finish("clear_results", start, res.Error)
}

// SaveResult writes attempts, best and result of one seeded row together.
func (s *Store) SaveResult(ctx context.Context, r model.RoundResult) error {
	start := time.Now()
	res := s.db.WithContext(ctx).
		Model(&resultRecord{}).
		Where("competitor_id = ? AND round_id = ?", r.CompetitorID, r.RoundID).
		Updates(map[string]any{
			"attempts": attemptList(append([]attempt.Attempt{}, r.Attempts...)),
			"best":     nullable(r.Best.Encode()),
			"result":   nullable(r.Result.Encode()),
		})
	if res.Error == nil && res.RowsAffected == 0 {
		return s.finish("save_result", start, errs.WrapKind("", errs.ErrNotFound, ErrResultNotSeeded))
	}
	return s.finish("save_result", start, res.Error)
}

// Stats counts stored rows.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats
	db := s.db.WithContext(ctx)
	open := func(q *gorm.DB) *gorm.DB { return q.Where("open = ?", true) }
	scored := func(q *gorm.DB) *gorm.DB { return q.Where("result IS NOT NULL") }
	counts := []struct {
		model any
		scope func(*gorm.DB) *gorm.DB
		dst   *int64
	}{
		{&competitionRecord{}, nil, &st.Competitions},
		{&competitorRecord{}, nil, &st.Competitors},
		{&eventRecord{}, nil, &st.Events},
		{&roundRecord{}, nil, &st.Rounds},
		{&roundRecord{}, open, &st.OpenRounds},
		{&resultRecord{}, nil, &st.Results},
		{&resultRecord{}, scored, &st.ScoredResults},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.scope != nil {
			q = q.Scopes(c.scope)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return Stats{}, s.finish("stats", start, err)
		}
	}
	return st, s.finish("stats", start, nil)
}

// RoundCounts returns seeded and scored row counts per round.
func (s *Store) RoundCounts(ctx context.Context) ([]RoundCount, error) {
	start := time.Now()
	var out []RoundCount
	err := s.db.WithContext(ctx).
		Model(&resultRecord{}).
		Select("round_id, COUNT(*) AS entries, COUNT(result) AS scored").
		Group("round_id").
		Order("round_id").
		Scan(&out).Error
	return out, s.finish("round_counts", start, err)
}

func nullable(v *float64) any {
	if v == nil {
		return gorm.Expr("NULL")
	}
	return *v
}

// notFound swaps gorm's record-not-found for a domain cause.
func notFound(err, cause error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.WrapKind("", errs.ErrNotFound, cause)
	}
	return err
}
