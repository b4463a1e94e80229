package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
)

// attemptList stores a row's attempts as a JSON array of numbers.
type attemptList []attempt.Attempt

// Value implements driver.Valuer.
func (a attemptList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]attempt.Attempt(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *attemptList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = attemptList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("attempts: unsupported column type %T", src)
	}
	var out []attempt.Attempt
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("attempts: %w", err)
	}
	if out == nil {
		out = []attempt.Attempt{}
	}
	*a = out
	return nil
}

type competitionRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"not null"`
	ShortName string `gorm:"size:32"`
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

func (competitionRecord) TableName() string { return "competitions" }

type competitorRecord struct {
	ID        uint    `gorm:"primaryKey"`
	WCAID     *string `gorm:"column:wca_id;size:10;uniqueIndex"`
	Name      string  `gorm:"not null"`
	Region    *string `gorm:"size:64"`
	CreatedAt time.Time
}

func (competitorRecord) TableName() string { return "competitors" }

type eventRecord struct {
	ID            uint   `gorm:"primaryKey"`
	CompetitionID string `gorm:"size:36;not null;index"`
	Code          string `gorm:"size:8;not null"`
	MaxAge        *int
	CreatedAt     time.Time
}

func (eventRecord) TableName() string { return "events" }

type registrationRecord struct {
	CompetitorID uint `gorm:"primaryKey;autoIncrement:false"`
	EventID      uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt    time.Time
}

func (registrationRecord) TableName() string { return "registrations" }

type roundRecord struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   uint   `gorm:"not null;uniqueIndex:idx_rounds_event_number"`
	Number    int    `gorm:"not null;uniqueIndex:idx_rounds_event_number"`
	Format    string `gorm:"size:3;not null"`
	Open      bool   `gorm:"not null;default:false"`
	Proceed   *float64
	Cutoff    *float64
	TimeLimit *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (roundRecord) TableName() string { return "rounds" }

type resultRecord struct {
	ID           uint             `gorm:"primaryKey"`
	CompetitorID uint             `gorm:"not null;uniqueIndex:idx_results_competitor_round"`
	RoundID      uint             `gorm:"not null;uniqueIndex:idx_results_competitor_round;index"`
	Attempts     attemptList      `gorm:"type:text;not null"`
	Best         *float64
	Result       *float64
	UpdatedAt    time.Time
	Competitor   competitorRecord `gorm:"foreignKey:CompetitorID"`
}

func (resultRecord) TableName() string { return "results" }

func fromCompetition(c model.Competition) competitionRecord {
	return competitionRecord{ID: c.ID, Name: c.Name, ShortName: c.ShortName, StartDate: c.StartDate, EndDate: c.EndDate}
}

func (r competitionRecord) toModel() model.Competition {
	return model.Competition{ID: r.ID, Name: r.Name, ShortName: r.ShortName, StartDate: r.StartDate, EndDate: r.EndDate}
}

func fromCompetitor(c model.Competitor) competitorRecord {
	return competitorRecord{ID: c.ID, WCAID: c.WCAID, Name: c.Name, Region: c.Region}
}

func (r competitorRecord) toModel() model.Competitor {
	return model.Competitor{ID: r.ID, WCAID: r.WCAID, Name: r.Name, Region: r.Region}
}

func fromEvent(e model.Event) eventRecord {
	return eventRecord{ID: e.ID, CompetitionID: e.CompetitionID, Code: string(e.Code), MaxAge: e.MaxAge}
}

func (r eventRecord) toModel() model.Event {
	return model.Event{ID: r.ID, CompetitionID: r.CompetitionID, Code: model.EventCode(r.Code), MaxAge: r.MaxAge}
}

func fromRound(r model.Round) roundRecord {
	return roundRecord{
		ID:        r.ID,
		EventID:   r.EventID,
		Number:    r.Number,
		Format:    string(r.Format),
		Open:      r.Open,
		Proceed:   r.Proceed.Encode(),
		Cutoff:    r.Cutoff,
		TimeLimit: r.TimeLimit,
	}
}

func (r roundRecord) toModel() (model.Round, error) {
	proceed, err := model.DecodeProceed(r.Proceed)
	if err != nil {
		return model.Round{}, err
	}
	return model.Round{
		ID:        r.ID,
		EventID:   r.EventID,
		Number:    r.Number,
		Format:    model.FormatCode(r.Format),
		Open:      r.Open,
		Proceed:   proceed,
		Cutoff:    r.Cutoff,
		TimeLimit: r.TimeLimit,
	}, nil
}

func (r resultRecord) toModel() model.RoundResult {
	attempts := []attempt.Attempt(r.Attempts)
	if attempts == nil {
		attempts = []attempt.Attempt{}
	}
	return model.RoundResult{
		CompetitorID: r.CompetitorID,
		Competitor:   r.Competitor.toModel(),
		RoundID:      r.RoundID,
		Attempts:     attempts,
		Best:         model.DecodeBest(r.Best),
		Result:       model.DecodeResult(r.Result),
	}
}
