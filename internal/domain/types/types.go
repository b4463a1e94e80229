// Package types contains the wire shapes shared by the HTTP API and its clients.
package types

import (
	"time"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/ranking"
)

// StandingEntry is one row of a round's standings. Rank is 0 for blank rows.
type StandingEntry struct {
	Rank         int      `json:"rank,omitempty"`
	CompetitorID uint     `json:"competitor_id"`
	Name         string   `json:"name"`
	Attempts     []string `json:"attempts"`
	Best         string   `json:"best"`
	Result       string   `json:"result"`
}

// Standings is the {valued, blank} view of a round.
type Standings struct {
	RoundID uint            `json:"round_id"`
	Valued  []StandingEntry `json:"valued"`
	Blank   []StandingEntry `json:"blank"`
}

// Advancers lists who would proceed from a round.
type Advancers struct {
	RoundID       uint   `json:"round_id"`
	Rule          string `json:"rule"`
	Threshold     int    `json:"threshold"`
	TiePolicy     string `json:"tie_policy"`
	CompetitorIDs []uint `json:"competitor_ids"`
}

// Competition is the wire form of model.Competition.
type Competition struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Competitor is the wire form of model.Competitor.
type Competitor struct {
	ID     uint    `json:"id"`
	WCAID  *string `json:"wca_id,omitempty"`
	Name   string  `json:"name"`
	Region *string `json:"region,omitempty"`
}

// Event is the wire form of model.Event.
type Event struct {
	ID            uint   `json:"id"`
	CompetitionID string `json:"competition_id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Label         string `json:"label"`
	MaxAge        *int   `json:"max_age,omitempty"`
}

// Round is the wire form of model.Round. Proceed uses the stored encoding:
// null for a final, a count, or a fraction in (0,1).
type Round struct {
	ID        uint     `json:"id"`
	EventID   uint     `json:"event_id"`
	Number    int      `json:"number"`
	Format    string   `json:"format"`
	Open      bool     `json:"open"`
	Proceed   *float64 `json:"proceed"`
	Cutoff    *float64 `json:"cutoff,omitempty"`
	TimeLimit *float64 `json:"time_limit,omitempty"`
}

// CreateCompetitionRequest creates a competition.
type CreateCompetitionRequest struct {
	Name      string    `json:"name" validate:"required,max=128"`
	ShortName string    `json:"short_name" validate:"max=32"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date" validate:"omitempty,gtefield=StartDate"`
}

// CreateCompetitorRequest creates a competitor.
type CreateCompetitorRequest struct {
	Name   string  `json:"name" validate:"required,max=128"`
	WCAID  *string `json:"wca_id" validate:"omitempty,len=10,alphanum"`
	Region *string `json:"region" validate:"omitempty,max=64"`
}

// CreateEventRequest adds an event to a competition.
type CreateEventRequest struct {
	Code   string `json:"code" validate:"required"`
	MaxAge *int   `json:"max_age" validate:"omitempty,gt=0"`
}

// CreateRoundRequest adds a round to an event.
type CreateRoundRequest struct {
	Number    int      `json:"number" validate:"required,gte=1"`
	Format    string   `json:"format" validate:"required,oneof=AO5 BO3 H2H ao5 bo3 h2h"`
	Proceed   *float64 `json:"proceed" validate:"omitempty,gt=0"`
	Cutoff    *float64 `json:"cutoff" validate:"omitempty,gt=0"`
	TimeLimit *float64 `json:"time_limit" validate:"omitempty,gt=0"`
}

// UpdateRoundRequest replaces the rules of a round that is not open yet.
type UpdateRoundRequest struct {
	Format    string   `json:"format" validate:"required,oneof=AO5 BO3 H2H ao5 bo3 h2h"`
	Proceed   *float64 `json:"proceed" validate:"omitempty,gt=0"`
	Cutoff    *float64 `json:"cutoff" validate:"omitempty,gt=0"`
	TimeLimit *float64 `json:"time_limit" validate:"omitempty,gt=0"`
}

// RegisterRequest registers a competitor for an event.
type RegisterRequest struct {
	CompetitorID uint `json:"competitor_id" validate:"required"`
}

// SubmitResultRequest carries attempt texts as typed at the scoring table.
type SubmitResultRequest struct {
	Attempts []string `json:"attempts" validate:"required,min=1,max=5"`
}

// OpenRoundResponse reports how many rows opening a round seeded.
type OpenRoundResponse struct {
	Round  Round `json:"round"`
	Seeded int   `json:"seeded"`
}

// ClearRoundResponse reports how many rows were reset.
type ClearRoundResponse struct {
	RoundID uint `json:"round_id"`
	Cleared int  `json:"cleared"`
}

// Entry converts a ranked row.
func Entry(r ranking.Ranked) StandingEntry {
	return StandingEntry{
		Rank:         r.Rank,
		CompetitorID: r.CompetitorID,
		Name:         r.Name(),
		Attempts:     attempt.FormatAll(r.Attempts),
		Best:         r.Best.Format(),
		Result:       r.Result.Format(),
	}
}

// FromStandings converts ranked standings.
func FromStandings(roundID uint, st ranking.Standings) Standings {
	out := Standings{
		RoundID: roundID,
		Valued:  make([]StandingEntry, 0, len(st.Valued)),
		Blank:   make([]StandingEntry, 0, len(st.Blank)),
	}
	for _, r := range st.Valued {
		out.Valued = append(out.Valued, Entry(r))
	}
	for _, r := range st.Blank {
		out.Blank = append(out.Blank, Entry(ranking.Ranked{RoundResult: r}))
	}
	return out
}

// FromCompetition converts a competition.
func FromCompetition(c model.Competition) Competition {
	return Competition{ID: c.ID, Name: c.Name, ShortName: c.ShortName, StartDate: c.StartDate, EndDate: c.EndDate}
}

// FromCompetitor converts a competitor.
func FromCompetitor(c model.Competitor) Competitor {
	return Competitor{ID: c.ID, WCAID: c.WCAID, Name: c.Name, Region: c.Region}
}

// FromEvent converts an event.
func FromEvent(e model.Event) Event {
	return Event{
		ID:            e.ID,
		CompetitionID: e.CompetitionID,
		Code:          string(e.Code),
		Name:          e.Code.Name(),
		Label:         e.Label(),
		MaxAge:        e.MaxAge,
	}
}

// FromRound converts a round.
func FromRound(r model.Round) Round {
	return Round{
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
