package scoretaker

import (
	"fmt"
	"slices"

	"github.com/okian/speedcube/internal/domain/advancement"
	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/ranking"
	"github.com/okian/speedcube/internal/domain/scoring"
	"github.com/okian/speedcube/internal/domain/types"
)

// Submission is what the scoretaker sent for one competitor.
type Submission struct {
	CompetitorID uint
	Name         string
	Attempts     []string
}

// Scorer recomputes results the way the server should.
type Scorer struct {
	format    scoring.Format
	timeLimit float64
}

// NewScorer resolves the scoring format of round in event.
func NewScorer(event model.Event, round model.Round) (Scorer, error) {
	format, err := scoring.FormatFor(event, round)
	if err != nil {
		return Scorer{}, err
	}
	s := Scorer{format: format}
	if round.HasTimeLimit() {
		s.timeLimit = *round.TimeLimit
	}
	return s, nil
}

// Score parses and aggregates one submission.
func (s Scorer) Score(roundID uint, sub Submission) (model.RoundResult, error) {
	as, err := attempt.ParseAll(sub.Attempts)
	if err != nil {
		return model.RoundResult{}, err
	}
	if n := s.format.Attempts(); len(as) < n {
		as = append(as, make([]attempt.Attempt, n-len(as))...)
	}
	as = scoring.ApplyTimeLimit(as, s.timeLimit, s.format)
	summary, err := scoring.Aggregate(as, s.format)
	if err != nil {
		return model.RoundResult{}, err
	}
	return model.RoundResult{
		CompetitorID: sub.CompetitorID,
		Competitor:   model.Competitor{ID: sub.CompetitorID, Name: sub.Name},
		RoundID:      roundID,
		Attempts:     as,
		Best:         summary.Best,
		Result:       summary.Result,
	}, nil
}

// Expected ranks every submission. Seeded competitors without a
// submission are included as never-scored rows.
func (s Scorer) Expected(roundID uint, subs []Submission, unscored map[uint]string) (ranking.Standings, error) {
	rows := make([]model.RoundResult, 0, len(subs)+len(unscored))
	for _, sub := range subs {
		row, err := s.Score(roundID, sub)
		if err != nil {
			return ranking.Standings{}, fmt.Errorf("competitor %d: %w", sub.CompetitorID, err)
		}
		rows = append(rows, row)
	}
	for id, name := range unscored {
		row := model.Blank(roundID, id)
		row.Competitor = model.Competitor{ID: id, Name: name}
		rows = append(rows, row)
	}
	return ranking.Rank(rows), nil
}

// VerifyStandings compares the server's standings with the expected ones.
// Rows must agree position by position on rank, name and values. Equal
// rows may be listed in either order, so competitor IDs are compared as
// sets.
func VerifyStandings(want ranking.Standings, got types.Standings) error {
	w := types.FromStandings(got.RoundID, want)
	if len(w.Valued) != len(got.Valued) || len(w.Blank) != len(got.Blank) {
		return fmt.Errorf("%w: round %d has %d valued and %d blank rows, want %d and %d", ErrMismatch,
			got.RoundID, len(got.Valued), len(got.Blank), len(w.Valued), len(w.Blank))
	}
	if err := compareRows("valued", w.Valued, got.Valued); err != nil {
		return err
	}
	if err := compareRows("blank", w.Blank, got.Blank); err != nil {
		return err
	}
	if !sameIDs(entryIDs(w.Valued, w.Blank), entryIDs(got.Valued, got.Blank)) {
		return fmt.Errorf("%w: round %d lists a different set of competitors", ErrMismatch, got.RoundID)
	}
	return nil
}

func compareRows(part string, want, got []types.StandingEntry) error {
	for i := range want {
		w, g := want[i], got[i]
		if w.Rank != g.Rank || w.Name != g.Name || w.Result != g.Result || w.Best != g.Best {
			return fmt.Errorf("%w: %s row %d is %d %q %s/%s, want %d %q %s/%s", ErrMismatch, part, i+1,
				g.Rank, g.Name, g.Result, g.Best, w.Rank, w.Name, w.Result, w.Best)
		}
	}
	return nil
}

// VerifyAdvancers checks the server's advancement preview against a local
// selection under the same rule and tie policy.
func VerifyAdvancers(want ranking.Standings, rule model.ProceedRule, got types.Advancers) ([]uint, error) {
	policy, err := advancement.ParseTiePolicy(got.TiePolicy)
	if err != nil {
		return nil, err
	}
	threshold, err := advancement.Threshold(rule, want.Total())
	if err != nil {
		return nil, err
	}
	if threshold != got.Threshold {
		return nil, fmt.Errorf("%w: threshold %d, want %d", ErrMismatch, got.Threshold, threshold)
	}
	ids, err := advancement.Select(want, rule, policy)
	if err != nil {
		return nil, err
	}
	if !sameIDs(ids, got.CompetitorIDs) {
		return nil, fmt.Errorf("%w: %d advancers %v, want %d %v", ErrMismatch,
			len(got.CompetitorIDs), got.CompetitorIDs, len(ids), ids)
	}
	return ids, nil
}

// VerifySeeding checks that an opened round holds exactly the advancers,
// all of them blank.
func VerifySeeding(advancers []uint, opened types.OpenRoundResponse, got types.Standings) error {
	if opened.Seeded != len(advancers) {
		return fmt.Errorf("%w: seeded %d, want %d", ErrMismatch, opened.Seeded, len(advancers))
	}
	if len(got.Valued) != 0 {
		return fmt.Errorf("%w: fresh round %d already has %d results", ErrMismatch, got.RoundID, len(got.Valued))
	}
	if !sameIDs(advancers, entryIDs(got.Blank)) {
		return fmt.Errorf("%w: round %d seeded with the wrong competitors", ErrMismatch, got.RoundID)
	}
	return nil
}

func entryIDs(parts ...[]types.StandingEntry) []uint {
	var ids []uint
	for _, p := range parts {
		for _, e := range p {
			ids = append(ids, e.CompetitorID)
		}
	}
	return ids
}

func sameIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
