// Package advancement decides which competitors of a ranked round proceed
// to the next round.
package advancement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/ranking"
	"github.com/okian/speedcube/internal/errs"
)

// TiePolicy controls what happens when tied competitors straddle the
// advancement threshold.
type TiePolicy uint8

const (
	// SliceByPosition admits exactly the first threshold valued rows by
	// position, splitting ties at the boundary.
	SliceByPosition TiePolicy = iota
	// AdmitTies also admits every row sharing the rank of the last admitted row.
	AdmitTies
)

// ParseTiePolicy accepts "slice" and "admit_ties" (case-insensitive).
func ParseTiePolicy(s string) (TiePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "slice":
		return SliceByPosition, nil
	case "admit_ties":
		return AdmitTies, nil
	}
	return 0, errs.New("advancement.parse_tie_policy", errs.ErrValidation, fmt.Sprintf("unknown tie policy %q", s))
}

func (p TiePolicy) String() string {
	if p == AdmitTies {
		return "admit_ties"
	}
	return "slice"
}

// Threshold computes how many competitors proceed under rule from a round
// of total entrants: a count is used as is, a fraction is floor(f * total).
func Threshold(rule model.ProceedRule, total int) (int, error) {
	const op = "advancement.threshold"
	if err := rule.Validate(); err != nil {
		return 0, errs.Wrap(op, err)
	}
	switch rule.Kind {
	case model.ProceedCount:
		return rule.Count, nil
	case model.ProceedFraction:
		n := decimal.NewFromFloat(rule.Fraction).Mul(decimal.NewFromInt(int64(total))).Floor()
		return int(n.IntPart()), nil
	default:
		return 0, errs.New(op, errs.ErrValidation, "final round has no advancement")
	}
}

// Select returns the competitors proceeding from st under rule, in rank order.
// Only valued rows can proceed.
func Select(st ranking.Standings, rule model.ProceedRule, policy TiePolicy) ([]uint, error) {
	threshold, err := Threshold(rule, st.Total())
	if err != nil {
		return nil, err
	}
	n := min(threshold, len(st.Valued))
	if policy == AdmitTies && n > 0 {
		last := st.Valued[n-1].Rank
		for n < len(st.Valued) && st.Valued[n].Rank == last {
			n++
		}
	}
	ids := make([]uint, n)
	for i := 0; i < n; i++ {
		ids[i] = st.Valued[i].CompetitorID
	}
	return ids, nil
}
