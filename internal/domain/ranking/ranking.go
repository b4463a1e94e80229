// Package ranking orders a round's result rows into standings.
//
// Rows with a positive result are "valued" and receive ranks; every other
// row (DNF average, cutoff miss, not yet scored) is "blank" and listed after
// them without a rank.
package ranking

import (
	"sort"
	"strings"

	"github.com/okian/speedcube/internal/domain/model"
)

// Ranked is a valued row with its rank.
type Ranked struct {
	model.RoundResult
	Rank int
}

// Standings is the canonical ordered view of a round.
type Standings struct {
	Valued []Ranked
	Blank  []model.RoundResult
}

// Total returns the number of entrants (valued and blank).
func (s Standings) Total() int { return len(s.Valued) + len(s.Blank) }

// Rows returns every row in display order; blank rows get rank 0.
func (s Standings) Rows() []Ranked {
	out := make([]Ranked, 0, s.Total())
	out = append(out, s.Valued...)
	for _, r := range s.Blank {
		out = append(out, Ranked{RoundResult: r})
	}
	return out
}

// Rank partitions rows into valued and blank sets and orders both.
//
// Valued rows sort by result, then best, then competitor name. Tied
// (result, best) pairs share a rank and the next distinct row takes its
// position, giving 1, 1, 3.
//
// Blank rows with a defined result (DNF, cutoff miss) come before rows that
// were never scored; the former sort by best with non-times last. Names
// break the remaining ties.
func Rank(rows []model.RoundResult) Standings {
	var st Standings
	for _, r := range rows {
		if r.Result.IsTimed() {
			st.Valued = append(st.Valued, Ranked{RoundResult: r})
		} else {
			st.Blank = append(st.Blank, r)
		}
	}

	sort.SliceStable(st.Valued, func(i, j int) bool {
		return lessValued(st.Valued[i].RoundResult, st.Valued[j].RoundResult)
	})
	sort.SliceStable(st.Blank, func(i, j int) bool {
		return lessBlank(st.Blank[i], st.Blank[j])
	})

	for i := range st.Valued {
		if i > 0 && sameScore(st.Valued[i-1].RoundResult, st.Valued[i].RoundResult) {
			st.Valued[i].Rank = st.Valued[i-1].Rank
			continue
		}
		st.Valued[i].Rank = i + 1
	}
	return st
}

func lessValued(a, b model.RoundResult) bool {
	if a.Result.Seconds != b.Result.Seconds {
		return a.Result.Seconds < b.Result.Seconds
	}
	if ak, bk := a.Best.SortKey(), b.Best.SortKey(); ak != bk {
		return ak < bk
	}
	return strings.Compare(a.Name(), b.Name()) < 0
}

func lessBlank(a, b model.RoundResult) bool {
	ad, bd := a.Result.IsDefined(), b.Result.IsDefined()
	if ad != bd {
		return ad
	}
	if ad {
		if ak, bk := a.Best.SortKey(), b.Best.SortKey(); ak != bk {
			return ak < bk
		}
	}
	return strings.Compare(a.Name(), b.Name()) < 0
}

func sameScore(a, b model.RoundResult) bool {
	return a.Result.Seconds == b.Result.Seconds && a.Best.SortKey() == b.Best.SortKey()
}
