package model

import (
	"math"

	"github.com/okian/speedcube/internal/domain/attempt"
)

// ValueKind tags a summary value (best or result).
type ValueKind uint8

const (
	// Unscored means not computed yet (stored as NULL).
	Unscored ValueKind = iota
	// CutoffMiss means the competitor did not make the cutoff and has no average (stored as 0).
	CutoffMiss
	// DNF means every counting attempt failed (stored as -1).
	DNF
	// Timed carries a positive number of seconds.
	Timed
)

func (k ValueKind) String() string {
	switch k {
	case CutoffMiss:
		return "cutoff_miss"
	case DNF:
		return "dnf"
	case Timed:
		return "timed"
	default:
		return "unscored"
	}
}

// Value is a best or result value kept as an explicit variant. It is
// flattened to the numeric encoding only at the storage boundary.
type Value struct {
	Kind    ValueKind
	Seconds float64
}

// Time returns a Timed value.
func Time(seconds float64) Value { return Value{Kind: Timed, Seconds: seconds} }

// DNFValue returns a DNF value.
func DNFValue() Value { return Value{Kind: DNF} }

// CutoffMissValue returns a cutoff-miss value.
func CutoffMissValue() Value { return Value{Kind: CutoffMiss} }

// UnscoredValue returns the not-computed value.
func UnscoredValue() Value { return Value{} }

// IsTimed reports whether v carries a positive time.
func (v Value) IsTimed() bool { return v.Kind == Timed }

// IsDefined reports whether v was computed.
func (v Value) IsDefined() bool { return v.Kind != Unscored }

// SortKey orders values for ranking: timed values by seconds, everything
// else after every timed value.
func (v Value) SortKey() float64 {
	if v.Kind == Timed {
		return v.Seconds
	}
	return math.Inf(1)
}

// Encode flattens v to the stored numeric form.
func (v Value) Encode() *float64 {
	var f float64
	switch v.Kind {
	case Unscored:
		return nil
	case CutoffMiss:
		f = 0
	case DNF:
		f = float64(attempt.DNF)
	case Timed:
		f = v.Seconds
	}
	return &f
}

// DecodeResult reads a stored result: NULL unscored, 0 cutoff miss, any
// other non-positive value DNF.
func DecodeResult(f *float64) Value {
	switch {
	case f == nil:
		return UnscoredValue()
	case *f > 0:
		return Time(*f)
	case *f == 0:
		return CutoffMissValue()
	default:
		return DNFValue()
	}
}

// DecodeBest reads a stored best. A best of 0 (blank seed rows) is unscored.
func DecodeBest(f *float64) Value {
	switch {
	case f == nil || *f == 0:
		return UnscoredValue()
	case *f > 0:
		return Time(*f)
	default:
		return DNFValue()
	}
}

// Format renders v in the wire vocabulary ("None" when not computed).
func (v Value) Format() string {
	switch v.Kind {
	case Timed:
		return attempt.Format(attempt.Attempt(v.Seconds))
	case DNF:
		return attempt.TokenDNF
	case CutoffMiss:
		return ""
	default:
		return attempt.TokenNone
	}
}

// RoundResult is one (competitor, round) row.
type RoundResult struct {
	CompetitorID uint
	Competitor   Competitor
	RoundID      uint
	Attempts     []attempt.Attempt
	Best         Value
	Result       Value
}

// Name returns the competitor display name used for tie-breaks.
func (r RoundResult) Name() string { return r.Competitor.Name }

// Blank returns a freshly seeded row.
func Blank(roundID, competitorID uint) RoundResult {
	return RoundResult{
		CompetitorID: competitorID,
		RoundID:      roundID,
		Attempts:     []attempt.Attempt{},
	}
}
