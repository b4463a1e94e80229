// Package scoring turns a competitor's raw attempts for a round into the
// round's summary values (best single and official result).
package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/errs"
)

// Format selects the aggregation rule of a round.
type Format uint8

// Scoring formats.
const (
	// AO5Cutoff is average of 5 where competitors must make a cutoff in their first two attempts.
	AO5Cutoff Format = iota + 1
	// AO5Plain is average of 5 without cutoff.
	AO5Plain
	// BO3 is best of 3, used by blindfolded events.
	BO3
)

// Attempt counts per format.
const (
	ao5Attempts    = 5
	bo3Attempts    = 3
	cutoffAttempts = 2
	averagePlaces  = 2
)

func (f Format) String() string {
	switch f {
	case AO5Cutoff:
		return "ao5_cutoff"
	case AO5Plain:
		return "ao5"
	case BO3:
		return "bo3"
	default:
		return "unknown"
	}
}

// Attempts returns how many attempt slots a result row of this format has.
func (f Format) Attempts() int {
	if f == BO3 {
		return bo3Attempts
	}
	return ao5Attempts
}

// FormatFor derives the scoring format of a round. Blind events always use
// best of 3; head-to-head rounds cannot be scored here.
func FormatFor(event model.Event, round model.Round) (Format, error) {
	const op = "scoring.format_for"
	switch {
	case round.Format == model.FormatH2H:
		return 0, errs.New(op, errs.ErrValidation, "head-to-head rounds are not ranked by time")
	case event.Code.Family() == model.FamilyBlind || round.Format == model.FormatBO3:
		return BO3, nil
	case round.HasCutoff():
		return AO5Cutoff, nil
	default:
		return AO5Plain, nil
	}
}

// Summary holds the derived values of a result row.
type Summary struct {
	Best   model.Value
	Result model.Value
}

// Aggregate computes best and result for attempts under format.
func Aggregate(attempts []attempt.Attempt, format Format) (Summary, error) {
	switch format {
	case AO5Cutoff:
		return AggregateAo5(attempts, true)
	case AO5Plain:
		return AggregateAo5(attempts, false)
	case BO3:
		return AggregateBo3(attempts)
	default:
		return Summary{}, errs.New("scoring.aggregate", errs.ErrValidation, fmt.Sprintf("unknown format %d", format))
	}
}

type tally struct {
	positives []attempt.Attempt
	failed    int
	empty     int
	best      attempt.Attempt
	worst     attempt.Attempt
}

func count(op string, attempts []attempt.Attempt, want int) (tally, error) {
	var t tally
	if len(attempts) != want {
		return t, errs.New(op, errs.ErrValidation, fmt.Sprintf("expected %d attempts, got %d", want, len(attempts)))
	}
	for _, a := range attempts {
		if err := attempt.Validate(a); err != nil {
			return t, errs.Wrap(op, err)
		}
		switch {
		case a.IsTime():
			if len(t.positives) == 0 || a < t.best {
				t.best = a
			}
			if len(t.positives) == 0 || a > t.worst {
				t.worst = a
			}
			t.positives = append(t.positives, a)
		case a.IsFailed():
			t.failed++
		default:
			t.empty++
		}
	}
	if t.empty == want {
		return t, errs.New(op, errs.ErrValidation, "no attempts entered")
	}
	return t, nil
}

func (t tally) bestValue() model.Value {
	if len(t.positives) == 0 {
		return model.DNFValue()
	}
	return model.Time(float64(t.best))
}

// AggregateAo5 applies the average-of-5 rule. With cutoff active, a
// competitor with at most two valid times gets no average (CutoffMiss).
// Two or more DNF/DNS force a DNF average; otherwise the best and worst
// attempts (a single DNF counting as the worst) are dropped and the other
// three averaged, rounded to hundredths.
func AggregateAo5(attempts []attempt.Attempt, cutoff bool) (Summary, error) {
	const op = "scoring.ao5"
	t, err := count(op, attempts, ao5Attempts)
	if err != nil {
		return Summary{}, err
	}

	if cutoff && len(t.positives) <= cutoffAttempts {
		return Summary{Best: t.bestValue(), Result: model.CutoffMissValue()}, nil
	}
	if t.empty > 0 {
		return Summary{}, errs.New(op, errs.ErrValidation, fmt.Sprintf("%d of %d attempts are empty", t.empty, ao5Attempts))
	}
	if t.failed == ao5Attempts {
		return Summary{Best: model.DNFValue(), Result: model.DNFValue()}, nil
	}
	if t.failed >= 2 {
		return Summary{Best: t.bestValue(), Result: model.DNFValue()}, nil
	}

	sum := decimal.Zero
	for _, a := range t.positives {
		sum = sum.Add(decimal.NewFromFloat(float64(a)))
	}
	sum = sum.Sub(decimal.NewFromFloat(float64(t.best)))
	if t.failed == 0 {
		sum = sum.Sub(decimal.NewFromFloat(float64(t.worst)))
	}
	mean, _ := sum.Div(decimal.NewFromInt(ao5Attempts - 2)).Round(averagePlaces).Float64()
	return Summary{Best: t.bestValue(), Result: model.Time(mean)}, nil
}

// AggregateBo3 applies the best-of-3 rule: result and best are the fastest
// valid attempt, or DNF when none is valid.
func AggregateBo3(attempts []attempt.Attempt) (Summary, error) {
	t, err := count("scoring.bo3", attempts, bo3Attempts)
	if err != nil {
		return Summary{}, err
	}
	b := t.bestValue()
	return Summary{Best: b, Result: b}, nil
}

// ApplyTimeLimit converts attempts that exceed the round's time limit.
// Average formats apply the limit per attempt: an attempt at or over the
// limit becomes DNF. Best of 3 applies it cumulatively: the attempt that
// brings the running total to the limit becomes DNF and every later attempt
// DNS. The input is not modified.
func ApplyTimeLimit(attempts []attempt.Attempt, limit float64, format Format) []attempt.Attempt {
	out := make([]attempt.Attempt, len(attempts))
	copy(out, attempts)
	if limit <= 0 {
		return out
	}
	if format != BO3 {
		for i, a := range out {
			if a.IsTime() && float64(a) >= limit {
				out[i] = attempt.DNF
			}
		}
		return out
	}
	total := decimal.Zero
	lim := decimal.NewFromFloat(limit)
	for i, a := range out {
		if !a.IsTime() {
			continue
		}
		total = total.Add(decimal.NewFromFloat(float64(a)))
		if total.GreaterThanOrEqual(lim) {
			out[i] = attempt.DNF
			for j := i + 1; j < len(out); j++ {
				out[j] = attempt.DNS
			}
			break
		}
	}
	return out
}

// MadeCutoff reports whether either of the first two attempts is a valid
// time strictly under cutoff.
func MadeCutoff(attempts []attempt.Attempt, cutoff float64) bool {
	for i := 0; i < cutoffAttempts && i < len(attempts); i++ {
		if attempts[i].IsTime() && float64(attempts[i]) < cutoff {
			return true
		}
	}
	return false
}

// CheckCutoff rejects attempts after the second for a competitor who did
// not make the cutoff.
func CheckCutoff(attempts []attempt.Attempt, cutoff float64) error {
	if MadeCutoff(attempts, cutoff) {
		return nil
	}
	for i := cutoffAttempts; i < len(attempts); i++ {
		if !attempts[i].IsEmpty() {
			return errs.New("scoring.check_cutoff", errs.ErrValidation,
				fmt.Sprintf("cutoff %s not made; attempt %d must be empty", attempt.Format(attempt.Attempt(cutoff)), i+1))
		}
	}
	return nil
}
