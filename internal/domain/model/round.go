package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/speedcube/internal/errs"
)

// FormatCode is the stored format of a round.
type FormatCode string

// Round formats.
const (
	FormatAO5 FormatCode = "AO5"
	FormatBO3 FormatCode = "BO3"
	// FormatH2H rounds are head-to-head brackets and are never ranked here.
	FormatH2H FormatCode = "H2H"
)

// ParseFormatCode validates s against the supported round formats.
func ParseFormatCode(s string) (FormatCode, error) {
	f := FormatCode(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FormatAO5, FormatBO3, FormatH2H:
		return f, nil
	}
	return "", errs.New("model.parse_format_code", errs.ErrValidation, fmt.Sprintf("unknown round format %q", s))
}

// ProceedKind distinguishes advancement rules.
type ProceedKind uint8

const (
	// ProceedFinal marks a final round: nobody advances.
	ProceedFinal ProceedKind = iota
	// ProceedCount advances a fixed number of competitors.
	ProceedCount
	// ProceedFraction advances a share of the round's entrants.
	ProceedFraction
)

// ProceedRule says how many competitors move on from a round.
type ProceedRule struct {
	Kind     ProceedKind
	Count    int
	Fraction float64
}

// Final is the rule of a last round.
func Final() ProceedRule { return ProceedRule{Kind: ProceedFinal} }

// Top advances the first n competitors.
func Top(n int) ProceedRule { return ProceedRule{Kind: ProceedCount, Count: n} }

// Percent advances the given fraction (0,1) of entrants.
func Percent(f float64) ProceedRule { return ProceedRule{Kind: ProceedFraction, Fraction: f} }

// DecodeProceed converts the stored nullable number into a rule: NULL is a
// final round, an integral value is a count and a value in (0,1) a fraction.
func DecodeProceed(v *float64) (ProceedRule, error) {
	const op = "model.decode_proceed"
	if v == nil {
		return Final(), nil
	}
	f := *v
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0) || f <= 0:
		return ProceedRule{}, errs.New(op, errs.ErrValidation, fmt.Sprintf("invalid proceed value %v", f))
	case f > math.MaxInt32:
		return ProceedRule{}, errs.New(op, errs.ErrValidation, fmt.Sprintf("proceed count %v is too large", f))
	case f == math.Trunc(f):
		return Top(int(f)), nil
	case f < 1:
		return Percent(f), nil
	default:
		return ProceedRule{}, errs.New(op, errs.ErrValidation, fmt.Sprintf("proceed value %v is neither a count nor a fraction", f))
	}
}

// Encode flattens the rule for storage.
func (p ProceedRule) Encode() *float64 {
	switch p.Kind {
	case ProceedCount:
		v := float64(p.Count)
		return &v
	case ProceedFraction:
		v := p.Fraction
		return &v
	default:
		return nil
	}
}

// Validate checks the rule's parameters.
func (p ProceedRule) Validate() error {
	const op = "model.proceed_rule"
	switch p.Kind {
	case ProceedFinal:
		return nil
	case ProceedCount:
		if p.Count < 1 {
			return errs.New(op, errs.ErrValidation, "proceed count must be at least 1")
		}
	case ProceedFraction:
		if !(p.Fraction > 0 && p.Fraction < 1) {
			return errs.New(op, errs.ErrValidation, "proceed fraction must be in (0,1)")
		}
	default:
		return errs.New(op, errs.ErrValidation, "unknown proceed kind")
	}
	return nil
}

func (p ProceedRule) String() string {
	switch p.Kind {
	case ProceedCount:
		return fmt.Sprintf("top %d", p.Count)
	case ProceedFraction:
		return fmt.Sprintf("top %g%%", p.Fraction*100)
	default:
		return "final"
	}
}

// Round is one stage of an event.
type Round struct {
	ID        uint
	EventID   uint
	Number    int
	Format    FormatCode
	Open      bool
	Proceed   ProceedRule
	Cutoff    *float64
	TimeLimit *float64
}

// HasCutoff reports whether the round uses a cutoff.
func (r Round) HasCutoff() bool { return r.Cutoff != nil && *r.Cutoff > 0 }

// HasTimeLimit reports whether the round uses a time limit.
func (r Round) HasTimeLimit() bool { return r.TimeLimit != nil && *r.TimeLimit > 0 }

// IsFirst reports whether this is the event's first round.
func (r Round) IsFirst() bool { return r.Number == 1 }
