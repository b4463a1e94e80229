// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/speedcube/internal/errs"
)

// EventCode identifies a puzzle event. The set is closed; use ParseEventCode
// to convert untrusted input.
type EventCode string

// Supported event codes.
const (
	Event333   EventCode = "333"
	Event222   EventCode = "222"
	Event444   EventCode = "444"
	Event555   EventCode = "555"
	Event666   EventCode = "666"
	Event777   EventCode = "777"
	Event333OH EventCode = "333oh"
	Event333BF EventCode = "333bf"
	Event444BF EventCode = "444bf"
	Event555BF EventCode = "555bf"
	EventClock EventCode = "clock"
	EventMinx  EventCode = "minx"
	EventPyram EventCode = "pyram"
	EventSkewb EventCode = "skewb"
	EventSq1   EventCode = "sq1"
)

var eventNames = map[EventCode]string{
	Event333:   "3x3x3 Cube",
	Event222:   "2x2x2 Cube",
	Event444:   "4x4x4 Cube",
	Event555:   "5x5x5 Cube",
	Event666:   "6x6x6 Cube",
	Event777:   "7x7x7 Cube",
	Event333OH: "3x3x3 One-Handed",
	Event333BF: "3x3x3 Blindfolded",
	Event444BF: "4x4x4 Blindfolded",
	Event555BF: "5x5x5 Blindfolded",
	EventClock: "Clock",
	EventMinx:  "Megaminx",
	EventPyram: "Pyraminx",
	EventSkewb: "Skewb",
	EventSq1:   "Square-1",
}

// Family groups events by the attempt rule they follow.
type Family uint8

const (
	// FamilyStandard events take five attempts and are averaged.
	FamilyStandard Family = iota
	// FamilyBlind events take three attempts and rank by single.
	FamilyBlind
)

func (f Family) String() string {
	if f == FamilyBlind {
		return "blind"
	}
	return "standard"
}

// ParseEventCode validates s against the supported events (case-insensitive).
func ParseEventCode(s string) (EventCode, error) {
	c := EventCode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := eventNames[c]; !ok {
		return "", errs.New("model.parse_event_code", errs.ErrValidation, fmt.Sprintf("unknown event %q", s))
	}
	return c, nil
}

// Valid reports whether c is a supported event.
func (c EventCode) Valid() bool {
	_, ok := eventNames[c]
	return ok
}

// Name returns the display name of the event.
func (c EventCode) Name() string {
	if n, ok := eventNames[c]; ok {
		return n
	}
	return string(c)
}

// Family returns the attempt rule family of the event.
func (c EventCode) Family() Family {
	switch c {
	case Event333BF, Event444BF, Event555BF:
		return FamilyBlind
	default:
		return FamilyStandard
	}
}

// Competition groups events held together.
type Competition struct {
	ID        string
	Name      string
	ShortName string
	StartDate time.Time
	EndDate   time.Time
}

// Event is one puzzle event of a competition, optionally restricted to an age
// category (competitors under MaxAge).
type Event struct {
	ID            uint
	CompetitionID string
	Code          EventCode
	MaxAge        *int
}

// Label returns the event code with its age suffix, e.g. "333-12".
func (e Event) Label() string {
	if e.MaxAge == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s-%d", e.Code, *e.MaxAge)
}

// Competitor is a registered person.
type Competitor struct {
	ID     uint
	WCAID  *string
	Name   string
	Region *string
}

// Registration links a competitor to an event they entered.
type Registration struct {
	CompetitorID uint
	EventID      uint
}
