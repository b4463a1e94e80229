// Package attempt converts between score-entry time text and the numeric
// attempt encoding stored per result row.
//
// Encoding:
//
//	> 0  elapsed seconds
//	  0  empty (not attempted, or skipped after a cutoff)
//	 -1  DNF
//	 -2  DNS
package attempt

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/speedcube/internal/errs"
)

// Attempt is a single timed attempt in its numeric encoding.
type Attempt float64

// Sentinel encodings.
const (
	Empty Attempt = 0
	DNF   Attempt = -1
	DNS   Attempt = -2
)

// Wire tokens.
const (
	TokenDNF  = "DNF"
	TokenDNS  = "DNS"
	TokenNone = "None"
)

const (
	secondsPerMinute = 60
	centisPerMinute  = 6000
	centisPerSecond  = 100
	precision        = 2
)

var timePattern = regexp.MustCompile(`^(?:(\d+):)?(\d+(?:\.\d+)?)$`)

// IsTime reports whether a carries an elapsed time.
func (a Attempt) IsTime() bool { return a > 0 }

// IsFailed reports whether a is DNF or DNS.
func (a Attempt) IsFailed() bool { return a < 0 }

// IsEmpty reports whether the slot was not attempted.
func (a Attempt) IsEmpty() bool { return a == 0 }

// String renders a in the wire vocabulary.
func (a Attempt) String() string { return Format(a) }

// Validate rejects negative values other than the DNF and DNS sentinels, and NaN/Inf.
func Validate(a Attempt) error {
	const op = "attempt.validate"
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errs.New(op, errs.ErrValidation, "attempt is not a finite number")
	}
	if a < 0 && a != DNF && a != DNS {
		return errs.New(op, errs.ErrValidation, fmt.Sprintf("invalid attempt code %v", f))
	}
	return nil
}

// Parse converts score-entry text into an Attempt.
// Accepts "", "DNF", "DNS", "S[.ff]" and "M:SS[.ff]". Digits past the
// hundredths are truncated.
func Parse(text string) (Attempt, error) {
	const op = "attempt.parse"
	t := strings.TrimSpace(text)
	switch t {
	case "":
		return Empty, nil
	case TokenDNF:
		return DNF, nil
	case TokenDNS:
		return DNS, nil
	}
	m := timePattern.FindStringSubmatch(t)
	if m == nil {
		return 0, errs.New(op, errs.ErrFormat, fmt.Sprintf("invalid time format %q", text))
	}
	seconds, err := decimal.NewFromString(m[2])
	if err != nil {
		return 0, errs.WrapKind(op, errs.ErrFormat, err)
	}
	if m[1] != "" {
		minutes, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, errs.WrapKind(op, errs.ErrFormat, err)
		}
		seconds = seconds.Add(decimal.NewFromInt(minutes * secondsPerMinute))
	}
	v, _ := seconds.Truncate(precision).Float64()
	return Attempt(v), nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(text string) Attempt {
	a, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAll parses a list of attempt texts, failing on the first malformed one.
func ParseAll(texts []string) ([]Attempt, error) {
	out := make([]Attempt, len(texts))
	for i, t := range texts {
		a, err := Parse(t)
		if err != nil {
			return nil, errs.Wrap(fmt.Sprintf("attempt %d", i+1), err)
		}
		out[i] = a
	}
	return out, nil
}

// Format renders an Attempt in the wire vocabulary: "" for empty, DNF/DNS
// tokens, "S.ff" under a minute and "M:SS.ff" otherwise. NaN and unknown
// negative codes render as "None".
func Format(a Attempt) string {
	f := float64(a)
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return TokenNone
	case a == Empty:
		return ""
	case a == DNF:
		return TokenDNF
	case a == DNS:
		return TokenDNS
	case a < 0:
		return TokenNone
	}
	return formatSeconds(f)
}

// FormatValue renders a nullable numeric value; nil means "not computed".
func FormatValue(v *float64) string {
	if v == nil {
		return TokenNone
	}
	return Format(Attempt(*v))
}

// FormatAll renders every attempt in order.
func FormatAll(as []Attempt) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = Format(a)
	}
	return out
}

func formatSeconds(f float64) string {
	d := decimal.NewFromFloat(f).Round(precision)
	centis := d.Shift(precision).IntPart()
	if centis < secondsPerMinute*centisPerSecond {
		return d.StringFixed(precision)
	}
	minutes := centis / centisPerMinute
	rest := centis % centisPerMinute
	return fmt.Sprintf("%d:%02d.%02d", minutes, rest/centisPerSecond, rest%centisPerSecond)
}

// FromDigits turns keypad entry into canonical time text: the last two
// digits are hundredths, the two before are seconds and anything further
// left is minutes. "/" and "*" are shortcuts for DNF and DNS. Separators
// ':' and '.' are ignored; any other character yields "".
func FromDigits(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	switch t {
	case "/", TokenDNF:
		return TokenDNF
	case "*", TokenDNS:
		return TokenDNS
	}
	var b strings.Builder
	for _, r := range t {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ':' || r == '.':
		default:
			return ""
		}
	}
	digits := b.String()
	switch n := len(digits); {
	case n == 0:
		return ""
	case n <= 2:
		return "0." + strings.Repeat("0", 2-n) + digits
	case n <= 4:
		sec, _ := strconv.Atoi(digits[:n-2])
		return fmt.Sprintf("%d.%s", sec, digits[n-2:])
	default:
		minutes, _ := strconv.Atoi(digits[:n-4])
		return fmt.Sprintf("%d:%s.%s", minutes, digits[n-4:n-2], digits[n-2:])
	}
}
