package collection

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// SentinelUnknown is the persistence-format marker for "no data point". The
// archive records it as unknown, never as zero.
const SentinelUnknown = "U"

// Outcome reports which path of the normalizer produced a value.
type Outcome int

const (
	// OutcomeParsed means the raw value was a decimal number as given.
	OutcomeParsed Outcome = iota
	// OutcomeRecovered means a number was recovered after stripping units.
	OutcomeRecovered
	// OutcomeUnknown means no usable number was found.
	OutcomeUnknown
)

func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Value is an optional numeric result. The zero Value is unknown.
type Value struct {
	class Class
	f     float64
	i     int64
	known bool
}

// UnknownValue returns a Value with no data.
func UnknownValue(class Class) Value {
	return Value{class: class}
}

// Known reports whether the value holds a number.
func (v Value) Known() bool { return v.known }

// Class returns the storage class the value was normalized for.
func (v Value) Class() Class { return v.class }

// Float64 returns the value as a float64. Counter values are converted from
// their integer form.
func (v Value) Float64() (float64, bool) {
	if !v.known {
		return 0, false
	}
	if v.class == ClassCounter {
		return float64(v.i), true
	}
	return v.f, true
}

// Int64 returns the integer form of a counter value. For other classes the
// float is truncated toward zero.
func (v Value) Int64() (int64, bool) {
	if !v.known {
		return 0, false
	}
	if v.class == ClassCounter {
		return v.i, true
	}
	return truncate(v.f), true
}

// String renders the value in archive format: a decimal string, or
// SentinelUnknown.
func (v Value) String() string {
	if !v.known {
		return SentinelUnknown
	}
	if v.class == ClassCounter {
		return strconv.FormatInt(v.i, 10)
	}
	return formatReal(v.f)
}

// Normalize converts a raw textual value to a Value for the given class.
//
// The raw text is first parsed as a decimal number. If that fails, every
// rune other than ASCII digits, '-' and '.' is removed and the parse is
// retried once. Text with digit grouping separators and numbers out of the
// float64 range are not retried. Anything still unparseable yields an
// unknown Value. Normalize never panics.
func Normalize(raw string, class Class) (Value, Outcome) {
	v, err := parseValue(raw, class)
	if err == nil {
		return v, OutcomeParsed
	}
	// Stripping would drop the exponent marker of an out of range number and
	// change its magnitude.
	if errors.Is(err, strconv.ErrRange) || hasGroupingSeparator(raw) {
		return UnknownValue(class), OutcomeUnknown
	}
	if v, err := parseValue(stripUnits(raw), class); err == nil {
		return v, OutcomeRecovered
	}
	return UnknownValue(class), OutcomeUnknown
}

var errNotDecimal = errors.New("not a decimal number")

func parseValue(s string, class Class) (Value, error) {
	if !isDecimal(s) {
		return Value{}, errNotDecimal
	}
	if class == ClassCounter {
		// Exact for integers beyond 2^53.
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Value{class: class, i: i, known: true}, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, err
	}
	if class == ClassCounter {
		return Value{class: class, i: truncate(f), known: true}, nil
	}
	return Value{class: class, f: f, known: true}, nil
}

// isDecimal rejects spellings strconv.ParseFloat accepts but which are not
// decimal numbers: inf, nan, hex floats and underscores.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	digits := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = true
		case c == '-', c == '+', c == '.', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return digits
}

func stripUnits(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)
}

// hasGroupingSeparator reports a comma between two digits, as in "1,234".
// Such values are locale dependent ("1,5" is 1.5 in many locales).
func hasGroupingSeparator(s string) bool {
	for i := 1; i+1 < len(s); i++ {
		if s[i] == ',' && isDigit(s[i-1]) && isDigit(s[i+1]) {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// truncate converts toward zero, saturating at the int64 range.
func truncate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func formatReal(f float64) string {
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs < 1e-6 || abs >= 1e21 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
