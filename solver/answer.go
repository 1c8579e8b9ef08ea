package solver

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind discriminates the Answer union.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
)

// Answer is the normalised model output: an integer, a float, or the raw
// trimmed text. It marshals to a bare JSON number or string so the scorer
// sees the same payload the quiz expects.
type Answer struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
}

// MarshalJSON emits the active member of the union.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindInt:
		return json.Marshal(a.Int)
	case KindFloat:
		return json.Marshal(a.Float)
	default:
		return json.Marshal(a.Text)
	}
}

// String renders the answer for logs and store rows.
func (a Answer) String() string {
	switch a.Kind {
	case KindInt:
		return strconv.FormatInt(a.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(a.Float, 'g', -1, 64)
	default:
		return a.Text
	}
}

// Normalize coerces raw model output to a number when it is fully numeric.
// A decimal string with zero fractional part becomes an integer ("42.0" →
// 42); a nonzero fractional part stays a float; anything unparsable is the
// trimmed text verbatim. Lenient on purpose: the scorer, not this service,
// judges correctness.
func Normalize(raw string) Answer {
	trimmed := strings.TrimSpace(raw)

	if strings.Contains(trimmed, ".") {
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Answer{Kind: KindText, Text: trimmed}
		}
		if f == float64(int64(f)) {
			return Answer{Kind: KindInt, Int: int64(f)}
		}
		return Answer{Kind: KindFloat, Float: f}
	}

	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return Answer{Kind: KindText, Text: trimmed}
	}
	return Answer{Kind: KindInt, Int: n}
}
