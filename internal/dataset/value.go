package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the coerced type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

// Value is one coerced cell: null, a finite number, or the original text.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

// Null is the empty value.
var Null = Value{}

// Number wraps a float as a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text wraps s as a text Value; the empty string becomes Null.
func Text(s string) Value {
	if s == "" {
		return Null
	}
	return Value{Kind: KindText, Text: s}
}

// ParseValue coerces a raw cell. Blank cells become Null, finite decimal
// numbers become numbers, and anything else keeps its original text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null
	}
	if f, ok := parseNumber(s); ok {
		return Number(f)
	}
	return Value{Kind: KindText, Text: raw}
}

func parseNumber(s string) (float64, bool) {
	// ParseFloat also understands "inf", "nan", hex floats and digit
	// separators; none of those count as numbers in a data cell.
	if strings.ContainsAny(s, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsEmpty reports whether v is null or empty text.
func (v Value) IsEmpty() bool { return v.Kind == KindNull || (v.Kind == KindText && v.Text == "") }

// Float returns the numeric view of v. Text and null values are not numbers.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String renders v for display. Numbers use the shortest form that parses back
// to the same float.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return []byte(strconv.FormatFloat(v.Num, 'f', -1, 64)), nil
	case KindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}
