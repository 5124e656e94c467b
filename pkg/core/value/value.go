package value

import (
	"fmt"
	"math"
	"strconv"
	"unique"
)

// Type represents the tag in the Value tagged union.
type Type uint8

const (
	TypeNone Type = iota
	TypeFloat
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Value is a tagged union carried by tokens.
// Floats live in Data as IEEE754 bits; strings are interned handles.
type Value struct {
	Type Type
	Data uint64
	str  unique.Handle[string]
}

// None returns the empty payload.
func None() Value {
	return Value{}
}

// Float wraps a float64.
func Float(f float64) Value {
	return Value{Type: TypeFloat, Data: math.Float64bits(f)}
}

// String interns s. Two values built from equal strings compare equal with ==.
func String(s string) Value {
	return Value{Type: TypeString, str: unique.Make(s)}
}

// IsNone reports whether the value carries no payload.
func (v Value) IsNone() bool {
	return v.Type == TypeNone
}

// Float returns the value as float64 and whether it holds one.
func (v Value) Float() (float64, bool) {
	if v.Type != TypeFloat {
		return 0, false
	}
	return math.Float64frombits(v.Data), true
}

// Str returns the interned string and whether the value holds one.
func (v Value) Str() (string, bool) {
	if v.Type != TypeString {
		return "", false
	}
	return v.str.Value(), true
}

// Format returns a string representation of the value.
func (v Value) Format() string {
	switch v.Type {
	case TypeFloat:
		return FormatFloat(math.Float64frombits(v.Data))
	case TypeString:
		return strconv.Quote(v.str.Value())
	default:
		return "none"
	}
}

// FormatFloat renders f in its natural decimal form: the shortest digits that
// round-trip, never in exponent notation. Non-finite values print as inf, -inf
// and NaN.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatLiteral renders f as a source literal for a target language that
// infers floating point from a fractional part: whole numbers get ".0".
func FormatLiteral(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return FormatFloat(f)
	}
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
