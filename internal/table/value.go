package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
)

// Value is a single nullable table cell holding either a number or a string.
// The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	str  string
}

// Null returns the null cell.
func Null() Value {
	return Value{}
}

// Num returns a numeric cell. NaN and infinities are stored as null so a
// failed division can never leak into an output as a number.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Str returns a string cell.
func Str(s string) Value {
	return Value{kind: KindString, str: s}
}

// Kind returns the kind of the cell.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Float returns the number held by the cell.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Text returns the string held by the cell.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// String renders the cell for display and for CSV output. Null renders as
// the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	default:
		return ""
	}
}

// Equal reports whether two cells have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	default:
		return true
	}
}

// IsLabel reports whether the cell is the string s.
func (v Value) IsLabel(s string) bool {
	return v.kind == KindString && v.str == s
}

// Compare orders cells: null first, then numbers ascending, then strings in
// byte order.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(a.str, b.str)
	default:
		return 0
	}
}

// ParseNumber converts raw text to a numeric cell. Empty text is null.
func ParseNumber(raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Null(), nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return Null(), err
	}
	return Num(f), nil
}

// ParseLabel converts raw text to a string cell. Empty text is null.
func ParseLabel(raw string) Value {
	if raw == "" {
		return Null()
	}
	return Str(raw)
}

// FromAny converts a Go value to a cell.
func FromAny(x interface{}) Value {
	switch val := x.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case float64:
		return Num(val)
	case float32:
		return Num(float64(val))
	case int:
		return Num(float64(val))
	case int32:
		return Num(float64(val))
	case int64:
		return Num(float64(val))
	case string:
		return Str(val)
	case []byte:
		return Str(string(val))
	case bool:
		if val {
			return Str("true")
		}
		return Str("false")
	default:
		return Null()
	}
}
