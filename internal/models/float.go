package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float is a float64 that may be missing. Quote fields, mid prices and
// every derived risk figure use it so that an absent value can never be
// mistaken for zero.
type Float struct {
	Float64 float64
	Valid   bool
}

// Some wraps v as a present value. NaN and infinities are treated as missing.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Float64: v, Valid: true}
}

// None is the missing value.
func None() Float { return Float{} }

// Get returns the value and whether it is present.
func (f Float) Get() (float64, bool) { return f.Float64, f.Valid }

// Ptr returns nil for a missing value. Used for OPTIONAL parquet columns.
func (f Float) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// Neg returns -f, preserving absence.
func (f Float) Neg() Float {
	if !f.Valid {
		return f
	}
	return Float{Float64: -f.Float64, Valid: true}
}

// Mul multiplies the operands. Any missing operand makes the result missing.
func Mul(vals ...Float) Float {
	out := 1.0
	for _, v := range vals {
		if !v.Valid {
			return Float{}
		}
		out *= v.Float64
	}
	return Some(out)
}

// Mid is the arithmetic mean of bid and ask, missing if either side is.
func Mid(bid, ask Float) Float {
	if !bid.Valid || !ask.Valid {
		return Float{}
	}
	return Some((bid.Float64 + ask.Float64) / 2)
}

// Round rounds to the given number of decimal places.
func (f Float) Round(places int) Float {
	if !f.Valid {
		return f
	}
	p := math.Pow(10, float64(places))
	return Some(math.Round(f.Float64*p) / p)
}

func (f Float) String() string {
	if !f.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// ParseFloat coerces a scalar into a Float. Anything that is not a
// finite number (or a string holding one) is missing.
func ParseFloat(v any) Float {
	switch x := v.(type) {
	case nil:
		return Float{}
	case Float:
		return x
	case float64:
		return Some(x)
	case float32:
		return Some(float64(x))
	case int:
		return Some(float64(x))
	case int64:
		return Some(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Float{}
		}
		return Some(f)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Float{}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Float{}
		}
		return Some(f)
	default:
		return Float{}
	}
}

// MarshalJSON writes null for a missing value.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Float64)
}

// UnmarshalJSON accepts numbers, numeric strings and null. Strings that do
// not parse (for example "NaN") decode as missing rather than failing.
func (f *Float) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = Float{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = ParseFloat(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode float: %w", err)
	}
	*f = ParseFloat(n)
	return nil
}

// Value implements driver.Valuer.
func (f Float) Value() (driver.Value, error) {
	if !f.Valid {
		return nil, nil
	}
	return f.Float64, nil
}

// Scan implements sql.Scanner.
func (f *Float) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		*f = ParseFloat(string(v))
	default:
		*f = ParseFloat(v)
	}
	return nil
}

// GormDataType stores Float as a nullable REAL column.
func (Float) GormDataType() string { return "real" }
