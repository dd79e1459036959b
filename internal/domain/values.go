package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// AsInt coerces a loosely-typed field value to an integer.
func AsInt(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing integer value")
	case decimal.Decimal:
		if !t.Equal(t.Truncate(0)) {
			return 0, fmt.Errorf("%s is not an integer", t.String())
		}
		return t.IntPart(), nil
	case float64:
		return wholeFloat(t)
	case float32:
		return wholeFloat(float64(t))
	case []byte:
		return cast.ToInt64E(strings.TrimSpace(string(t)))
	case string:
		return cast.ToInt64E(strings.TrimSpace(t))
	}
	return cast.ToInt64E(v)
}

func wholeFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

// AsDecimal coerces a loosely-typed field value to a decimal.
func AsDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("missing decimal value")
	case decimal.Decimal:
		return t, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(t)))
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// AsDate coerces a loosely-typed field value to a calendar date (UTC midnight).
func AsDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing date value")
	case time.Time:
		return truncateDay(t), nil
	case []byte:
		v = string(t)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return time.Time{}, err
	}
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	d, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(d), nil
}

// IsNull reports whether a field value represents SQL NULL.
func IsNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []byte:
		return len(t) == 0
	case time.Time:
		return t.IsZero()
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
