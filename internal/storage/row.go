package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date representation.
const DateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	DateLayout,
}

// Int64 returns an integer column, failing on NULL.
func (r Row) Int64(col string) (int64, error) {
	v, ok, err := r.NullInt64(col)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("column %s: unexpected NULL", col)
	}
	return v, nil
}

// NullInt64 returns an integer column and whether it was non-NULL.
func (r Row) NullInt64(col string) (int64, bool, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, false, nil
	case int64:
		return v, true, nil
	case int32:
		return int64(v), true, nil
	case int:
		return int64(v), true, nil
	case int16:
		return int64(v), true, nil
	case float64:
		return int64(v), true, nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return n, true, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("column %s: unsupported integer type %T", col, v)
	}
}

// String returns a text column; NULL becomes the empty string.
func (r Row) String(col string) string {
	v, _ := r.NullString(col)
	return v
}

// NullString returns a text column and whether it was non-NULL.
func (r Row) NullString(col string) (string, bool) {
	switch v := r[col].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(v), true
	}
}

// NullFloat64 returns a floating point column and whether it was non-NULL.
func (r Row) NullFloat64(col string) (float64, bool, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case int32:
		return float64(v), true, nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: %w", col, err)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("column %s: unsupported float type %T", col, v)
	}
}

// Time returns a timestamp column. Drivers hand these back either as
// time.Time or as text, depending on the engine and declared column type.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(col, string(v))
	case string:
		return parseTime(col, v)
	default:
		return time.Time{}, fmt.Errorf("column %s: unsupported time type %T", col, v)
	}
}

// Date returns a calendar date column formatted as YYYY-MM-DD.
func (r Row) Date(col string) (string, error) {
	switch v := r[col].(type) {
	case nil:
		return "", nil
	case string:
		if len(v) >= len(DateLayout) {
			if _, err := time.Parse(DateLayout, v[:len(DateLayout)]); err == nil {
				return v[:len(DateLayout)], nil
			}
		}
	}
	t, err := r.Time(col)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

func parseTime(col, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unrecognized time %q", col, value)
}
