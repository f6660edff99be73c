package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowIntegers(t *testing.T) {
	row := Row{"a": int32(5), "b": int64(6), "c": []byte("7"), "d": "8", "n": nil, "bad": "x"}

	for col, want := range map[string]int64{"a": 5, "b": 6, "c": 7, "d": 8} {
		got, err := row.Int64(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}

	_, ok, err := row.NullInt64("n")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = row.Int64("n")
	assert.Error(t, err)

	_, err = row.Int64("bad")
	assert.Error(t, err)
}

func TestRowStringsAndFloats(t *testing.T) {
	row := Row{"s": "hello", "b": []byte("bytes"), "f": float64(1.5), "fs": "2.25", "n": nil}

	assert.Equal(t, "hello", row.String("s"))
	assert.Equal(t, "bytes", row.String("b"))
	assert.Equal(t, "", row.String("n"))

	_, ok := row.NullString("n")
	assert.False(t, ok)

	f, ok, err := row.NullFloat64("f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, f, 1e-9)

	f, ok, err = row.NullFloat64("fs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 2.25, f, 1e-9)

	_, ok, err = row.NullFloat64("n")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRowTimesAndDates(t *testing.T) {
	ts := time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)
	row := Row{
		"native":  ts,
		"text":    "2024-03-09 12:30:00",
		"rfc":     "2024-03-09T12:30:00Z",
		"date":    "2024-03-09",
		"pgdate":  time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		"garbage": "not a time",
	}

	for _, col := range []string{"native", "text", "rfc"} {
		got, err := row.Time(col)
		require.NoError(t, err, col)
		assert.True(t, got.Equal(ts), col)
	}

	for _, col := range []string{"date", "pgdate", "native"} {
		got, err := row.Date(col)
		require.NoError(t, err, col)
		assert.Equal(t, "2024-03-09", got, col)
	}

	_, err := row.Time("garbage")
	assert.Error(t, err)
}
