package events

import (
	"strings"
	"testing"

	"github.com/Togather-Foundation/conflicts/internal/api/pagination"
	"github.com/stretchr/testify/assert"
)

func TestBuildListQueryNoFilters(t *testing.T) {
	q := BuildListQuery(Filters{}, pagination.Page{Page: 1, Limit: 20})

	assert.NotContains(t, q.Select, "WHERE")
	assert.Equal(t, "SELECT COUNT(*) AS total FROM events e", q.Count)
	assert.Empty(t, q.CountArgs)
	assert.True(t, strings.HasSuffix(q.Select, " ORDER BY e.date DESC, e.created_at DESC, e.id DESC LIMIT $1 OFFSET $2"))
	assert.Equal(t, []any{20, 0}, q.SelectArgs)
}

func TestBuildListQuerySharesPredicate(t *testing.T) {
	f := Filters{Country: "Syria", EventType: "Armed", StartDate: "2024-01-01", EndDate: "2024-12-31"}
	q := BuildListQuery(f, pagination.Page{Page: 3, Limit: 10})

	where := ` WHERE LOWER(e.country) LIKE LOWER(CAST($1 AS TEXT)) ESCAPE '\' AND LOWER(e.event_type) LIKE LOWER(CAST($2 AS TEXT)) ESCAPE '\' AND e.date >= $3 AND e.date <= $4`
	assert.Equal(t, "SELECT COUNT(*) AS total FROM events e"+where, q.Count)
	assert.Contains(t, q.Select, where+" ORDER BY")
	assert.True(t, strings.HasSuffix(q.Select, "LIMIT $5 OFFSET $6"))

	want := []any{"%Syria%", "%Armed%", "2024-01-01", "2024-12-31"}
	assert.Equal(t, want, q.CountArgs)
	assert.Equal(t, append(want, 10, 20), q.SelectArgs)
}

func TestBuildListQueryPartialFiltersNumberFromOne(t *testing.T) {
	q := BuildListQuery(Filters{EndDate: "2024-03-01"}, pagination.Page{Page: 1, Limit: 5})

	assert.Equal(t, "SELECT COUNT(*) AS total FROM events e WHERE e.date <= $1", q.Count)
	assert.Equal(t, []any{"2024-03-01"}, q.CountArgs)
	assert.Equal(t, []any{"2024-03-01", 5, 0}, q.SelectArgs)
}

func TestBuildListQueryCoercesPage(t *testing.T) {
	q := BuildListQuery(Filters{}, pagination.Page{Page: 0, Limit: 1000})
	assert.Equal(t, []any{pagination.MaxLimit, 0}, q.SelectArgs)
}

func TestEscapeLikePattern(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "sudan", want: "sudan"},
		{name: "percent", input: "100%", want: `100\%`},
		{name: "underscore", input: "a_b", want: `a\_b`},
		{name: "backslash", input: `a\b`, want: `a\\b`},
		{name: "all", input: `\%_`, want: `\\\%\_`},
		{name: "empty", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLikePattern(tt.input))
		})
	}
}

func TestContainsPatternLeavesCaseToSQL(t *testing.T) {
	assert.Equal(t, `%South\_Sudan%`, containsPattern("South_Sudan"))
	assert.Equal(t, `%ÅLAND%`, containsPattern("ÅLAND"))
}
