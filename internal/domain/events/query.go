package events

import (
	"strconv"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/api/pagination"
)

// ListQuery is a page statement and a count statement built from the same
// filter predicate, so the count always describes the paged set.
type ListQuery struct {
	Select     string
	SelectArgs []any
	Count      string
	CountArgs  []any
}

const selectEventColumns = `SELECT e.id, e.country, e.event_type, e.fatalities, e.date, e.description,
       e.latitude, e.longitude, e.severity, e.source, e.created_by,
       u.username AS created_by_username, e.created_at, e.updated_at
FROM events e
LEFT JOIN users u ON u.id = e.created_by`

const countEvents = `SELECT COUNT(*) AS total FROM events e`

const orderEvents = ` ORDER BY e.date DESC, e.created_at DESC, e.id DESC`

// BuildListQuery renders the statements for one page of filtered events.
func BuildListQuery(f Filters, page pagination.Page) ListQuery {
	page = pagination.Coerce(page.Page, page.Limit)
	where, args := buildPredicate(f)

	countArgs := append([]any(nil), args...)

	selectArgs := append([]any(nil), args...)
	limitPos := len(selectArgs) + 1
	selectArgs = append(selectArgs, page.Limit, page.Offset())

	return ListQuery{
		Select: selectEventColumns + where + orderEvents +
			" LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(limitPos+1),
		SelectArgs: selectArgs,
		Count:      countEvents + where,
		CountArgs:  countArgs,
	}
}

// buildPredicate returns the WHERE clause (with leading space, or empty)
// and its arguments in placeholder order.
func buildPredicate(f Filters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.Country != "" {
		add(`LOWER(e.country) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\'`, containsPattern(f.Country))
	}
	if f.EventType != "" {
		add(`LOWER(e.event_type) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\'`, containsPattern(f.EventType))
	}
	if f.StartDate != "" {
		add(`e.date >= ?`, f.StartDate)
	}
	if f.EndDate != "" {
		add(`e.date <= ?`, f.EndDate)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// containsPattern builds a substring LIKE pattern with the term's own
// wildcards escaped. Case folding happens in SQL on both sides so the engine
// applies one folding rule to column and term alike.
func containsPattern(term string) string {
	return "%" + escapeLikePattern(term) + "%"
}

func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
