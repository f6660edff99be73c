package events

import (
	"net/url"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/validation"
)

// Filters narrows an event listing. Empty fields do not filter.
type Filters struct {
	Country   string
	EventType string
	StartDate string
	EndDate   string
}

// ParseFilters reads filters from a query string. Dates must be
// YYYY-MM-DD and the end date may not precede the start date.
func ParseFilters(values url.Values) (Filters, error) {
	f := Filters{
		Country:   strings.TrimSpace(values.Get("country")),
		EventType: strings.TrimSpace(values.Get("event_type")),
		StartDate: strings.TrimSpace(values.Get("start_date")),
		EndDate:   strings.TrimSpace(values.Get("end_date")),
	}

	errs := validation.Errors{}
	if f.StartDate != "" && !validation.IsDate(f.StartDate) {
		errs.Add("start_date", "start_date must be a valid date in YYYY-MM-DD format")
	}
	if f.EndDate != "" && !validation.IsDate(f.EndDate) {
		errs.Add("end_date", "end_date must be a valid date in YYYY-MM-DD format")
	}
	if len(errs) == 0 && f.StartDate != "" && f.EndDate != "" && f.EndDate < f.StartDate {
		errs.Add("end_date", "end_date must be on or after start_date")
	}
	if len(f.Country) > 100 {
		errs.Add("country", "country must be at most 100 characters")
	}
	if len(f.EventType) > 50 {
		errs.Add("event_type", "event_type must be at most 50 characters")
	}
	if err := errs.Err(); err != nil {
		return Filters{}, err
	}
	return f, nil
}
