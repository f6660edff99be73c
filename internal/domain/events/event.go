package events

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

// Event is a recorded conflict incident.
type Event struct {
	ID                int64     `json:"id"`
	Country           string    `json:"country"`
	EventType         string    `json:"event_type"`
	Fatalities        int64     `json:"fatalities"`
	Date              string    `json:"date"`
	Description       string    `json:"description"`
	Latitude          *float64  `json:"latitude"`
	Longitude         *float64  `json:"longitude"`
	Severity          *string   `json:"severity"`
	Source            *string   `json:"source"`
	CreatedBy         *int64    `json:"created_by"`
	CreatedByUsername *string   `json:"created_by_username"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateParams is the client supplied part of an Event.
type CreateParams struct {
	Country     string   `json:"country" validate:"required,min=2,max=100,nomarkup"`
	EventType   string   `json:"event_type" validate:"required,event_type"`
	Fatalities  *int64   `json:"fatalities" validate:"required,min=0"`
	Date        string   `json:"date" validate:"required,isodate"`
	Description string   `json:"description" validate:"required,min=10,max=1000,nomarkup"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Severity    *string  `json:"severity" validate:"omitempty,max=50,nomarkup"`
	Source      *string  `json:"source" validate:"omitempty,max=255,nomarkup"`
}

// Stats aggregates the whole event store.
type Stats struct {
	TotalEvents     int64         `json:"total_events"`
	TotalFatalities int64         `json:"total_fatalities"`
	Countries       int64         `json:"countries"`
	ByCountry       []StatsBucket `json:"by_country"`
	ByEventType     []StatsBucket `json:"by_event_type"`
}

// StatsBucket is one group in a Stats breakdown.
type StatsBucket struct {
	Key        string `json:"key"`
	Count      int64  `json:"count"`
	Fatalities int64  `json:"fatalities"`
}

// ListResult is one page of events and the size of the filtered set.
type ListResult struct {
	Events []Event
	Total  int64
}
