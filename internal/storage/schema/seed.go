package schema

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/conflicts/internal/storage"
)

type sampleEvent struct {
	Country     string
	EventType   string
	Fatalities  int
	Date        string
	Description string
	Latitude    float64
	Longitude   float64
	Severity    string
	Source      string
}

var sampleEvents = []sampleEvent{
	{
		Country:     "Sudan",
		EventType:   "Armed Conflict",
		Fatalities:  42,
		Date:        "2024-01-15",
		Description: "Clashes between armed groups reported on the outskirts of Khartoum.",
		Latitude:    15.5007,
		Longitude:   32.5599,
		Severity:    "high",
		Source:      "Field report",
	},
	{
		Country:     "Colombia",
		EventType:   "Civil Unrest",
		Fatalities:  0,
		Date:        "2024-02-03",
		Description: "Large demonstrations over fuel prices blocked major roads in Bogota.",
		Latitude:    4.711,
		Longitude:   -74.0721,
		Severity:    "low",
		Source:      "Local media",
	},
	{
		Country:     "Nigeria",
		EventType:   "Terrorism",
		Fatalities:  17,
		Date:        "2024-02-20",
		Description: "Attack on a market in Borno State attributed to an insurgent faction.",
		Latitude:    11.8311,
		Longitude:   13.151,
		Severity:    "high",
		Source:      "Press agency",
	},
	{
		Country:     "India",
		EventType:   "Border Dispute",
		Fatalities:  3,
		Date:        "2024-03-11",
		Description: "Exchange of fire reported along a contested stretch of the northern border.",
		Latitude:    34.1526,
		Longitude:   77.5771,
		Severity:    "medium",
		Source:      "Government statement",
	},
	{
		Country:     "Myanmar",
		EventType:   "Armed Conflict",
		Fatalities:  25,
		Date:        "2024-04-02",
		Description: "Airstrikes and ground fighting displaced residents in Shan State.",
		Latitude:    21.9162,
		Longitude:   95.956,
		Severity:    "high",
		Source:      "NGO report",
	},
}

// SampleEventCount is the number of events Seed writes into an empty store.
func SampleEventCount() int {
	return len(sampleEvents)
}

// PostgreSQL resolves the creator inline. Casts pin parameter types because
// they appear in a select list where the server cannot infer them.
const insertSampleEventPostgres = `
INSERT INTO events (country, event_type, fatalities, date, description, latitude, longitude, severity, source, created_by)
SELECT CAST($1 AS VARCHAR(100)), CAST($2 AS VARCHAR(50)), CAST($3 AS INTEGER), CAST($4 AS DATE),
       CAST($5 AS TEXT), CAST($6 AS DOUBLE PRECISION), CAST($7 AS DOUBLE PRECISION),
       CAST($8 AS VARCHAR(50)), CAST($9 AS VARCHAR(255)),
       (SELECT id FROM users WHERE username = CAST($10 AS VARCHAR(50)))
WHERE NOT EXISTS (
    SELECT 1 FROM events
    WHERE country = CAST($1 AS VARCHAR(100)) AND date = CAST($4 AS DATE) AND event_type = CAST($2 AS VARCHAR(50))
)`

// SQLite receives the creator id resolved beforehand.
const insertSampleEventSQLite = `
INSERT INTO events (country, event_type, fatalities, date, description, latitude, longitude, severity, source, created_by)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
WHERE NOT EXISTS (
    SELECT 1 FROM events WHERE country = $1 AND date = $4 AND event_type = $2
)`

func (i *Initializer) seedEvents(ctx context.Context) (int, error) {
	var creator any
	if i.adapter.Backend() == storage.BackendSQLite {
		res, err := i.adapter.Execute(ctx, `SELECT id FROM users WHERE username = $1`, i.seed.AdminUsername)
		if err != nil {
			return 0, fmt.Errorf("resolve admin id: %w", err)
		}
		if row, ok := res.First(); ok {
			id, err := row.Int64("id")
			if err != nil {
				return 0, fmt.Errorf("resolve admin id: %w", err)
			}
			creator = id
		}
	}

	inserted := 0
	for _, ev := range sampleEvents {
		var (
			res storage.Result
			err error
		)
		if i.adapter.Backend() == storage.BackendSQLite {
			res, err = i.adapter.Execute(ctx, insertSampleEventSQLite,
				ev.Country, ev.EventType, ev.Fatalities, ev.Date, ev.Description,
				ev.Latitude, ev.Longitude, ev.Severity, ev.Source, creator)
		} else {
			res, err = i.adapter.Execute(ctx, insertSampleEventPostgres,
				ev.Country, ev.EventType, ev.Fatalities, ev.Date, ev.Description,
				ev.Latitude, ev.Longitude, ev.Severity, ev.Source, i.seed.AdminUsername)
		}
		if err != nil {
			return inserted, fmt.Errorf("insert sample event %s %s: %w", ev.Country, ev.Date, err)
		}
		if res.Affected > 0 {
			inserted++
		}
	}
	return inserted, nil
}
