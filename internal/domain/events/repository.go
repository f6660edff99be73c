package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/api/pagination"
	"github.com/Togather-Foundation/conflicts/internal/storage"
)

// Repository persists events.
type Repository interface {
	List(ctx context.Context, filters Filters, page pagination.Page) (ListResult, error)
	GetByID(ctx context.Context, id int64) (Event, error)
	Create(ctx context.Context, params CreateParams, createdBy int64) (Event, error)
	Totals(ctx context.Context) (Stats, error)
	ByCountry(ctx context.Context, limit int) ([]StatsBucket, error)
	ByEventType(ctx context.Context) ([]StatsBucket, error)
}

// SQLRepository implements Repository on a storage.Adapter.
type SQLRepository struct {
	db storage.Adapter
}

func NewRepository(db storage.Adapter) *SQLRepository {
	return &SQLRepository{db: db}
}

// List runs the page and count statements built from one predicate.
func (r *SQLRepository) List(ctx context.Context, filters Filters, page pagination.Page) (ListResult, error) {
	q := BuildListQuery(filters, page)

	res, err := r.db.Execute(ctx, q.Select, q.SelectArgs...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list events: %w", err)
	}
	events := make([]Event, 0, len(res.Rows))
	for _, row := range res.Rows {
		ev, err := scanEvent(row)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}

	countRes, err := r.db.Execute(ctx, q.Count, q.CountArgs...)
	if err != nil {
		return ListResult{}, fmt.Errorf("count events: %w", err)
	}
	var total int64
	if row, ok := countRes.First(); ok {
		if total, err = row.Int64("total"); err != nil {
			return ListResult{}, fmt.Errorf("count events: %w", err)
		}
	}
	return ListResult{Events: events, Total: total}, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (Event, error) {
	res, err := r.db.Execute(ctx, selectEventColumns+` WHERE e.id = $1`, id)
	if err != nil {
		return Event{}, fmt.Errorf("get event: %w", err)
	}
	row, ok := res.First()
	if !ok {
		return Event{}, ErrNotFound
	}
	return scanEvent(row)
}

func (r *SQLRepository) Create(ctx context.Context, p CreateParams, createdBy int64) (Event, error) {
	query := `INSERT INTO events (country, event_type, fatalities, date, description, latitude, longitude, severity, source, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if r.db.Backend() == storage.BackendPostgres {
		query += ` RETURNING id`
	}

	var fatalities int64
	if p.Fatalities != nil {
		fatalities = *p.Fatalities
	}
	res, err := r.db.Execute(ctx, query,
		p.Country, p.EventType, fatalities, p.Date, p.Description,
		p.Latitude, p.Longitude, p.Severity, p.Source, createdBy)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	if !res.HasInsertID {
		return Event{}, fmt.Errorf("insert event: no id reported")
	}
	return r.GetByID(ctx, res.InsertID)
}

func (r *SQLRepository) Totals(ctx context.Context) (Stats, error) {
	res, err := r.db.Execute(ctx, `SELECT COUNT(*) AS total_events,
       COALESCE(SUM(fatalities), 0) AS total_fatalities,
       COUNT(DISTINCT country) AS countries
FROM events`)
	if err != nil {
		return Stats{}, fmt.Errorf("event totals: %w", err)
	}
	row, ok := res.First()
	if !ok {
		return Stats{}, nil
	}
	var s Stats
	if s.TotalEvents, err = row.Int64("total_events"); err != nil {
		return Stats{}, err
	}
	if s.TotalFatalities, err = row.Int64("total_fatalities"); err != nil {
		return Stats{}, err
	}
	if s.Countries, err = row.Int64("countries"); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (r *SQLRepository) ByCountry(ctx context.Context, limit int) ([]StatsBucket, error) {
	res, err := r.db.Execute(ctx, `SELECT country AS bucket, COUNT(*) AS event_count, COALESCE(SUM(fatalities), 0) AS fatalities
FROM events
GROUP BY country
ORDER BY event_count DESC, country ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("events by country: %w", err)
	}
	return scanBuckets(res.Rows)
}

func (r *SQLRepository) ByEventType(ctx context.Context) ([]StatsBucket, error) {
	res, err := r.db.Execute(ctx, `SELECT event_type AS bucket, COUNT(*) AS event_count, COALESCE(SUM(fatalities), 0) AS fatalities
FROM events
GROUP BY event_type
ORDER BY event_count DESC, event_type ASC`)
	if err != nil {
		return nil, fmt.Errorf("events by type: %w", err)
	}
	return scanBuckets(res.Rows)
}

func scanBuckets(rows []storage.Row) ([]StatsBucket, error) {
	buckets := make([]StatsBucket, 0, len(rows))
	for _, row := range rows {
		count, err := row.Int64("event_count")
		if err != nil {
			return nil, err
		}
		fatalities, err := row.Int64("fatalities")
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, StatsBucket{Key: row.String("bucket"), Count: count, Fatalities: fatalities})
	}
	return buckets, nil
}

func scanEvent(row storage.Row) (Event, error) {
	var (
		ev  Event
		err error
	)
	if ev.ID, err = row.Int64("id"); err != nil {
		return Event{}, err
	}
	if ev.Fatalities, err = row.Int64("fatalities"); err != nil {
		return Event{}, err
	}
	if ev.Date, err = row.Date("date"); err != nil {
		return Event{}, err
	}
	if ev.CreatedAt, err = row.Time("created_at"); err != nil {
		return Event{}, err
	}
	if ev.UpdatedAt, err = row.Time("updated_at"); err != nil {
		return Event{}, err
	}
	ev.Country = strings.TrimSpace(row.String("country"))
	ev.EventType = strings.TrimSpace(row.String("event_type"))
	ev.Description = row.String("description")

	if v, ok, err := row.NullFloat64("latitude"); err != nil {
		return Event{}, err
	} else if ok {
		ev.Latitude = &v
	}
	if v, ok, err := row.NullFloat64("longitude"); err != nil {
		return Event{}, err
	} else if ok {
		ev.Longitude = &v
	}
	if v, ok := row.NullString("severity"); ok {
		ev.Severity = &v
	}
	if v, ok := row.NullString("source"); ok {
		ev.Source = &v
	}
	if v, ok, err := row.NullInt64("created_by"); err != nil {
		return Event{}, err
	} else if ok {
		ev.CreatedBy = &v
	}
	if v, ok := row.NullString("created_by_username"); ok {
		ev.CreatedByUsername = &v
	}
	return ev, nil
}
