package events

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Togather-Foundation/conflicts/internal/api/pagination"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/storage/schema"
	"github.com/Togather-Foundation/conflicts/internal/storage/sqlite"
	"github.com/Togather-Foundation/conflicts/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHasher struct{}

func (fakeHasher) Hash(_ context.Context, plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

type fixture struct {
	svc     *Service
	adapter storage.Adapter
	admin   auth.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	adapter, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "events.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	seed := config.Defaults().Seed
	require.NoError(t, schema.NewInitializer(adapter, fakeHasher{}, seed, zerolog.Nop()).Run(ctx))

	res, err := adapter.Execute(ctx, `SELECT id FROM users WHERE username = $1`, seed.AdminUsername)
	require.NoError(t, err)
	row, ok := res.First()
	require.True(t, ok)
	adminID, err := row.Int64("id")
	require.NoError(t, err)

	return fixture{
		svc:     NewService(NewRepository(adapter), zerolog.Nop()),
		adapter: adapter,
		admin:   auth.Identity{UserID: adminID, Username: seed.AdminUsername, Role: auth.RoleAdmin},
	}
}

func validParams() CreateParams {
	fatalities := int64(4)
	lat, lon := 33.5138, 36.2765
	severity := "medium"
	return CreateParams{
		Country:     "Syria",
		EventType:   "Armed Conflict",
		Fatalities:  &fatalities,
		Date:        "2024-05-20",
		Description: "Shelling reported in the southern districts of Damascus.",
		Latitude:    &lat,
		Longitude:   &lon,
		Severity:    &severity,
	}
}

func TestListSeededEventsNewestFirst(t *testing.T) {
	f := newFixture(t)

	events, meta, err := f.svc.List(context.Background(), Filters{}, pagination.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, events, schema.SampleEventCount())
	assert.Equal(t, int64(schema.SampleEventCount()), meta.Total)
	assert.Equal(t, int64(1), meta.Pages)

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i-1].Date, events[i].Date)
	}
	assert.Equal(t, "Myanmar", events[0].Country)
	require.NotNil(t, events[0].CreatedByUsername)
	assert.Equal(t, f.admin.Username, *events[0].CreatedByUsername)
}

func TestCountMatchesUnpaginatedFilteredSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []Filters{
		{},
		{Country: "su"},
		{EventType: "armed conflict"},
		{StartDate: "2024-02-01", EndDate: "2024-03-31"},
		{Country: "nobody"},
	}
	for _, filters := range cases {
		all, _, err := f.svc.List(ctx, filters, pagination.Page{Page: 1, Limit: pagination.MaxLimit})
		require.NoError(t, err)

		_, meta, err := f.svc.List(ctx, filters, pagination.Page{Page: 2, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(len(all)), meta.Total, "filters %+v", filters)
		assert.Equal(t, int64(len(all)), meta.Pages, "filters %+v", filters)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events, meta, err := f.svc.List(ctx, Filters{Country: "SUD"}, pagination.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Sudan", events[0].Country)
	assert.Equal(t, int64(1), meta.Total)

	events, _, err = f.svc.List(ctx, Filters{StartDate: "2024-02-01", EndDate: "2024-03-31"}, pagination.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Date, "2024-02-01")
		assert.LessOrEqual(t, ev.Date, "2024-03-31")
	}
}

func TestListTreatsWildcardsLiterally(t *testing.T) {
	f := newFixture(t)

	events, meta, err := f.svc.List(context.Background(), Filters{Country: "%"}, pagination.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, meta.Total)
}

func TestListPageBeyondEnd(t *testing.T) {
	f := newFixture(t)

	events, meta, err := f.svc.List(context.Background(), Filters{}, pagination.Page{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int64(schema.SampleEventCount()), meta.Total)
	assert.Equal(t, int64(3), meta.Pages)
}

func TestCreateThenListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.admin, validParams())
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "2024-05-20", created.Date)
	assert.Equal(t, int64(4), created.Fatalities)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, f.admin.UserID, *created.CreatedBy)
	require.NotNil(t, created.Latitude)
	assert.InDelta(t, 33.5138, *created.Latitude, 1e-9)
	assert.Nil(t, created.Source)

	events, meta, err := f.svc.List(ctx, Filters{Country: "syria"}, pagination.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, created.ID, events[0].ID)
	assert.Equal(t, int64(1), meta.Total)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Description, got.Description)
}

func TestCreateRejectsMarkup(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateParams)
		field  string
	}{
		{name: "script in description", mutate: func(p *CreateParams) {
			p.Description = `<script>alert(1)</script><b>Shelling</b> reported near the old city walls.`
		}, field: "description"},
		{name: "tag-like run in description", mutate: func(p *CreateParams) {
			p.Description = "Casualties <10 in Abidjan, a<b & c>d reported by <unit>."
		}, field: "description"},
		{name: "markup in country", mutate: func(p *CreateParams) { p.Country = "<i>Syria</i>" }, field: "country"},
		{name: "markup in source", mutate: func(p *CreateParams) {
			src := `<a href="x">Wire</a>`
			p.Source = &src
		}, field: "source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			_, err := f.svc.Create(context.Background(), f.admin, params)
			var verrs validation.Errors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field+" must not contain HTML markup", verrs[tt.field])
		})
	}
}

func TestCreateStoresTextVerbatim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := validParams()
	params.Country = "Côte d'Ivoire"
	params.Description = `Casualties <10 & "rising" near Abidjan, 5% of_district affected.`
	source := "UN OCHA & partners"
	params.Source = &source

	created, err := f.svc.Create(ctx, f.admin, params)
	require.NoError(t, err)
	assert.Equal(t, params.Country, created.Country)
	assert.Equal(t, params.Description, created.Description)
	require.NotNil(t, created.Source)
	assert.Equal(t, source, *created.Source)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, params.Description, got.Description)
}

func TestListFoldsNonASCIICase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := validParams()
	params.Country = "ÅLAND"
	created, err := f.svc.Create(ctx, f.admin, params)
	require.NoError(t, err)

	for _, term := range []string{"ÅLAND", "åland", "Åland", "LAND", "ålA"} {
		events, meta, err := f.svc.List(ctx, Filters{Country: term}, pagination.Page{Page: 1, Limit: 20})
		require.NoError(t, err)
		require.Len(t, events, 1, "filter %q", term)
		assert.Equal(t, created.ID, events[0].ID)
		assert.Equal(t, "ÅLAND", events[0].Country)
		assert.Equal(t, int64(1), meta.Total, "filter %q", term)
	}

	params.Country = "Égypte"
	params.Date = "2024-06-01"
	_, err = f.svc.Create(ctx, f.admin, params)
	require.NoError(t, err)

	events, _, err := f.svc.List(ctx, Filters{Country: "ÉGYP"}, pagination.Page{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Égypte", events[0].Country)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	negative := int64(-5)
	badLat := 91.0

	tests := []struct {
		name   string
		mutate func(*CreateParams)
		field  string
	}{
		{name: "negative fatalities", mutate: func(p *CreateParams) { p.Fatalities = &negative }, field: "fatalities"},
		{name: "missing fatalities", mutate: func(p *CreateParams) { p.Fatalities = nil }, field: "fatalities"},
		{name: "short country", mutate: func(p *CreateParams) { p.Country = "S" }, field: "country"},
		{name: "unknown type", mutate: func(p *CreateParams) { p.EventType = "Skirmish" }, field: "event_type"},
		{name: "bad date", mutate: func(p *CreateParams) { p.Date = "2024-13-01" }, field: "date"},
		{name: "short description", mutate: func(p *CreateParams) { p.Description = "too short" }, field: "description"},
		{name: "markup only description", mutate: func(p *CreateParams) { p.Description = "<p><br></p>" }, field: "description"},
		{name: "latitude out of range", mutate: func(p *CreateParams) { p.Latitude = &badLat }, field: "latitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)

			_, err := f.svc.Create(context.Background(), f.admin, params)
			var verrs validation.Errors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs, tt.field)
		})
	}

	_, meta, err := f.svc.List(context.Background(), Filters{}, pagination.Page{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(schema.SampleEventCount()), meta.Total)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), 99999)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = f.svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalEvents)
	assert.Equal(t, int64(87), stats.TotalFatalities)
	assert.Equal(t, int64(5), stats.Countries)
	assert.Len(t, stats.ByCountry, 5)

	require.NotEmpty(t, stats.ByEventType)
	assert.Equal(t, StatsBucket{Key: "Armed Conflict", Count: 2, Fatalities: 67}, stats.ByEventType[0])
	assert.Len(t, stats.ByEventType, 4)
}

func TestStatsLimitsCountries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, country := range []string{"Chad", "Mali", "Niger", "Peru", "Iraq", "Laos", "Togo"} {
		params := validParams()
		params.Country = country
		_, err := f.svc.Create(ctx, f.admin, params)
		require.NoError(t, err)
	}
	params := validParams()
	params.Country = "Mali"
	_, err := f.svc.Create(ctx, f.admin, params)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.Countries)
	require.Len(t, stats.ByCountry, TopCountries)
	assert.Equal(t, "Mali", stats.ByCountry[0].Key)
	assert.Equal(t, int64(2), stats.ByCountry[0].Count)
}

func TestStatsEmptyStore(t *testing.T) {
	ctx := context.Background()
	adapter, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "empty.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	require.NoError(t, schema.MigrateUp(adapter, zerolog.Nop()))

	stats, err := NewService(NewRepository(adapter), zerolog.Nop()).Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEvents)
	assert.Zero(t, stats.TotalFatalities)
	assert.Empty(t, stats.ByCountry)
	assert.NotNil(t, stats.ByCountry)
}
