package events

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/conflicts/internal/api/pagination"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/Togather-Foundation/conflicts/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TopCountries bounds the by-country breakdown in Stats.
const TopCountries = 10

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// List returns one page of events matching filters and the pagination
// metadata for the full filtered set.
func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) ([]Event, pagination.Meta, error) {
	page = pagination.Coerce(page.Page, page.Limit)
	res, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return res.Events, page.Meta(res.Total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (Event, error) {
	if id <= 0 {
		return Event{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Create stores a new event attributed to the caller. Fields are stored
// exactly as sent; text containing markup fails validation.
func (s *Service) Create(ctx context.Context, caller auth.Identity, params CreateParams) (Event, error) {
	if err := validation.Struct(params); err != nil {
		return Event{}, err
	}

	ev, err := s.repo.Create(ctx, params, caller.UserID)
	if err != nil {
		return Event{}, err
	}
	metrics.EventsCreated.Inc()
	s.logger.Info().
		Int64("event_id", ev.ID).
		Int64("user_id", caller.UserID).
		Str("country", ev.Country).
		Str("event_type", ev.EventType).
		Msg("event created")
	return ev, nil
}

// Stats aggregates the store. The three queries run concurrently and the
// first failure cancels the rest.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		totals      Stats
		byCountry   []StatsBucket
		byEventType []StatsBucket
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byCountry, err = s.repo.ByCountry(gctx, TopCountries)
		return err
	})
	g.Go(func() error {
		var err error
		byEventType, err = s.repo.ByEventType(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("event stats: %w", err)
	}

	totals.ByCountry = byCountry
	totals.ByEventType = byEventType
	return totals, nil
}
