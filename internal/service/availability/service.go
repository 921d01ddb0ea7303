package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/levkoval/resv-go/internal/domain"
	"github.com/levkoval/resv-go/internal/repository"
	redisx "github.com/levkoval/resv-go/internal/redis"
	postgresrepo "github.com/levkoval/resv-go/internal/repository/postgres"
	redisrepo "github.com/levkoval/resv-go/internal/repository/redis"
)

type Config struct {
	CacheTTL time.Duration
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// AvailableUnits returns the units of the resource that are free for the
// whole range: the resource's units minus every unit claimed by a
// non-cancelled booking whose interval overlaps it. Pass a booking id in
// excluding to ignore that booking, e.g. when re-checking during an edit.
//
// Returns:
//   - error: availability.ErrInvalidRange if the range is zero-length or inverted.
//   - error: availability.ErrResourceNotFound if the resource does not exist.
func (s *Service) AvailableUnits(
	ctx context.Context,
	resourceID int64,
	rng domain.Range,
	excluding uuid.UUID,
) ([]domain.Unit, error) {
	const op = "service.availability.AvailableUnits"

	if err := rng.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRange)
	}

	// Exclusion lookups are per-edit; only the common case is cached.
	if s.cache != nil && excluding == uuid.Nil {
		key := redisx.KeyResourceAvailability(resourceID, rng.Starts, rng.Ends)

		units, err := redisrepo.GetOrSetJSON(
			ctx,
			s.cache,
			key,
			s.cfg.CacheTTL,
			func(ctx context.Context) ([]domain.Unit, error) {
				return s.resolve(ctx, resourceID, rng, uuid.Nil)
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return units, nil
	}

	units, err := s.resolve(ctx, resourceID, rng, excluding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return units, nil
}

// CanBook reports whether at least requested units are free for the range.
// Requests exactly matching capacity pass; no slack is reserved.
func (s *Service) CanBook(
	ctx context.Context,
	resourceID int64,
	rng domain.Range,
	requested int,
	excluding uuid.UUID,
) (bool, error) {
	const op = "service.availability.CanBook"

	if requested <= 0 {
		return false, fmt.Errorf("%s: requested unit count must be positive", op)
	}

	units, err := s.AvailableUnits(ctx, resourceID, rng, excluding)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return len(units) >= requested, nil
}

func (s *Service) resolve(
	ctx context.Context,
	resourceID int64,
	rng domain.Range,
	excluding uuid.UUID,
) ([]domain.Unit, error) {
	if _, err := s.store.Catalog().GetResource(ctx, resourceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	units, err := s.store.Catalog().ListUnits(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	// A resource with no units always reports empty availability.
	if len(units) == 0 {
		return []domain.Unit{}, nil
	}

	occupied, err := s.store.Bookings().OccupiedUnits(ctx, resourceID, rng, excluding)
	if err != nil {
		return nil, err
	}

	return domain.AvailableUnits(units, occupied), nil
}
