package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levkoval/resv-go/internal/domain"
	"github.com/levkoval/resv-go/internal/repository"
	redisx "github.com/levkoval/resv-go/internal/redis"
	postgresrepo "github.com/levkoval/resv-go/internal/repository/postgres"
	redisrepo "github.com/levkoval/resv-go/internal/repository/redis"
	"github.com/levkoval/resv-go/internal/uow"
)

type Config struct {
	SummaryTTL time.Duration
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 60 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
		cfg:   cfg,
	}
}

// CreateResource creates a resource record and returns its ID.
//
// Returns:
//   - error: catalog.ErrInvalidPricing when the pricing policy is malformed.
//   - error: catalog.ErrResourceConflict when the name already exists.
func (s *Service) CreateResource(ctx context.Context, res *domain.Resource) (int64, error) {
	const op = "service.catalog.CreateResource"

	if !res.PriceUnit.Valid() || res.PriceCents <= 0 || res.MaxGuestsPerUnit <= 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrInvalidPricing)
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		id, err = s.store.Catalog().With(tx).CreateResource(ctx, res)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrResourceConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})

	return id, err
}

// BatchCreateUnits inserts named inventory units for a resource within a
// transactional unit of work. Existing names are left untouched.
func (s *Service) BatchCreateUnits(ctx context.Context, resourceID int64, names []string) error {
	const op = "service.catalog.BatchCreateUnits"

	if len(names) == 0 {
		return fmt.Errorf("%s: no unit names given", op)
	}

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if _, err := s.store.Catalog().With(tx).GetResource(ctx, resourceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.store.Catalog().With(tx).BatchCreateUnits(ctx, resourceID, names); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrUnitsConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateResource(ctx, resourceID)
			}
		})

		return nil
	})
}

// GetResource retrieves a resource with its units, through the summary cache.
//
// Returns:
//   - error: catalog.ErrResourceNotFound if the resource is not found.
func (s *Service) GetResource(ctx context.Context, id int64) (*domain.ResourceWithUnits, error) {
	const op = "service.catalog.GetResource"

	loader := func(ctx context.Context) (domain.ResourceWithUnits, error) {
		res, err := s.store.Catalog().GetResource(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ResourceWithUnits{}, ErrResourceNotFound
			}
			return domain.ResourceWithUnits{}, err
		}

		units, err := s.store.Catalog().ListUnits(ctx, id)
		if err != nil {
			return domain.ResourceWithUnits{}, err
		}

		return domain.ResourceWithUnits{Resource: *res, Units: units}, nil
	}

	if s.cache == nil {
		out, err := loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &out, nil
	}

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyResourceSummary(id),
		s.cfg.SummaryTTL,
		loader,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
