package report

import (
	"context"
	"fmt"
	"time"

	"github.com/levkoval/resv-go/internal/domain"
	redisx "github.com/levkoval/resv-go/internal/redis"
	postgresrepo "github.com/levkoval/resv-go/internal/repository/postgres"
	redisrepo "github.com/levkoval/resv-go/internal/repository/redis"
)

type Config struct {
	CacheTTL    time.Duration
	HoursPerDay int
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	if cfg.HoursPerDay <= 0 {
		cfg.HoursPerDay = domain.DefaultHoursPerDay
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// Aggregate groups every booking overlapping [from, to) and builds the
// active/cancelled financial summary. The structured output feeds the export
// collaborator; rendering is not done here.
//
// Returns:
//   - error: report.ErrInvalidGroupBy for an unknown grouping.
//   - error: report.ErrInvalidRange for a zero-length or inverted range.
func (s *Service) Aggregate(
	ctx context.Context,
	from, to time.Time,
	by domain.GroupBy,
) (domain.Report, error) {
	const op = "service.report.Aggregate"

	if !by.Valid() {
		return domain.Report{}, fmt.Errorf("%s: %w", op, ErrInvalidGroupBy)
	}

	if err := (domain.Range{Starts: from, Ends: to}).Validate(); err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, ErrInvalidRange)
	}

	if s.cache != nil {
		key := redisx.KeyReport(from, to, string(by))

		rep, err := redisrepo.GetOrSetJSON(
			ctx,
			s.cache,
			key,
			s.cfg.CacheTTL,
			func(ctx context.Context) (domain.Report, error) {
				return s.build(ctx, from, to, by)
			},
		)
		if err != nil {
			return domain.Report{}, fmt.Errorf("%s: %w", op, err)
		}

		return rep, nil
	}

	rep, err := s.build(ctx, from, to, by)
	if err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}

	return rep, nil
}

func (s *Service) build(ctx context.Context, from, to time.Time, by domain.GroupBy) (domain.Report, error) {
	bookings, err := s.store.Bookings().ListByRange(ctx, from, to)
	if err != nil {
		return domain.Report{}, err
	}

	// Live resources back the pricing fallback for bookings written before
	// snapshots were recorded.
	idSet := make(map[int64]struct{})
	var ids []int64
	for _, b := range bookings {
		if _, seen := idSet[b.ResourceID]; !seen {
			idSet[b.ResourceID] = struct{}{}
			ids = append(ids, b.ResourceID)
		}
	}

	resources, err := s.store.Catalog().ListResources(ctx, ids)
	if err != nil {
		return domain.Report{}, err
	}

	return domain.Aggregate(bookings, by, resources, s.cfg.HoursPerDay), nil
}
