package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/levkoval/resv-go/internal/domain"
)

// CatalogRepo persists resources and their inventory units.
type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) CreateResource(ctx context.Context, res *domain.Resource) (int64, error) {
	const op = "postgres.CatalogRepo.CreateResource"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO resources(type, name, price_cents, price_unit, currency, max_guests_per_unit)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		res.Type, res.Name, res.PriceCents, res.PriceUnit, res.Currency, res.MaxGuestsPerUnit,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) BatchCreateUnits(
	ctx context.Context,
	resourceID int64,
	names []string,
) error {
	const op = "postgres.CatalogRepo.BatchCreateUnits"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(
			`INSERT INTO units(resource_id, name)
			 VALUES ($1, $2)
			 ON CONFLICT (resource_id, name) DO NOTHING`,
			resourceID, name,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// GetResource retrieves a resource by its ID.
//
// Returns:
//   - *domain.Resource: the resource when found.
//   - error: repository.ErrNotFound if the resource is not found.
func (r *CatalogRepo) GetResource(ctx context.Context, id int64) (*domain.Resource, error) {
	const op = "postgres.CatalogRepo.GetResource"

	db := r.handle()

	var res domain.Resource
	err := db.QueryRow(ctx,
		`SELECT id, type, name, price_cents, price_unit, currency, max_guests_per_unit, created_at
		 FROM resources WHERE id = $1`,
		id,
	).Scan(
		&res.ID,
		&res.Type,
		&res.Name,
		&res.PriceCents,
		&res.PriceUnit,
		&res.Currency,
		&res.MaxGuestsPerUnit,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &res, nil
}

// ListUnits returns the resource's inventory units in ascending unit id order.
// The ordering is relied on by deterministic unit selection.
func (r *CatalogRepo) ListUnits(ctx context.Context, resourceID int64) ([]domain.Unit, error) {
	const op = "postgres.CatalogRepo.ListUnits"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, resource_id, name
		 FROM units
		 WHERE resource_id = $1
		 ORDER BY id`,
		resourceID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.ResourceID, &u.Name); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ListResources returns resources by id for report pricing fallback lookups.
func (r *CatalogRepo) ListResources(ctx context.Context, ids []int64) (map[int64]*domain.Resource, error) {
	const op = "postgres.CatalogRepo.ListResources"

	if len(ids) == 0 {
		return map[int64]*domain.Resource{}, nil
	}

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, type, name, price_cents, price_unit, currency, max_guests_per_unit, created_at
		 FROM resources
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make(map[int64]*domain.Resource, len(ids))
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(
			&res.ID,
			&res.Type,
			&res.Name,
			&res.PriceCents,
			&res.PriceUnit,
			&res.Currency,
			&res.MaxGuestsPerUnit,
			&res.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out[res.ID] = &res
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
