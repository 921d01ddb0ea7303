package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/levkoval/resv-go/internal/domain"
	"github.com/levkoval/resv-go/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Reserve atomically claims units for a new booking. The availability read
// and the claim write run in one serializable transaction; concurrent
// attempts on the same resource and overlapping range conflict at commit and
// surface as repository.ErrConflict, which the caller retries once.
//
// Returns:
//   - *domain.Booking: the created booking, status pending.
//   - error: repository.ErrNotFound if the resource does not exist.
//   - error: repository.ErrGuestCapacity if guests exceed unit capacity.
//   - error: repository.ErrUnitsUnavailable if capacity is insufficient.
//   - error: repository.ErrConflict on a serialization conflict.
func (r *BookingRepo) Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Reserve"

	if r.db != nil {
		b, err := r.reserveCore(ctx, r.db, req)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		return b, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	b, err := r.reserveCore(ctx, tx, req)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) reserveCore(
	ctx context.Context,
	db DB,
	req domain.ReservationRequest,
) (*domain.Booking, error) {
	var res domain.Resource
	if err := db.QueryRow(ctx,
		`SELECT id, price_cents, price_unit, currency, max_guests_per_unit
		   FROM resources
		  WHERE id = $1`,
		req.ResourceID,
	).Scan(&res.ID, &res.PriceCents, &res.PriceUnit, &res.Currency, &res.MaxGuestsPerUnit); err != nil {
		return nil, err
	}

	if !domain.GuestsFit(req.Guests, res.MaxGuestsPerUnit, req.UnitCount) {
		return nil, repository.ErrGuestCapacity
	}

	units, err := listUnits(ctx, db, req.ResourceID)
	if err != nil {
		return nil, err
	}

	occupied, err := occupiedUnits(ctx, db, req.ResourceID, req.Starts, req.Ends, uuid.Nil)
	if err != nil {
		return nil, err
	}

	selected := domain.SelectUnits(domain.AvailableUnits(units, occupied), req.UnitCount)
	if selected == nil {
		return nil, repository.ErrUnitsUnavailable
	}

	bookingID := uuid.New()

	var createdAt time.Time
	if err := db.QueryRow(ctx,
		`INSERT INTO bookings(
            id, resource_id, user_id, guests, starts_at, ends_at, status,
            price_cents, price_unit, currency, discount_pct)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)
		 RETURNING created_at`,
		bookingID, req.ResourceID, req.UserID, req.Guests, req.Starts, req.Ends,
		domain.StatusPending, res.PriceCents, res.PriceUnit, res.Currency,
	).Scan(&createdAt); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, u := range selected {
		batch.Queue(
			`INSERT INTO booking_units(booking_id, unit_id)
			 VALUES ($1, $2)`,
			bookingID, u.ID,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}

	created, err := appendHistory(ctx, db, bookingID, domain.ActionCreated, req.UserID,
		fmt.Sprintf("reserved %d unit(s)", len(selected)))
	if err != nil {
		return nil, err
	}

	return &domain.Booking{
		ID:          bookingID,
		ResourceID:  req.ResourceID,
		UserID:      req.UserID,
		Guests:      req.Guests,
		Units:       selected,
		Starts:      req.Starts,
		Ends:        req.Ends,
		Status:      domain.StatusPending,
		PriceCents:  res.PriceCents,
		PriceUnit:   res.PriceUnit,
		Currency:    res.Currency,
		DiscountPct: 0,
		History:     []domain.HistoryEntry{*created},
		CreatedAt:   createdAt,
	}, nil
}

// Transition updates status if the current status is one of the given legal
// sources for the target, then appends a history entry. Idempotent-safe:
// repeating a transition returns repository.ErrInvalidTransition, never
// silent success.
//
// Returns:
//   - *domain.Booking: the booking after the transition.
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrInvalidTransition if the transition is illegal.
func (r *BookingRepo) Transition(
	ctx context.Context,
	id uuid.UUID,
	to domain.BookingStatus,
	actorID int64,
	detail string,
) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Transition"

	if r.db != nil {
		b, err := r.transitionCore(ctx, r.db, id, to, actorID, detail)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		return b, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	b, err := r.transitionCore(ctx, tx, id, to, actorID, detail)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) transitionCore(
	ctx context.Context,
	db DB,
	id uuid.UUID,
	to domain.BookingStatus,
	actorID int64,
	detail string,
) (*domain.Booking, error) {
	sources := to.TransitionSources()
	if len(sources) == 0 {
		return nil, repository.ErrInvalidTransition
	}

	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		    SET status = $2
		  WHERE id = $1
		    AND status = ANY($3)`,
		id, to, from,
	)
	if err != nil {
		return nil, err
	}

	if tag.RowsAffected() == 0 {
		var current string
		if err := db.QueryRow(ctx,
			`SELECT status FROM bookings WHERE id = $1`, id,
		).Scan(&current); err != nil {
			return nil, err
		}
		return nil, repository.ErrInvalidTransition
	}

	action := string(to)
	if _, err := appendHistory(ctx, db, id, action, actorID, detail); err != nil {
		return nil, err
	}

	return getCore(ctx, db, id)
}

// Get loads a booking with its units, bills, payments and history.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	b, err := getCore(ctx, r.handle(), id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// AddBill appends a charge. Corrections are additional entries with negative
// amounts; bills are never deleted.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrFrozen if the booking is cancelled.
func (r *BookingRepo) AddBill(
	ctx context.Context,
	bookingID uuid.UUID,
	amountCents int64,
	label string,
	actorID int64,
) (*domain.Bill, error) {
	const op = "postgres.BookingRepo.AddBill"

	db := r.handle()

	if err := ensureMutable(ctx, db, bookingID); err != nil {
		return nil, wrapDBErr(op, err)
	}

	bill := &domain.Bill{
		ID:          uuid.New(),
		BookingID:   bookingID,
		AmountCents: amountCents,
		Label:       label,
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO booking_bills(id, booking_id, amount_cents, label)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		bill.ID, bookingID, amountCents, label,
	).Scan(&bill.CreatedAt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if _, err := appendHistory(ctx, db, bookingID, domain.ActionBillAdded, actorID,
		fmt.Sprintf("bill %q %d", label, amountCents)); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return bill, nil
}

// AddPayment records an amount paid toward the balance.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrFrozen if the booking is cancelled.
func (r *BookingRepo) AddPayment(
	ctx context.Context,
	bookingID uuid.UUID,
	amountCents int64,
	actorID int64,
) (*domain.Payment, error) {
	const op = "postgres.BookingRepo.AddPayment"

	db := r.handle()

	if err := ensureMutable(ctx, db, bookingID); err != nil {
		return nil, wrapDBErr(op, err)
	}

	p := &domain.Payment{
		ID:          uuid.New(),
		BookingID:   bookingID,
		AmountCents: amountCents,
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO booking_payments(id, booking_id, amount_cents)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`,
		p.ID, bookingID, amountCents,
	).Scan(&p.CreatedAt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if _, err := appendHistory(ctx, db, bookingID, domain.ActionPaymentAdd, actorID,
		fmt.Sprintf("payment %d", amountCents)); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return p, nil
}

// SetDiscount sets the discount percentage (0-100).
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrFrozen if the booking is cancelled.
func (r *BookingRepo) SetDiscount(
	ctx context.Context,
	bookingID uuid.UUID,
	pct int,
	actorID int64,
) error {
	const op = "postgres.BookingRepo.SetDiscount"

	db := r.handle()

	if err := ensureMutable(ctx, db, bookingID); err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE bookings SET discount_pct = $2 WHERE id = $1`,
		bookingID, pct,
	); err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := appendHistory(ctx, db, bookingID, domain.ActionDiscount, actorID,
		fmt.Sprintf("discount %d%%", pct)); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// OccupiedUnits returns the unit ids claimed by non-cancelled bookings on the
// resource whose intervals overlap the range, excluding the given booking id
// (uuid.Nil to exclude none).
func (r *BookingRepo) OccupiedUnits(
	ctx context.Context,
	resourceID int64,
	rng domain.Range,
	excluding uuid.UUID,
) (map[int64]struct{}, error) {
	const op = "postgres.BookingRepo.OccupiedUnits"

	occ, err := occupiedUnits(ctx, r.handle(), resourceID, rng.Starts, rng.Ends, excluding)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return occ, nil
}

// ListByRange returns bookings overlapping [from, to) with their units, bills
// and payments loaded, ordered by start time. History is not loaded; reports
// do not need it.
func (r *BookingRepo) ListByRange(ctx context.Context, from, to time.Time) ([]*domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByRange"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, resource_id, user_id, guests, starts_at, ends_at, status,
		        price_cents, price_unit, currency, discount_pct, created_at
		   FROM bookings
		  WHERE starts_at < $2 AND $1 < ends_at
		  ORDER BY starts_at, id`,
		from, to,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []*domain.Booking
	index := make(map[uuid.UUID]*domain.Booking)
	var ids []uuid.UUID

	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.ResourceID, &b.UserID, &b.Guests, &b.Starts, &b.Ends, &b.Status,
			&b.PriceCents, &b.PriceUnit, &b.Currency, &b.DiscountPct, &b.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, &b)
		index[b.ID] = &b
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	if len(out) == 0 {
		return out, nil
	}

	if err := loadUnits(ctx, db, ids, index); err != nil {
		return nil, wrapDBErr(op, err)
	}
	if err := loadBills(ctx, db, ids, index); err != nil {
		return nil, wrapDBErr(op, err)
	}
	if err := loadPayments(ctx, db, ids, index); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// --- shared query helpers ---

func listUnits(ctx context.Context, db DB, resourceID int64) ([]domain.Unit, error) {
	rows, err := db.Query(ctx,
		`SELECT id, resource_id, name
		   FROM units
		  WHERE resource_id = $1
		  ORDER BY id`,
		resourceID,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.Unit
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.ResourceID, &u.Name); err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

func occupiedUnits(
	ctx context.Context,
	db DB,
	resourceID int64,
	starts, ends time.Time,
	excluding uuid.UUID,
) (map[int64]struct{}, error) {
	rows, err := db.Query(ctx,
		`SELECT DISTINCT bu.unit_id
		   FROM booking_units bu
		   JOIN bookings b ON b.id = bu.booking_id
		  WHERE b.resource_id = $1
		    AND b.status <> $2
		    AND b.starts_at < $4 AND $3 < b.ends_at
		    AND ($5::uuid IS NULL OR b.id <> $5)`,
		resourceID, domain.StatusCancelled, starts, ends, nilUUID(excluding),
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	occ := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		occ[id] = struct{}{}
	}

	return occ, rows.Err()
}

func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func ensureMutable(ctx context.Context, db DB, bookingID uuid.UUID) error {
	var status domain.BookingStatus
	if err := db.QueryRow(ctx,
		`SELECT status FROM bookings WHERE id = $1`, bookingID,
	).Scan(&status); err != nil {
		return err
	}

	if status == domain.StatusCancelled {
		return repository.ErrFrozen
	}

	return nil
}

func appendHistory(
	ctx context.Context,
	db DB,
	bookingID uuid.UUID,
	action string,
	actorID int64,
	detail string,
) (*domain.HistoryEntry, error) {
	h := &domain.HistoryEntry{
		BookingID: bookingID,
		Action:    action,
		ActorID:   actorID,
		Detail:    detail,
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO booking_history(booking_id, action, actor_id, detail)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		bookingID, action, actorID, detail,
	).Scan(&h.ID, &h.CreatedAt); err != nil {
		return nil, err
	}

	return h, nil
}

func getCore(ctx context.Context, db DB, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.QueryRow(ctx,
		`SELECT id, resource_id, user_id, guests, starts_at, ends_at, status,
		        price_cents, price_unit, currency, discount_pct, created_at
		   FROM bookings
		  WHERE id = $1`,
		id,
	).Scan(
		&b.ID, &b.ResourceID, &b.UserID, &b.Guests, &b.Starts, &b.Ends, &b.Status,
		&b.PriceCents, &b.PriceUnit, &b.Currency, &b.DiscountPct, &b.CreatedAt,
	); err != nil {
		return nil, err
	}

	index := map[uuid.UUID]*domain.Booking{b.ID: &b}
	ids := []uuid.UUID{b.ID}

	if err := loadUnits(ctx, db, ids, index); err != nil {
		return nil, err
	}
	if err := loadBills(ctx, db, ids, index); err != nil {
		return nil, err
	}
	if err := loadPayments(ctx, db, ids, index); err != nil {
		return nil, err
	}

	rows, err := db.Query(ctx,
		`SELECT id, booking_id, action, actor_id, detail, created_at
		   FROM booking_history
		  WHERE booking_id = $1
		  ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.ID, &h.BookingID, &h.Action, &h.ActorID, &h.Detail, &h.CreatedAt); err != nil {
			return nil, err
		}
		b.History = append(b.History, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &b, nil
}

func loadUnits(ctx context.Context, db DB, ids []uuid.UUID, index map[uuid.UUID]*domain.Booking) error {
	rows, err := db.Query(ctx,
		`SELECT bu.booking_id, u.id, u.resource_id, u.name
		   FROM booking_units bu
		   JOIN units u ON u.id = bu.unit_id
		  WHERE bu.booking_id = ANY($1)
		  ORDER BY u.id`,
		ids,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var bid uuid.UUID
		var u domain.Unit
		if err := rows.Scan(&bid, &u.ID, &u.ResourceID, &u.Name); err != nil {
			return err
		}
		if b, ok := index[bid]; ok {
			b.Units = append(b.Units, u)
		}
	}

	return rows.Err()
}

func loadBills(ctx context.Context, db DB, ids []uuid.UUID, index map[uuid.UUID]*domain.Booking) error {
	rows, err := db.Query(ctx,
		`SELECT id, booking_id, amount_cents, label, created_at
		   FROM booking_bills
		  WHERE booking_id = ANY($1)
		  ORDER BY created_at, id`,
		ids,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var bill domain.Bill
		if err := rows.Scan(&bill.ID, &bill.BookingID, &bill.AmountCents, &bill.Label, &bill.CreatedAt); err != nil {
			return err
		}
		if b, ok := index[bill.BookingID]; ok {
			b.Bills = append(b.Bills, bill)
		}
	}

	return rows.Err()
}

func loadPayments(ctx context.Context, db DB, ids []uuid.UUID, index map[uuid.UUID]*domain.Booking) error {
	rows, err := db.Query(ctx,
		`SELECT id, booking_id, amount_cents, created_at
		   FROM booking_payments
		  WHERE booking_id = ANY($1)
		  ORDER BY created_at, id`,
		ids,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.CreatedAt); err != nil {
			return err
		}
		if b, ok := index[p.BookingID]; ok {
			b.Payments = append(b.Payments, p)
		}
	}

	return rows.Err()
}
