package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/levkoval/resv-go/internal/domain"
	"github.com/levkoval/resv-go/internal/repository"
	postgresrepo "github.com/levkoval/resv-go/internal/repository/postgres"
	"github.com/levkoval/resv-go/internal/uow"
)

type Config struct {
	// HoursPerDay is the assumed hours of event service per day for per-hour
	// pricing.
	HoursPerDay int
}

type Service struct {
	store  *postgresrepo.Store
	uow    *uow.UoW
	logger *slog.Logger
	cfg    Config
}

func New(store *postgresrepo.Store, logger *slog.Logger, cfg Config) *Service {
	if cfg.HoursPerDay <= 0 {
		cfg.HoursPerDay = domain.DefaultHoursPerDay
	}

	return &Service{
		store:  store,
		uow:    uow.NewUoW(store),
		logger: logger,
		cfg:    cfg,
	}
}

// Financials loads a booking and derives its financial snapshot. A booking
// without a stored pricing snapshot falls back to the live resource price;
// the fallback is logged for audit but never fails the read.
//
// Returns:
//   - error: billing.ErrBookingNotFound for an unknown booking.
func (s *Service) Financials(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, domain.Financials, error) {
	const op = "service.billing.Financials"

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Financials{}, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, domain.Financials{}, fmt.Errorf("%s: %w", op, err)
	}

	var live *domain.Resource
	if !b.HasSnapshot() {
		live, err = s.store.Catalog().GetResource(ctx, b.ResourceID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Financials{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	f, fellBack := domain.ComputeFinancials(b, live, s.cfg.HoursPerDay)
	if fellBack && s.logger != nil {
		s.logger.Warn("pricing snapshot missing; using live resource price",
			"booking_id", b.ID,
			"resource_id", b.ResourceID,
		)
	}

	return b, f, nil
}

// AddBill appends a charge to the booking. Amounts may be negative; a
// correction is a new entry, never an edit.
//
// Returns:
//   - error: billing.ErrBookingNotFound for an unknown booking.
//   - error: billing.ErrBookingFrozen once the booking is cancelled.
func (s *Service) AddBill(
	ctx context.Context,
	bookingID uuid.UUID,
	amountCents int64,
	label string,
	actorID int64,
) (*domain.Bill, error) {
	const op = "service.billing.AddBill"

	var bill *domain.Bill
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		bill, err = s.store.Bookings().With(tx).AddBill(ctx, bookingID, amountCents, label, actorID)
		if err != nil {
			return s.mapMutationErr(op, err)
		}
		return nil
	})

	return bill, err
}

// AddPayment records a payment toward the booking's balance.
//
// Returns:
//   - error: billing.ErrBookingNotFound for an unknown booking.
//   - error: billing.ErrBookingFrozen once the booking is cancelled.
func (s *Service) AddPayment(
	ctx context.Context,
	bookingID uuid.UUID,
	amountCents int64,
	actorID int64,
) (*domain.Payment, error) {
	const op = "service.billing.AddPayment"

	var p *domain.Payment
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		p, err = s.store.Bookings().With(tx).AddPayment(ctx, bookingID, amountCents, actorID)
		if err != nil {
			return s.mapMutationErr(op, err)
		}
		return nil
	})

	return p, err
}

// SetDiscount sets the discount percentage on the booking.
//
// Returns:
//   - error: billing.ErrInvalidDiscount outside 0-100.
//   - error: billing.ErrBookingNotFound for an unknown booking.
//   - error: billing.ErrBookingFrozen once the booking is cancelled.
func (s *Service) SetDiscount(
	ctx context.Context,
	bookingID uuid.UUID,
	pct int,
	actorID int64,
) error {
	const op = "service.billing.SetDiscount"

	if pct < 0 || pct > 100 {
		return fmt.Errorf("%s: %w", op, ErrInvalidDiscount)
	}

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Bookings().With(tx).SetDiscount(ctx, bookingID, pct, actorID); err != nil {
			return s.mapMutationErr(op, err)
		}
		return nil
	})
}

func (s *Service) mapMutationErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrBookingNotFound)
	case errors.Is(err, repository.ErrFrozen):
		return fmt.Errorf("%s: %w", op, ErrBookingFrozen)
	}
	return fmt.Errorf("%s: %w", op, err)
}
