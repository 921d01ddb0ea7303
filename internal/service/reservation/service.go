package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/levkoval/resv-go/internal/domain"
	"github.com/levkoval/resv-go/internal/repository"
	redisrepo "github.com/levkoval/resv-go/internal/repository/redis"
)

// BookingStore is the atomic persistence contract the writer relies on.
// Implementations must run the availability read and the claim write of
// Reserve as one serializable unit, surfacing write conflicts as
// repository.ErrConflict.
type BookingStore interface {
	Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Booking, error)
	Transition(ctx context.Context, id uuid.UUID, to domain.BookingStatus, actorID int64, detail string) (*domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

// Notifier is invoked after successful transitions. Delivery and templating
// are downstream concerns.
type Notifier interface {
	Notify(ctx context.Context, event string, b *domain.Booking)
}

// PermissionChecker gates lifecycle actions on bookings the actor does not
// own. Role storage lives with the caller; the engine only consults the gate.
type PermissionChecker interface {
	Allowed(ctx context.Context, actorID int64, action string, b *domain.Booking) bool
}

// AllowAll permits every action; the default for deployments fronted by
// their own authorization layer.
type AllowAll struct{}

func (AllowAll) Allowed(context.Context, int64, string, *domain.Booking) bool { return true }

type Config struct {
	// ReserveTimeout bounds the wait for the reservation critical section.
	// An attempt that cannot finish in time fails rather than queueing.
	ReserveTimeout time.Duration
}

type Service struct {
	bookings BookingStore
	perms    PermissionChecker
	notifier Notifier
	cache    *redisrepo.Cache
	limiter  *redisrepo.SlidingWindowLimiter
	cfg      Config
}

func New(
	bookings BookingStore,
	perms PermissionChecker,
	notifier Notifier,
	cache *redisrepo.Cache,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.ReserveTimeout <= 0 {
		cfg.ReserveTimeout = 3 * time.Second
	}

	if perms == nil {
		perms = AllowAll{}
	}

	return &Service{
		bookings: bookings,
		perms:    perms,
		notifier: notifier,
		cache:    cache,
		limiter:  limiter,
		cfg:      cfg,
	}
}

// Reserve claims units for a new booking. On a store write conflict it
// retries the read-then-write sequence exactly once, then reports
// insufficient availability; first committer wins.
//
// Returns:
//   - *domain.Booking: the created booking in status pending.
//   - error: reservation.ErrInvalidRange for a malformed range.
//   - error: reservation.ErrGuestCapacityExceeded when guests exceed capacity.
//   - error: reservation.ErrInsufficientAvailability when capacity is gone.
//   - error: reservation.ErrResourceNotFound for an unknown resource.
func (s *Service) Reserve(
	ctx context.Context,
	req domain.ReservationRequest,
	rlKey string,
) (*domain.Booking, error) {
	const op = "service.reservation.Reserve"

	if err := (domain.Range{Starts: req.Starts, Ends: req.Ends}).Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRange)
	}

	if req.UnitCount <= 0 {
		return nil, fmt.Errorf("%s: unit count must be positive", op)
	}

	if req.Guests <= 0 {
		return nil, fmt.Errorf("%s: guest count must be positive", op)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: rate limited, retry in %s", op, retry)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReserveTimeout)
	defer cancel()

	b, err := s.bookings.Reserve(ctx, req)
	if errors.Is(err, repository.ErrConflict) {
		// One transparent retry after a serialization conflict; the re-read
		// sees the winner's claims.
		b, err = s.bookings.Reserve(ctx, req)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUnitsUnavailable),
			errors.Is(err, repository.ErrConflict),
			errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%s: %w", op, ErrInsufficientAvailability)
		case errors.Is(err, repository.ErrGuestCapacity):
			return nil, fmt.Errorf("%s: %w", op, ErrGuestCapacityExceeded)
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrResourceNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateResource(ctx, b.ResourceID)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, "request", b)
	}

	return b, nil
}

// Confirm moves a pending booking to confirmed.
//
// Returns:
//   - error: reservation.ErrBookingNotFound for an unknown booking.
//   - error: reservation.ErrPermissionDenied when the actor may not confirm.
//   - error: reservation.ErrInvalidTransition when not pending.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actorID int64) (*domain.Booking, error) {
	const op = "service.reservation.Confirm"

	b, err := s.transition(ctx, id, domain.StatusConfirmed, actorID, "confirmed by staff or owner")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, "confirmed", b)
	}

	return b, nil
}

// Cancel moves a pending or confirmed booking to cancelled. The booking's
// claimed units stop counting as occupied from the moment the transition
// commits; its financial records freeze but remain readable.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID int64) (*domain.Booking, error) {
	const op = "service.reservation.Cancel"

	b, err := s.transition(ctx, id, domain.StatusCancelled, actorID, "cancelled")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateResource(ctx, b.ResourceID)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, "cancelled", b)
	}

	return b, nil
}

// Complete moves a confirmed booking to completed, typically once its end
// instant has passed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actorID int64) (*domain.Booking, error) {
	const op = "service.reservation.Complete"

	b, err := s.transition(ctx, id, domain.StatusCompleted, actorID, "completed")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// Get loads a booking with bills, payments and history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.reservation.Get"

	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	to domain.BookingStatus,
	actorID int64,
	detail string,
) (*domain.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if b.UserID != actorID && !s.perms.Allowed(ctx, actorID, string(to), b) {
		return nil, ErrPermissionDenied
	}

	updated, err := s.bookings.Transition(ctx, id, to, actorID, detail)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, ErrInvalidTransition
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return updated, nil
}
