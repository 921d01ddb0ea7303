package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levkoval/resv-go/internal/domain"
	"github.com/levkoval/resv-go/internal/repository"
)

// memStore is an in-memory BookingStore. It mirrors the store contract the
// service relies on: Reserve re-reads availability and claims units as one
// unit of work under a single lock, so overlapping claims can never both
// commit.
type memStore struct {
	mu       sync.Mutex
	resource domain.Resource
	units    []domain.Unit
	bookings map[uuid.UUID]*domain.Booking

	// conflictsLeft makes the next n Reserve calls fail with
	// repository.ErrConflict before touching state.
	conflictsLeft int
	reserveCalls  int
}

func newMemStore(unitCount, maxGuestsPerUnit int) *memStore {
	s := &memStore{
		resource: domain.Resource{
			ID:               1,
			Type:             domain.ResourceLodging,
			Name:             "Hilltop Lodge",
			PriceCents:       10000,
			PriceUnit:        domain.PerNight,
			Currency:         "USD",
			MaxGuestsPerUnit: maxGuestsPerUnit,
		},
		bookings: make(map[uuid.UUID]*domain.Booking),
	}
	for i := 1; i <= unitCount; i++ {
		s.units = append(s.units, domain.Unit{ID: int64(i), ResourceID: 1})
	}
	return s
}

func (s *memStore) Reserve(ctx context.Context, req domain.ReservationRequest) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserveCalls++
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return nil, repository.ErrConflict
	}

	if req.ResourceID != s.resource.ID {
		return nil, repository.ErrNotFound
	}
	if !domain.GuestsFit(req.Guests, s.resource.MaxGuestsPerUnit, req.UnitCount) {
		return nil, repository.ErrGuestCapacity
	}

	rng := domain.Range{Starts: req.Starts, Ends: req.Ends}
	occupied := make(map[int64]struct{})
	for _, b := range s.bookings {
		if b.Status == domain.StatusCancelled || !b.Range().Overlaps(rng) {
			continue
		}
		for _, u := range b.Units {
			occupied[u.ID] = struct{}{}
		}
	}

	selected := domain.SelectUnits(domain.AvailableUnits(s.units, occupied), req.UnitCount)
	if selected == nil {
		return nil, repository.ErrUnitsUnavailable
	}

	b := &domain.Booking{
		ID:         uuid.New(),
		ResourceID: req.ResourceID,
		UserID:     req.UserID,
		Guests:     req.Guests,
		Units:      selected,
		Starts:     req.Starts,
		Ends:       req.Ends,
		Status:     domain.StatusPending,
		PriceCents: s.resource.PriceCents,
		PriceUnit:  s.resource.PriceUnit,
		Currency:   s.resource.Currency,
		CreatedAt:  time.Now(),
	}
	s.bookings[b.ID] = b
	return b, nil
}

func (s *memStore) Transition(ctx context.Context, id uuid.UUID, to domain.BookingStatus, actorID int64, detail string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	legal := false
	for _, from := range to.TransitionSources() {
		if b.Status == from {
			legal = true
			break
		}
	}
	if !legal {
		return nil, repository.ErrInvalidTransition
	}

	b.Status = to
	b.History = append(b.History, domain.HistoryEntry{
		BookingID: id,
		Action:    string(to),
		ActorID:   actorID,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return b, nil
}

func (s *memStore) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func testRequest(unitCount, guests int) domain.ReservationRequest {
	starts := time.Date(2026, time.June, 1, 14, 0, 0, 0, time.UTC)
	return domain.ReservationRequest{
		ResourceID: 1,
		UserID:     42,
		Guests:     guests,
		UnitCount:  unitCount,
		Starts:     starts,
		Ends:       starts.Add(72 * time.Hour),
	}
}

func newTestService(store *memStore) *Service {
	return New(store, nil, nil, nil, nil, Config{})
}

func TestReserve(t *testing.T) {
	store := newMemStore(2, 2)
	svc := newTestService(store)

	b, err := svc.Reserve(context.Background(), testRequest(1, 2), "")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, b.Status)
	require.Len(t, b.Units, 1)
	assert.Equal(t, int64(1), b.Units[0].ID)
	assert.Equal(t, int64(10000), b.PriceCents)
	assert.Equal(t, domain.PerNight, b.PriceUnit)
}

func TestReserveValidation(t *testing.T) {
	svc := newTestService(newMemStore(2, 2))
	ctx := context.Background()

	req := testRequest(1, 2)
	req.Ends = req.Starts
	_, err := svc.Reserve(ctx, req, "")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Reserve(ctx, testRequest(0, 2), "")
	assert.Error(t, err)

	_, err = svc.Reserve(ctx, testRequest(1, 0), "")
	assert.Error(t, err)
}

func TestReserveGuestCapacity(t *testing.T) {
	svc := newTestService(newMemStore(2, 2))

	_, err := svc.Reserve(context.Background(), testRequest(1, 3), "")
	assert.ErrorIs(t, err, ErrGuestCapacityExceeded)

	// same guests spread across two units fit
	_, err = svc.Reserve(context.Background(), testRequest(2, 3), "")
	assert.NoError(t, err)
}

func TestReserveUnknownResource(t *testing.T) {
	svc := newTestService(newMemStore(2, 2))

	req := testRequest(1, 2)
	req.ResourceID = 99
	_, err := svc.Reserve(context.Background(), req, "")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestReserveInsufficientAvailability(t *testing.T) {
	store := newMemStore(1, 4)
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, testRequest(1, 2), "")
	assert.ErrorIs(t, err, ErrInsufficientAvailability)
}

// A cancelled booking's units count as free again.
func TestReserveAfterCancel(t *testing.T) {
	store := newMemStore(1, 4)
	svc := newTestService(store)
	ctx := context.Background()

	b, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, b.ID, b.UserID)
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, testRequest(1, 2), "")
	assert.NoError(t, err)
}

func TestReserveRetriesOnceOnConflict(t *testing.T) {
	store := newMemStore(2, 4)
	store.conflictsLeft = 1
	svc := newTestService(store)

	b, err := svc.Reserve(context.Background(), testRequest(1, 2), "")
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, 2, store.reserveCalls)
}

func TestReserveGivesUpAfterSecondConflict(t *testing.T) {
	store := newMemStore(2, 4)
	store.conflictsLeft = 2
	svc := newTestService(store)

	_, err := svc.Reserve(context.Background(), testRequest(1, 2), "")
	assert.ErrorIs(t, err, ErrInsufficientAvailability)
	assert.Equal(t, 2, store.reserveCalls)
}

// One unit, many concurrent overlapping requests: exactly one succeeds and
// the rest see insufficient availability.
func TestReserveConcurrentNoDoubleBooking(t *testing.T) {
	store := newMemStore(1, 4)
	svc := newTestService(store)

	const attempts = 16

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := testRequest(1, 2)
			req.UserID = int64(i + 1)
			_, errs[i] = svc.Reserve(context.Background(), req, "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientAvailability)
		}
	}
	assert.Equal(t, 1, successes)

	claimed := make(map[int64]int)
	for _, b := range store.bookings {
		for _, u := range b.Units {
			claimed[u.ID]++
		}
	}
	for id, n := range claimed {
		assert.Equalf(t, 1, n, "unit %d claimed by %d bookings", id, n)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := newMemStore(2, 4)
	svc := newTestService(store)
	ctx := context.Background()

	b, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)

	// completion requires a confirmed booking
	_, err = svc.Complete(ctx, b.ID, b.UserID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := svc.Confirm(ctx, b.ID, b.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	_, err = svc.Confirm(ctx, b.ID, b.UserID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err = svc.Complete(ctx, b.ID, b.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	// terminal states accept nothing further
	_, err = svc.Cancel(ctx, b.ID, b.UserID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelFromPendingAndConfirmed(t *testing.T) {
	store := newMemStore(2, 4)
	svc := newTestService(store)
	ctx := context.Background()

	pending, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)
	got, err := svc.Cancel(ctx, pending.ID, pending.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	confirmed, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, confirmed.ID, confirmed.UserID)
	require.NoError(t, err)
	got, err = svc.Cancel(ctx, confirmed.ID, confirmed.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

type denyAll struct{}

func (denyAll) Allowed(context.Context, int64, string, *domain.Booking) bool { return false }

func TestTransitionPermissions(t *testing.T) {
	store := newMemStore(2, 4)
	svc := New(store, denyAll{}, nil, nil, nil, Config{})
	ctx := context.Background()

	b, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)

	// a stranger is rejected by the gate
	_, err = svc.Confirm(ctx, b.ID, 999)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// the owner never consults the gate
	_, err = svc.Confirm(ctx, b.ID, b.UserID)
	assert.NoError(t, err)
}

func TestTransitionRecordsHistory(t *testing.T) {
	store := newMemStore(2, 4)
	svc := newTestService(store)
	ctx := context.Background()

	b, err := svc.Reserve(ctx, testRequest(1, 2), "")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, b.ID, b.UserID)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, b.ID, b.UserID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, "confirmed", got.History[0].Action)
	assert.Equal(t, "cancelled", got.History[1].Action)
}

func TestGetUnknownBooking(t *testing.T) {
	svc := newTestService(newMemStore(1, 4))

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
