package service

import (
	"context"
	"log/slog"

	"github.com/levkoval/resv-go/internal/domain"
	redisx "github.com/levkoval/resv-go/internal/redis"
	postgres "github.com/levkoval/resv-go/internal/repository/postgres"
	redis "github.com/levkoval/resv-go/internal/repository/redis"
	"github.com/levkoval/resv-go/internal/service/availability"
	"github.com/levkoval/resv-go/internal/service/billing"
	"github.com/levkoval/resv-go/internal/service/catalog"
	"github.com/levkoval/resv-go/internal/service/report"
	"github.com/levkoval/resv-go/internal/service/reservation"
)

type Services struct {
	Availability *availability.Service
	Reservation  *reservation.Service
	Billing      *billing.Service
	Report       *report.Service
	Catalog      *catalog.Service
}

type Config struct {
	Availability availability.Config
	Reservation  reservation.Config
	Billing      billing.Config
	Report       report.Config
	Catalog      catalog.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.BookingsPubSub,
	limiter *redis.SlidingWindowLimiter,
	perms reservation.PermissionChecker,
	logger *slog.Logger,
	cfg Config,
) *Services {
	var notifier reservation.Notifier
	if pubsub != nil {
		notifier = pubsubNotifier{ps: pubsub}
	}

	return &Services{
		Availability: availability.New(store, cache, cfg.Availability),
		Reservation:  reservation.New(store.Bookings(), perms, notifier, cache, limiter, cfg.Reservation),
		Billing:      billing.New(store, logger, cfg.Billing),
		Report:       report.New(store, cache, cfg.Report),
		Catalog:      catalog.New(store, cache, cfg.Catalog),
	}
}

// pubsubNotifier adapts the bookings pub/sub channel to the notification
// collaborator contract. Publish failures are dropped; the booking itself is
// already committed.
type pubsubNotifier struct {
	ps *redisx.BookingsPubSub
}

func (n pubsubNotifier) Notify(ctx context.Context, event string, b *domain.Booking) {
	_ = n.ps.PublishBookingChanged(ctx, event, b.ID, b.ResourceID)
}
