package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BookingsPubSub broadcasts booking lifecycle events on a single channel.
// Downstream consumers (mailers, exporters, cache warmers) subscribe to it;
// delivery and templating are out of scope here.
type BookingsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewBookingsPubSub(rdb *redis.Client) *BookingsPubSub {
	return &BookingsPubSub{
		rdb:     rdb,
		channel: ChannelBookingsChanged(),
	}
}

type bookingChangedMsg struct {
	Event      string    `json:"event"`
	BookingID  uuid.UUID `json:"booking_id"`
	ResourceID int64     `json:"resource_id"`
	TsUnix     int64     `json:"ts_unix"`
}

func (p *BookingsPubSub) PublishBookingChanged(
	ctx context.Context,
	event string,
	bookingID uuid.UUID,
	resourceID int64,
) error {
	msg := bookingChangedMsg{
		Event:      event,
		BookingID:  bookingID,
		ResourceID: resourceID,
		TsUnix:     time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *BookingsPubSub) Subscribe(
	ctx context.Context,
	handler func(ctx context.Context, event string, bookingID uuid.UUID, resourceID int64),
) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev bookingChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.BookingID != uuid.Nil {
				handler(ctx, ev.Event, ev.BookingID, ev.ResourceID)
			}
		}
	}
}
