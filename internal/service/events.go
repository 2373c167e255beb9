package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/queue"
)

// EventPublisher delivers booking events to downstream consumers.
// Delivery is best effort: the booking state is already committed when
// an event is published.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

func publish(ctx context.Context, p EventPublisher, log *zap.Logger, ev queue.BookingEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("publish booking event failed",
			zap.String("type", string(ev.Type)),
			zap.String("booking_group_id", ev.BookingGroupID),
			zap.Error(err))
	}
}
