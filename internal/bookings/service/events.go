package service

import (
	"context"
	"encoding/json"
	"time"

	"lendly/pkg/kafka"
	"lendly/pkg/model"
)

const (
	EventBookingCreated  = "booking.created"
	EventBookingApproved = "booking.approved"
	EventBookingRejected = "booking.rejected"

	eventSource = "lendly.bookings"
)

// EventPublisher publishes lifecycle events. The service treats publishing
// as best effort and never fails a request over it.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type bookingEvent struct {
	BookingID  string    `json:"booking_id"`
	ItemID     string    `json:"item_id"`
	BookerID   string    `json:"booker_id"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publishEvent emits a lifecycle event keyed by the booking id, so events
// for one booking stay ordered on a single partition. A nil publisher
// disables eventing entirely.
func (s *BookingService) publishEvent(ctx context.Context, eventType string, booking *model.Booking) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(bookingEvent{
		BookingID:  booking.ID,
		ItemID:     booking.ItemID,
		BookerID:   booking.BookerID,
		OwnerID:    booking.OwnerID,
		Status:     string(booking.Status),
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		OccurredAt: s.nowFn().UTC(),
	})
	if err != nil {
		s.log.Error("failed to encode booking event", "event_type", eventType, "error", err)
		return
	}

	msg, err := kafka.NewMessageBuilder().
		WithKey(booking.ID).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(eventSource).
		Build()
	if err != nil {
		s.log.Error("failed to build booking event", "event_type", eventType, "error", err)
		return
	}

	if err := s.events.Publish(ctx, msg); err != nil {
		s.log.Error("failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}
