package model

import (
	"strings"
	"time"
)

// BookingStatus is the persisted lifecycle status of a booking. A booking is
// created WAITING and transitions at most once, by the item owner's decision,
// to APPROVED or REJECTED.
type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// BookingState is a listing filter. ALL, CURRENT, PAST and FUTURE are
// query-time classifications evaluated against the clock; WAITING and
// REJECTED match the persisted status. States are never stored.
type BookingState string

const (
	StateAll      BookingState = "ALL"
	StateCurrent  BookingState = "CURRENT"
	StatePast     BookingState = "PAST"
	StateFuture   BookingState = "FUTURE"
	StateWaiting  BookingState = "WAITING"
	StateRejected BookingState = "REJECTED"
)

// ParseBookingState maps a caller-supplied filter value to a BookingState.
// An empty value defaults to ALL.
func ParseBookingState(s string) (BookingState, bool) {
	if s == "" {
		return StateAll, true
	}
	state := BookingState(strings.ToUpper(s))
	switch state {
	case StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected:
		return state, true
	}
	return "", false
}

type Booking struct {
	ID        string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ItemID    string        `json:"item_id" bson:"item_id" validate:"required,mongodb"`
	BookerID  string        `json:"booker_id" bson:"booker_id" validate:"omitempty,mongodb"`
	OwnerID   string        `json:"owner_id,omitempty" bson:"owner_id" validate:"omitempty,mongodb"`
	StartTime time.Time     `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time     `json:"end_time" bson:"end_time" validate:"required"`
	Status    BookingStatus `json:"status" bson:"status" validate:"omitempty,oneof=WAITING APPROVED REJECTED"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`

	// Item and Booker are resolved for presentation only and never persisted
	// on the booking document.
	Item   *Item `json:"item,omitempty" bson:"-"`
	Booker *User `json:"booker,omitempty" bson:"-"`
}

// Overlaps reports whether the booking's interval intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}
