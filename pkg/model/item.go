package model

import "time"

type Item struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID     string    `json:"owner_id" bson:"owner_id" validate:"omitempty,mongodb"`
	Name        string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Description string    `json:"description" bson:"description" validate:"required,min=1,max=500"`
	Available   *bool     `json:"available" bson:"available" validate:"required"`
	// RequestID links an item offered in response to an item request.
	RequestID string    `json:"request_id,omitempty" bson:"request_id,omitempty" validate:"omitempty,mongodb"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// IsAvailable treats an unset flag as unavailable.
func (i *Item) IsAvailable() bool {
	return i.Available != nil && *i.Available
}

type ItemUpdate struct {
	Name        string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,min=1,max=500"`
	Available   *bool  `json:"available,omitempty"`
}

// BookingSlot is the compact booking reference attached to an item view.
type BookingSlot struct {
	ID        string    `json:"id"`
	BookerID  string    `json:"booker_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// ItemView is the read model returned to callers. LastBooking and NextBooking
// are recomputed on every read and populated only for the item's owner; they
// are never persisted.
type ItemView struct {
	Item        `bson:",inline"`
	LastBooking *BookingSlot `json:"last_booking"`
	NextBooking *BookingSlot `json:"next_booking"`
	Comments    []Comment    `json:"comments"`
}

// SlotOf projects a booking into the reference shape used by item views.
func SlotOf(b *Booking) *BookingSlot {
	if b == nil {
		return nil
	}
	return &BookingSlot{
		ID:        b.ID,
		BookerID:  b.BookerID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
	}
}
