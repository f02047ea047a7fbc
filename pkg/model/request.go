package model

import "time"

// ItemRequest is a user's ask for an item nobody has listed yet. Owners
// respond by creating items that reference the request.
type ItemRequest struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RequesterID string    `json:"requester_id" bson:"requester_id" validate:"omitempty,mongodb"`
	Description string    `json:"description" bson:"description" validate:"required,min=1,max=500"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// ItemRequestView is the read model: the request plus the items offered in
// response to it.
type ItemRequestView struct {
	ItemRequest `bson:",inline"`
	Items       []Item `json:"items"`
}
