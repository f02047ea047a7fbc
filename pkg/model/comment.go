package model

import "time"

// Comment may only be posted by a user with a completed approved booking of
// the item. The author name is denormalized for display.
type Comment struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ItemID     string    `json:"item_id" bson:"item_id" validate:"required,mongodb"`
	AuthorID   string    `json:"author_id" bson:"author_id" validate:"required,mongodb"`
	AuthorName string    `json:"author_name" bson:"author_name"`
	Text       string    `json:"text" bson:"text" validate:"required,min=1,max=500"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
