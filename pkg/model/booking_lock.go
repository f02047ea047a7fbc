package model

import "time"

// DecisionLock is an advisory lock document guarding the read-validate-write
// window of the decision engine for one item. The collection carries a TTL
// index on expires_at so abandoned locks expire on their own.
type DecisionLock struct {
	ID        string    `json:"id" bson:"_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}
