package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lendly/pkg/model"
)

const locksCollection = "decision_locks"

// ErrLocked signals that another decision on the same item holds the lock.
var ErrLocked = errors.New("item decision lock is held")

// DecisionLockRepository implements a per-item advisory lock as a unique
// document keyed by the item id. A TTL index on expires_at reclaims locks
// left behind by crashed processes.
type DecisionLockRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewDecisionLockRepository(client *mongo.Client, dbName string, ttl time.Duration) *DecisionLockRepository {
	return &DecisionLockRepository{
		collection: client.Database(dbName).Collection(locksCollection),
		ttl:        ttl,
	}
}

// EnsureIndexes creates the TTL index. Expiry at zero seconds after
// expires_at leaves the TTL entirely to the document's own timestamp.
func (r *DecisionLockRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// Acquire takes the lock for an item. A duplicate key means another decision
// is in flight.
func (r *DecisionLockRepository) Acquire(ctx context.Context, itemID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	lock := model.DecisionLock{
		ID:        itemID,
		ExpiresAt: time.Now().UTC().Add(r.ttl),
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if mongo.IsDuplicateKeyError(err) {
		return ErrLocked
	}
	return err
}

func (r *DecisionLockRepository) Release(ctx context.Context, itemID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": itemID})
	return err
}
