package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lendly/pkg/model"
)

const (
	requestsCollection = "item_requests"
	operationTimeout   = 5 * time.Second
)

var (
	ErrNotFound  = errors.New("item request not found")
	ErrInvalidID = errors.New("invalid item request id")
)

type requestDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RequesterID primitive.ObjectID `bson:"requester_id"`
	Description string             `bson:"description"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d *requestDocument) toModel() *model.ItemRequest {
	return &model.ItemRequest{
		ID:          d.ID.Hex(),
		RequesterID: d.RequesterID.Hex(),
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

type RequestRepository struct {
	collection *mongo.Collection
}

func NewRequestRepository(client *mongo.Client, dbName string) *RequestRepository {
	return &RequestRepository{
		collection: client.Database(dbName).Collection(requestsCollection),
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, operationTimeout)
}

func (r *RequestRepository) Create(ctx context.Context, request *model.ItemRequest) (*model.ItemRequest, error) {
	requesterID, err := primitive.ObjectIDFromHex(request.RequesterID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := requestDocument{
		ID:          primitive.NewObjectID(),
		RequesterID: requesterID,
		Description: request.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*model.ItemRequest, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc requestDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// Exists reports whether a request with the given id is stored. A malformed
// id simply does not exist.
func (r *RequestRepository) Exists(ctx context.Context, id string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByRequester lists a user's own requests, newest first.
func (r *RequestRepository) FindByRequester(ctx context.Context, requesterID string) ([]model.ItemRequest, error) {
	requester, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"requester_id": requester}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeRequests(ctx, cursor)
}

// FindOthers pages over requests made by everyone except the given user,
// newest first.
func (r *RequestRepository) FindOthers(ctx context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequest, error) {
	requester, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(offset).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"requester_id": bson.M{"$ne": requester}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeRequests(ctx, cursor)
}

func decodeRequests(ctx context.Context, cursor *mongo.Cursor) ([]model.ItemRequest, error) {
	var requests []model.ItemRequest
	for cursor.Next(ctx) {
		var doc requestDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		requests = append(requests, *doc.toModel())
	}
	return requests, cursor.Err()
}
