package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lendly/pkg/model"
)

const (
	itemsCollection  = "items"
	operationTimeout = 5 * time.Second
)

var (
	ErrNotFound  = errors.New("item not found")
	ErrInvalidID = errors.New("invalid item id")
)

type itemDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	OwnerID     primitive.ObjectID  `bson:"owner_id"`
	Name        string              `bson:"name"`
	Description string              `bson:"description"`
	Available   bool                `bson:"available"`
	RequestID   *primitive.ObjectID `bson:"request_id,omitempty"`
	CreatedAt   time.Time           `bson:"created_at"`
}

func (d *itemDocument) toModel() *model.Item {
	available := d.Available
	item := &model.Item{
		ID:          d.ID.Hex(),
		OwnerID:     d.OwnerID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Available:   &available,
		CreatedAt:   d.CreatedAt,
	}
	if d.RequestID != nil {
		item.RequestID = d.RequestID.Hex()
	}
	return item
}

type ItemRepository struct {
	collection *mongo.Collection
}

func NewItemRepository(client *mongo.Client, dbName string) *ItemRepository {
	return &ItemRepository{
		collection: client.Database(dbName).Collection(itemsCollection),
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, operationTimeout)
}

func (r *ItemRepository) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	ownerID, err := primitive.ObjectIDFromHex(item.OwnerID)
	if err != nil {
		return nil, ErrInvalidID
	}

	var requestID *primitive.ObjectID
	if item.RequestID != "" {
		parsed, err := primitive.ObjectIDFromHex(item.RequestID)
		if err != nil {
			return nil, ErrInvalidID
		}
		requestID = &parsed
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := itemDocument{
		ID:          primitive.NewObjectID(),
		OwnerID:     ownerID,
		Name:        item.Name,
		Description: item.Description,
		Available:   item.IsAvailable(),
		RequestID:   requestID,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id string) (*model.Item, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc itemDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindByIDs loads items for the given ids in one query. Missing ids are
// silently absent from the result.
func (r *ItemRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Item, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, ErrInvalidID
		}
		objectIDs = append(objectIDs, objectID)
	}
	if len(objectIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeItems(ctx, cursor)
}

// FindByRequestIDs loads all items offered in response to any of the given
// requests in one query.
func (r *ItemRepository) FindByRequestIDs(ctx context.Context, requestIDs []string) ([]model.Item, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(requestIDs))
	for _, id := range requestIDs {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, ErrInvalidID
		}
		objectIDs = append(objectIDs, objectID)
	}
	if len(objectIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"request_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeItems(ctx, cursor)
}

// FindByOwner lists the owner's items in stable insertion order.
func (r *ItemRepository) FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]model.Item, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(offset).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeItems(ctx, cursor)
}

func (r *ItemRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return 0, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{"owner_id": owner})
}

// Search matches text against name and description, case-insensitively, and
// returns only available items. The needle is quoted so user input cannot
// smuggle regex metacharacters into the query.
func (r *ItemRepository) Search(ctx context.Context, text string, limit int, offset int64) ([]model.Item, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	filter := bson.M{
		"available": true,
		"$or": []bson.M{
			{"name": pattern},
			{"description": pattern},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(offset).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeItems(ctx, cursor)
}

func (r *ItemRepository) Update(ctx context.Context, id string, update *model.ItemUpdate) (*model.Item, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	set := bson.M{}
	if update.Name != "" {
		set["name"] = update.Name
	}
	if update.Description != "" {
		set["description"] = update.Description
	}
	if update.Available != nil {
		set["available"] = *update.Available
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc itemDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeItems(ctx context.Context, cursor *mongo.Cursor) ([]model.Item, error) {
	var items []model.Item
	for cursor.Next(ctx) {
		var doc itemDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		items = append(items, *doc.toModel())
	}
	return items, cursor.Err()
}
