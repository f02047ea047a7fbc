package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lendly/pkg/model"
)

const commentsCollection = "comments"

type commentDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ItemID     primitive.ObjectID `bson:"item_id"`
	AuthorID   primitive.ObjectID `bson:"author_id"`
	AuthorName string             `bson:"author_name"`
	Text       string             `bson:"text"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d *commentDocument) toModel() *model.Comment {
	return &model.Comment{
		ID:         d.ID.Hex(),
		ItemID:     d.ItemID.Hex(),
		AuthorID:   d.AuthorID.Hex(),
		AuthorName: d.AuthorName,
		Text:       d.Text,
		CreatedAt:  d.CreatedAt,
	}
}

type CommentRepository struct {
	collection *mongo.Collection
}

func NewCommentRepository(client *mongo.Client, dbName string) *CommentRepository {
	return &CommentRepository{
		collection: client.Database(dbName).Collection(commentsCollection),
	}
}

func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	itemID, err := primitive.ObjectIDFromHex(comment.ItemID)
	if err != nil {
		return nil, ErrInvalidID
	}
	authorID, err := primitive.ObjectIDFromHex(comment.AuthorID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := commentDocument{
		ID:         primitive.NewObjectID(),
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: comment.AuthorName,
		Text:       comment.Text,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *CommentRepository) FindByItemID(ctx context.Context, itemID string) ([]model.Comment, error) {
	return r.FindByItemIDs(ctx, []string{itemID})
}

// FindByItemIDs loads comments for all given items in one query, newest
// first.
func (r *CommentRepository) FindByItemIDs(ctx context.Context, itemIDs []string) ([]model.Comment, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(itemIDs))
	for _, id := range itemIDs {
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

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"item_id": bson.M{"$in": objectIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []model.Comment
	for cursor.Next(ctx) {
		var doc commentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		comments = append(comments, *doc.toModel())
	}
	return comments, cursor.Err()
}
