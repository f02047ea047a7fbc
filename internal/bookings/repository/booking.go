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
	bookingsCollection = "bookings"
	operationTimeout   = 5 * time.Second
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrInvalidID = errors.New("invalid booking id")
)

// bookingDocument denormalizes the item's owner so owner-side listings and
// the decision authorization check never need a join.
type bookingDocument struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	ItemID    primitive.ObjectID  `bson:"item_id"`
	BookerID  primitive.ObjectID  `bson:"booker_id"`
	OwnerID   primitive.ObjectID  `bson:"owner_id"`
	StartTime time.Time           `bson:"start_time"`
	EndTime   time.Time           `bson:"end_time"`
	Status    model.BookingStatus `bson:"status"`
	CreatedAt time.Time           `bson:"created_at"`
}

func (d *bookingDocument) toModel() *model.Booking {
	return &model.Booking{
		ID:        d.ID.Hex(),
		ItemID:    d.ItemID.Hex(),
		BookerID:  d.BookerID.Hex(),
		OwnerID:   d.OwnerID.Hex(),
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

type BookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(client *mongo.Client, dbName string) *BookingRepository {
	return &BookingRepository{
		collection: client.Database(dbName).Collection(bookingsCollection),
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, operationTimeout)
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	itemID, err := primitive.ObjectIDFromHex(booking.ItemID)
	if err != nil {
		return nil, ErrInvalidID
	}
	bookerID, err := primitive.ObjectIDFromHex(booking.BookerID)
	if err != nil {
		return nil, ErrInvalidID
	}
	ownerID, err := primitive.ObjectIDFromHex(booking.OwnerID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := bookingDocument{
		ID:        primitive.NewObjectID(),
		ItemID:    itemID,
		BookerID:  bookerID,
		OwnerID:   ownerID,
		StartTime: booking.StartTime.UTC(),
		EndTime:   booking.EndTime.UTC(),
		Status:    model.StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc bookingDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookingDocument
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// ExistsOverlapping reports whether another approved booking of the item
// intersects [start, end). Two intervals overlap when each starts before the
// other ends.
func (r *BookingRepository) ExistsOverlapping(ctx context.Context, itemID, excludeID string, start, end time.Time) (bool, error) {
	item, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return false, ErrInvalidID
	}
	exclude, err := primitive.ObjectIDFromHex(excludeID)
	if err != nil {
		return false, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"item_id":    item,
		"_id":        bson.M{"$ne": exclude},
		"status":     model.StatusApproved,
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByBooker lists a requester's bookings under the given state filter,
// newest start first.
func (r *BookingRepository) FindByBooker(ctx context.Context, bookerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error) {
	booker, err := primitive.ObjectIDFromHex(bookerID)
	if err != nil {
		return nil, ErrInvalidID
	}
	return r.findFiltered(ctx, bson.M{"booker_id": booker}, state, now, limit, offset)
}

// FindByOwner lists bookings of all items belonging to the owner.
func (r *BookingRepository) FindByOwner(ctx context.Context, ownerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, ErrInvalidID
	}
	return r.findFiltered(ctx, bson.M{"owner_id": owner}, state, now, limit, offset)
}

func (r *BookingRepository) findFiltered(ctx context.Context, filter bson.M, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error) {
	applyStateFilter(filter, state, now)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetSkip(offset).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

// applyStateFilter translates a listing state into filter clauses. CURRENT,
// PAST and FUTURE classify against the clock; WAITING and REJECTED match the
// persisted status; ALL adds nothing.
func applyStateFilter(filter bson.M, state model.BookingState, now time.Time) {
	switch state {
	case model.StateCurrent:
		filter["start_time"] = bson.M{"$lte": now}
		filter["end_time"] = bson.M{"$gt": now}
	case model.StatePast:
		filter["end_time"] = bson.M{"$lt": now}
	case model.StateFuture:
		filter["start_time"] = bson.M{"$gt": now}
	case model.StateWaiting:
		filter["status"] = model.StatusWaiting
	case model.StateRejected:
		filter["status"] = model.StatusRejected
	}
}

// FindLastForItem returns the latest non-rejected booking that started before
// now, or nil when the item has none.
func (r *BookingRepository) FindLastForItem(ctx context.Context, itemID string, now time.Time) (*model.Booking, error) {
	return r.findAdjacent(ctx, itemID, bson.M{"$lt": now}, -1)
}

// FindNextForItem returns the earliest non-rejected booking starting after
// now, or nil when the item has none.
func (r *BookingRepository) FindNextForItem(ctx context.Context, itemID string, now time.Time) (*model.Booking, error) {
	return r.findAdjacent(ctx, itemID, bson.M{"$gt": now}, 1)
}

func (r *BookingRepository) findAdjacent(ctx context.Context, itemID string, startClause bson.M, sortDir int) (*model.Booking, error) {
	item, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"item_id":    item,
		"status":     bson.M{"$ne": model.StatusRejected},
		"start_time": startClause,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "start_time", Value: sortDir}})

	var doc bookingDocument
	err = r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// FindActiveByItemIDs loads all non-rejected bookings of the given items in a
// single query. Used to annotate an owner's item list without a query per
// item.
func (r *BookingRepository) FindActiveByItemIDs(ctx context.Context, itemIDs []string) ([]model.Booking, error) {
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

	filter := bson.M{
		"item_id": bson.M{"$in": objectIDs},
		"status":  bson.M{"$ne": model.StatusRejected},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

// HasCompletedApprovedBooking reports whether the booker held an approved
// booking of the item that ended before the given instant.
func (r *BookingRepository) HasCompletedApprovedBooking(ctx context.Context, bookerID, itemID string, before time.Time) (bool, error) {
	booker, err := primitive.ObjectIDFromHex(bookerID)
	if err != nil {
		return false, ErrInvalidID
	}
	item, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return false, ErrInvalidID
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"booker_id": booker,
		"item_id":   item,
		"status":    model.StatusApproved,
		"end_time":  bson.M{"$lt": before},
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]model.Booking, error) {
	var bookings []model.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		bookings = append(bookings, *doc.toModel())
	}
	return bookings, cursor.Err()
}
