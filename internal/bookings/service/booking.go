package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingrepo "lendly/internal/bookings/repository"
	"lendly/internal/bookings/validator"
	itemrepo "lendly/internal/items/repository"
	userrepo "lendly/internal/users/repository"
	dbmongo "lendly/pkg/db/mongo"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

// BookingRepository is the booking persistence surface the service depends on.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) (*model.Booking, error)
	ExistsOverlapping(ctx context.Context, itemID, excludeID string, start, end time.Time) (bool, error)
	FindByBooker(ctx context.Context, bookerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error)
	FindByOwner(ctx context.Context, ownerID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error)
}

// DecisionLocker serializes owner decisions per item.
type DecisionLocker interface {
	Acquire(ctx context.Context, itemID string) error
	Release(ctx context.Context, itemID string) error
}

// ItemReader resolves items for admission checks and listing enrichment.
type ItemReader interface {
	FindByID(ctx context.Context, id string) (*model.Item, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Item, error)
}

// UserReader resolves users for admission checks and listing enrichment.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

type BookingService struct {
	repo      BookingRepository
	locks     DecisionLocker
	items     ItemReader
	users     UserReader
	txManager dbmongo.TransactionManager
	validator *validator.BookingValidator
	events    EventPublisher
	log       *logger.Logger
	nowFn     func() time.Time
}

func NewBookingService(
	repo BookingRepository,
	locks DecisionLocker,
	items ItemReader,
	users UserReader,
	txManager dbmongo.TransactionManager,
	events EventPublisher,
	log *logger.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		locks:     locks,
		items:     items,
		users:     users,
		txManager: txManager,
		validator: validator.NewBookingValidator(),
		events:    events,
		log:       log,
		nowFn:     time.Now,
	}
}

// Create admits a booking request. Checks run in a fixed order: the interval
// first, then the item, then the requester, ownership, and finally
// availability. Every admitted booking starts out WAITING.
func (s *BookingService) Create(ctx context.Context, bookerID string, booking *model.Booking) (*model.Booking, error) {
	booking.BookerID = bookerID

	// The interval is judged before anything else, including the structural
	// check, so a request that is broken in several ways still reports its
	// times first.
	now := s.nowFn()
	if !booking.EndTime.After(booking.StartTime) {
		return nil, apperrors.IncorrectTime("end time must be after start time")
	}
	if booking.StartTime.Before(now) {
		return nil, apperrors.IncorrectTime("start time must not be in the past")
	}

	if err := s.validator.ValidateCreate(booking); err != nil {
		return nil, err
	}

	item, err := s.items.FindByID(ctx, booking.ItemID)
	if err != nil {
		return nil, translateItemError(err, booking.ItemID)
	}

	if _, err := s.users.FindByID(ctx, bookerID); err != nil {
		return nil, translateUserError(err, bookerID)
	}

	if item.OwnerID == bookerID {
		return nil, apperrors.AccessDenied("owners cannot book their own items")
	}

	if !item.IsAvailable() {
		return nil, apperrors.NotAvailable("item is not available for booking")
	}

	booking.OwnerID = item.OwnerID

	created, err := s.repo.Create(ctx, booking)
	if err != nil {
		return nil, translateBookingError(err, booking.ID)
	}

	s.log.Info("booking created",
		"booking_id", created.ID,
		"item_id", created.ItemID,
		"booker_id", created.BookerID,
	)
	s.publishEvent(ctx, EventBookingCreated, created)

	return created, nil
}

// Decide applies the owner's approval or rejection. The read-validate-write
// window runs under a per-item advisory lock and a transaction, so two
// concurrent approvals of overlapping requests cannot both pass the conflict
// scan.
func (s *BookingService) Decide(ctx context.Context, callerID, bookingID string, approve bool) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err, bookingID)
	}

	if err := s.locks.Acquire(ctx, booking.ItemID); err != nil {
		if errors.Is(err, bookingrepo.ErrLocked) {
			return nil, apperrors.Conflict("another decision for this item is in progress")
		}
		return nil, apperrors.Internal("failed to acquire decision lock", err)
	}
	defer func() {
		if err := s.locks.Release(ctx, booking.ItemID); err != nil {
			s.log.Error("failed to release decision lock", "item_id", booking.ItemID, "error", err)
		}
	}()

	var decided *model.Booking
	err = s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.repo.FindByID(sessCtx, bookingID)
		if err != nil {
			return translateBookingError(err, bookingID)
		}

		if current.OwnerID != callerID {
			return apperrors.AccessDenied("only the item owner may decide on a booking")
		}
		if current.Status == model.StatusApproved {
			return apperrors.Duplicate("booking is already approved")
		}

		status := model.StatusRejected
		if approve {
			conflict, err := s.repo.ExistsOverlapping(sessCtx, current.ItemID, current.ID, current.StartTime, current.EndTime)
			if err != nil {
				return apperrors.Internal("conflict scan failed", err)
			}
			if conflict {
				return apperrors.NotAvailable("an approved booking already occupies this interval")
			}
			status = model.StatusApproved
		}

		decided, err = s.repo.UpdateStatus(sessCtx, bookingID, status)
		if err != nil {
			return translateBookingError(err, bookingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking decided",
		"booking_id", decided.ID,
		"status", decided.Status,
		"owner_id", callerID,
	)
	if decided.Status == model.StatusApproved {
		s.publishEvent(ctx, EventBookingApproved, decided)
	} else {
		s.publishEvent(ctx, EventBookingRejected, decided)
	}

	return decided, nil
}

// GetByID returns a booking to its booker or the item's owner. Anyone else
// is denied, including users who merely know the id.
func (s *BookingService) GetByID(ctx context.Context, callerID, bookingID string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err, bookingID)
	}

	if booking.BookerID != callerID && booking.OwnerID != callerID {
		return nil, apperrors.AccessDenied("only the booker or the item owner may view this booking")
	}

	return s.enrichOne(ctx, booking), nil
}

// ListForBooker pages over the caller's own booking requests under the given
// state filter, newest start first.
func (s *BookingService) ListForBooker(ctx context.Context, bookerID, rawState string, limit int, offset int64) ([]model.Booking, error) {
	return s.list(ctx, bookerID, rawState, limit, offset, s.repo.FindByBooker)
}

// ListForOwner pages over bookings of all the caller's items.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID, rawState string, limit int, offset int64) ([]model.Booking, error) {
	return s.list(ctx, ownerID, rawState, limit, offset, s.repo.FindByOwner)
}

type listFn func(ctx context.Context, userID string, state model.BookingState, now time.Time, limit int, offset int64) ([]model.Booking, error)

func (s *BookingService) list(ctx context.Context, userID, rawState string, limit int, offset int64, find listFn) ([]model.Booking, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, translateUserError(err, userID)
	}

	state, ok := model.ParseBookingState(rawState)
	if !ok {
		return nil, apperrors.UnsupportedStatus(rawState)
	}

	bookings, err := find(ctx, userID, state, s.nowFn(), limit, offset)
	if err != nil {
		return nil, translateBookingError(err, userID)
	}
	if bookings == nil {
		return []model.Booking{}, nil
	}

	s.enrich(ctx, bookings)
	return bookings, nil
}

// enrich attaches items and bookers to a page of bookings using one batch
// query per collection. Lookups here are cosmetic; failures degrade the
// response instead of failing it.
func (s *BookingService) enrich(ctx context.Context, bookings []model.Booking) {
	itemIDSet := make(map[string]struct{})
	userIDSet := make(map[string]struct{})
	for i := range bookings {
		itemIDSet[bookings[i].ItemID] = struct{}{}
		userIDSet[bookings[i].BookerID] = struct{}{}
	}

	itemIDs := make([]string, 0, len(itemIDSet))
	for id := range itemIDSet {
		itemIDs = append(itemIDs, id)
	}
	userIDs := make([]string, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}

	items, err := s.items.FindByIDs(ctx, itemIDs)
	if err != nil {
		s.log.Warn("failed to enrich bookings with items", "error", err)
		return
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		s.log.Warn("failed to enrich bookings with users", "error", err)
		return
	}

	itemsByID := make(map[string]*model.Item, len(items))
	for i := range items {
		itemsByID[items[i].ID] = &items[i]
	}
	usersByID := make(map[string]*model.User, len(users))
	for i := range users {
		usersByID[users[i].ID] = &users[i]
	}

	for i := range bookings {
		bookings[i].Item = itemsByID[bookings[i].ItemID]
		bookings[i].Booker = usersByID[bookings[i].BookerID]
	}
}

func (s *BookingService) enrichOne(ctx context.Context, booking *model.Booking) *model.Booking {
	if item, err := s.items.FindByID(ctx, booking.ItemID); err == nil {
		booking.Item = item
	}
	if booker, err := s.users.FindByID(ctx, booking.BookerID); err == nil {
		booking.Booker = booker
	}
	return booking
}

func translateBookingError(err error, id string) error {
	switch {
	case errors.Is(err, bookingrepo.ErrNotFound), errors.Is(err, bookingrepo.ErrInvalidID):
		return apperrors.NotFound("booking", id)
	default:
		return apperrors.Internal("booking storage failure", err)
	}
}

func translateItemError(err error, id string) error {
	switch {
	case errors.Is(err, itemrepo.ErrNotFound), errors.Is(err, itemrepo.ErrInvalidID):
		return apperrors.NotFound("item", id)
	default:
		return apperrors.Internal("item storage failure", err)
	}
}

func translateUserError(err error, id string) error {
	switch {
	case errors.Is(err, userrepo.ErrNotFound), errors.Is(err, userrepo.ErrInvalidID):
		return apperrors.NotFound("user", id)
	default:
		return apperrors.Internal("user storage failure", err)
	}
}
