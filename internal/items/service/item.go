package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	itemrepo "lendly/internal/items/repository"
	userrepo "lendly/internal/users/repository"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

// ItemRepository is the item persistence surface the service depends on.
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) (*model.Item, error)
	FindByID(ctx context.Context, id string) (*model.Item, error)
	FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]model.Item, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	Search(ctx context.Context, text string, limit int, offset int64) ([]model.Item, error)
	Update(ctx context.Context, id string, update *model.ItemUpdate) (*model.Item, error)
	Delete(ctx context.Context, id string) error
}

// CommentRepository stores and loads item comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) (*model.Comment, error)
	FindByItemID(ctx context.Context, itemID string) ([]model.Comment, error)
	FindByItemIDs(ctx context.Context, itemIDs []string) ([]model.Comment, error)
}

// BookingReader exposes the booking lookups the item read model needs.
type BookingReader interface {
	FindLastForItem(ctx context.Context, itemID string, now time.Time) (*model.Booking, error)
	FindNextForItem(ctx context.Context, itemID string, now time.Time) (*model.Booking, error)
	FindActiveByItemIDs(ctx context.Context, itemIDs []string) ([]model.Booking, error)
	HasCompletedApprovedBooking(ctx context.Context, bookerID, itemID string, before time.Time) (bool, error)
}

// UserReader resolves users for existence checks and comment author names.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RequestReader checks whether an item request an item claims to answer is
// actually stored.
type RequestReader interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type ItemService struct {
	items    ItemRepository
	comments CommentRepository
	bookings BookingReader
	users    UserReader
	requests RequestReader
	validate *validator.Validate
	log      *logger.Logger
	nowFn    func() time.Time
}

func NewItemService(items ItemRepository, comments CommentRepository, bookings BookingReader, users UserReader, requests RequestReader, log *logger.Logger) *ItemService {
	return &ItemService{
		items:    items,
		comments: comments,
		bookings: bookings,
		users:    users,
		requests: requests,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		nowFn:    time.Now,
	}
}

func (s *ItemService) Create(ctx context.Context, ownerID string, item *model.Item) (*model.Item, error) {
	item.OwnerID = ownerID
	if err := s.validate.Struct(item); err != nil {
		return nil, apperrors.Validation("invalid item", validationDetails(err))
	}

	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, translateUserError(err, ownerID)
	}

	// A dangling request reference is dropped, not rejected; the item is
	// still worth listing on its own.
	if item.RequestID != "" {
		exists, err := s.requests.Exists(ctx, item.RequestID)
		if err != nil {
			return nil, apperrors.Internal("failed to check item request", err)
		}
		if !exists {
			item.RequestID = ""
		}
	}

	created, err := s.items.Create(ctx, item)
	if err != nil {
		return nil, translateItemError(err, item.ID)
	}

	s.log.Info("item created", "item_id", created.ID, "owner_id", ownerID)
	return created, nil
}

// Update applies a partial update. Only the item's owner may change it.
func (s *ItemService) Update(ctx context.Context, callerID, itemID string, update *model.ItemUpdate) (*model.Item, error) {
	if err := s.validate.Struct(update); err != nil {
		return nil, apperrors.Validation("invalid item update", validationDetails(err))
	}

	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, translateItemError(err, itemID)
	}
	if item.OwnerID != callerID {
		return nil, apperrors.AccessDenied("only the item owner may update it")
	}

	updated, err := s.items.Update(ctx, itemID, update)
	if err != nil {
		return nil, translateItemError(err, itemID)
	}

	s.log.Info("item updated", "item_id", itemID)
	return updated, nil
}

// GetByID returns the item with its comments. The booking slots are attached
// only when the caller owns the item; other viewers never see the item's
// schedule.
func (s *ItemService) GetByID(ctx context.Context, callerID, itemID string) (*model.ItemView, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, translateItemError(err, itemID)
	}

	comments, err := s.comments.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, apperrors.Internal("failed to load comments", err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	view := &model.ItemView{
		Item:     *item,
		Comments: comments,
	}

	if item.OwnerID == callerID {
		now := s.nowFn()
		last, err := s.bookings.FindLastForItem(ctx, itemID, now)
		if err != nil {
			return nil, apperrors.Internal("failed to load bookings", err)
		}
		next, err := s.bookings.FindNextForItem(ctx, itemID, now)
		if err != nil {
			return nil, apperrors.Internal("failed to load bookings", err)
		}
		view.LastBooking = model.SlotOf(last)
		view.NextBooking = model.SlotOf(next)
	}

	return view, nil
}

// ListByOwner pages over the owner's items with booking slots and comments
// attached. All items on the page are annotated from two bulk queries instead
// of a pair of queries per item.
func (s *ItemService) ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]model.ItemView, int64, error) {
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, 0, translateUserError(err, ownerID)
	}

	var (
		wg       sync.WaitGroup
		items    []model.Item
		total    int64
		findErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		items, findErr = s.items.FindByOwner(ctx, ownerID, limit, offset)
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.items.CountByOwner(ctx, ownerID)
	}()
	wg.Wait()

	if findErr != nil {
		return nil, 0, translateItemError(findErr, ownerID)
	}
	if countErr != nil {
		return nil, 0, translateItemError(countErr, ownerID)
	}
	if len(items) == 0 {
		return []model.ItemView{}, total, nil
	}

	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}

	bookings, err := s.bookings.FindActiveByItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to load bookings", err)
	}
	comments, err := s.comments.FindByItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to load comments", err)
	}

	return annotate(items, bookings, comments, s.nowFn()), total, nil
}

// Search finds available items matching the text. Blank input short-circuits
// to an empty result rather than matching everything.
func (s *ItemService) Search(ctx context.Context, text string, limit int, offset int64) ([]model.Item, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Item{}, nil
	}

	items, err := s.items.Search(ctx, text, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("item search failed", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

func (s *ItemService) Delete(ctx context.Context, callerID, itemID string) error {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return translateItemError(err, itemID)
	}
	if item.OwnerID != callerID {
		return apperrors.AccessDenied("only the item owner may delete it")
	}

	if err := s.items.Delete(ctx, itemID); err != nil {
		return translateItemError(err, itemID)
	}

	s.log.Info("item deleted", "item_id", itemID)
	return nil
}

// AddComment posts a comment on behalf of authorID. Only users who actually
// held the item, meaning an approved booking that already ended, may comment.
func (s *ItemService) AddComment(ctx context.Context, authorID, itemID string, comment *model.Comment) (*model.Comment, error) {
	comment.ItemID = itemID
	comment.AuthorID = authorID
	if err := s.validate.Struct(comment); err != nil {
		return nil, apperrors.Validation("invalid comment", validationDetails(err))
	}

	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		return nil, translateItemError(err, itemID)
	}

	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, translateUserError(err, authorID)
	}

	eligible, err := s.bookings.HasCompletedApprovedBooking(ctx, authorID, itemID, s.nowFn())
	if err != nil {
		return nil, apperrors.Internal("failed to check booking history", err)
	}
	if !eligible {
		return nil, apperrors.NotAvailable("commenting requires a completed booking of the item")
	}

	comment.AuthorName = author.Name

	created, err := s.comments.Create(ctx, comment)
	if err != nil {
		return nil, apperrors.Internal("failed to create comment", err)
	}

	s.log.Info("comment created", "comment_id", created.ID, "item_id", itemID)
	return created, nil
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

func validationDetails(err error) map[string]any {
	details := make(map[string]any)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			details[fieldErr.Field()] = fmt.Sprintf("failed on %s", fieldErr.Tag())
		}
	}
	return details
}
