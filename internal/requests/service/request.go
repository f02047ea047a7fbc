package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	requestrepo "lendly/internal/requests/repository"
	userrepo "lendly/internal/users/repository"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

// RequestRepository is the persistence surface the service depends on.
type RequestRepository interface {
	Create(ctx context.Context, request *model.ItemRequest) (*model.ItemRequest, error)
	FindByID(ctx context.Context, id string) (*model.ItemRequest, error)
	FindByRequester(ctx context.Context, requesterID string) ([]model.ItemRequest, error)
	FindOthers(ctx context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequest, error)
}

// ItemReader resolves the items offered in response to requests.
type ItemReader interface {
	FindByRequestIDs(ctx context.Context, requestIDs []string) ([]model.Item, error)
}

// UserReader resolves users for existence checks.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type RequestService struct {
	repo     RequestRepository
	items    ItemReader
	users    UserReader
	validate *validator.Validate
	log      *logger.Logger
}

func NewRequestService(repo RequestRepository, items ItemReader, users UserReader, log *logger.Logger) *RequestService {
	return &RequestService{
		repo:     repo,
		items:    items,
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

func (s *RequestService) Create(ctx context.Context, requesterID string, request *model.ItemRequest) (*model.ItemRequest, error) {
	request.RequesterID = requesterID
	if err := s.validate.Struct(request); err != nil {
		return nil, apperrors.Validation("invalid item request", validationDetails(err))
	}

	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return nil, translateUserError(err, requesterID)
	}

	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, translateRequestError(err, request.ID)
	}

	s.log.Info("item request created", "request_id", created.ID, "requester_id", requesterID)
	return created, nil
}

// ListOwn returns the caller's requests, newest first, each with the items
// offered in response.
func (s *RequestService) ListOwn(ctx context.Context, requesterID string) ([]model.ItemRequestView, error) {
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return nil, translateUserError(err, requesterID)
	}

	requests, err := s.repo.FindByRequester(ctx, requesterID)
	if err != nil {
		return nil, translateRequestError(err, requesterID)
	}

	return s.attachItems(ctx, requests)
}

// ListOthers pages over everyone else's requests, newest first, so the caller
// can find asks to respond to.
func (s *RequestService) ListOthers(ctx context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequestView, error) {
	if _, err := s.users.FindByID(ctx, requesterID); err != nil {
		return nil, translateUserError(err, requesterID)
	}

	requests, err := s.repo.FindOthers(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, translateRequestError(err, requesterID)
	}

	return s.attachItems(ctx, requests)
}

func (s *RequestService) GetByID(ctx context.Context, callerID, requestID string) (*model.ItemRequestView, error) {
	if _, err := s.users.FindByID(ctx, callerID); err != nil {
		return nil, translateUserError(err, callerID)
	}

	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, translateRequestError(err, requestID)
	}

	views, err := s.attachItems(ctx, []model.ItemRequest{*request})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// attachItems resolves the responding items for a set of requests with one
// bulk query and groups them per request.
func (s *RequestService) attachItems(ctx context.Context, requests []model.ItemRequest) ([]model.ItemRequestView, error) {
	if len(requests) == 0 {
		return []model.ItemRequestView{}, nil
	}

	requestIDs := make([]string, 0, len(requests))
	for _, request := range requests {
		requestIDs = append(requestIDs, request.ID)
	}

	items, err := s.items.FindByRequestIDs(ctx, requestIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load responding items", err)
	}

	itemsByRequest := make(map[string][]model.Item)
	for _, item := range items {
		itemsByRequest[item.RequestID] = append(itemsByRequest[item.RequestID], item)
	}

	views := make([]model.ItemRequestView, 0, len(requests))
	for _, request := range requests {
		responding := itemsByRequest[request.ID]
		if responding == nil {
			responding = []model.Item{}
		}
		views = append(views, model.ItemRequestView{
			ItemRequest: request,
			Items:       responding,
		})
	}
	return views, nil
}

func translateRequestError(err error, id string) error {
	switch {
	case errors.Is(err, requestrepo.ErrNotFound), errors.Is(err, requestrepo.ErrInvalidID):
		return apperrors.NotFound("item request", id)
	default:
		return apperrors.Internal("item request storage failure", err)
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
