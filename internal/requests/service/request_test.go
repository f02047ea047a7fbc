package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	requestrepo "lendly/internal/requests/repository"
	userrepo "lendly/internal/users/repository"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

const (
	testRequesterID = "65d000000000000000000001"
	testRequestID   = "65d000000000000000000002"
	testOtherUserID = "65d000000000000000000003"
)

type mockRequestRepo struct {
	createFn      func(ctx context.Context, request *model.ItemRequest) (*model.ItemRequest, error)
	findByIDFn    func(ctx context.Context, id string) (*model.ItemRequest, error)
	byRequesterFn func(ctx context.Context, requesterID string) ([]model.ItemRequest, error)
	othersFn      func(ctx context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequest, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, request *model.ItemRequest) (*model.ItemRequest, error) {
	return m.createFn(ctx, request)
}

func (m *mockRequestRepo) FindByID(ctx context.Context, id string) (*model.ItemRequest, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockRequestRepo) FindByRequester(ctx context.Context, requesterID string) ([]model.ItemRequest, error) {
	return m.byRequesterFn(ctx, requesterID)
}

func (m *mockRequestRepo) FindOthers(ctx context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequest, error) {
	return m.othersFn(ctx, requesterID, limit, offset)
}

type mockItemReader struct {
	byRequestIDsFn func(ctx context.Context, requestIDs []string) ([]model.Item, error)
}

func (m *mockItemReader) FindByRequestIDs(ctx context.Context, requestIDs []string) ([]model.Item, error) {
	if m.byRequestIDsFn == nil {
		return nil, nil
	}
	return m.byRequestIDsFn(ctx, requestIDs)
}

type mockUserReader struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

func knownUsers(context.Context, string) (*model.User, error) {
	return &model.User{ID: testRequesterID, Name: "requester"}, nil
}

func newTestService(repo *mockRequestRepo, items *mockItemReader, users *mockUserReader) *RequestService {
	return &RequestService{
		repo:     repo,
		items:    items,
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Output: io.Discard}),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func TestCreateRejectsBlankDescription(t *testing.T) {
	svc := newTestService(&mockRequestRepo{}, &mockItemReader{}, &mockUserReader{})

	_, err := svc.Create(context.Background(), testRequesterID, &model.ItemRequest{})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestCreateRejectsUnknownRequester(t *testing.T) {
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return nil, userrepo.ErrNotFound
		},
	}
	svc := newTestService(&mockRequestRepo{}, &mockItemReader{}, users)

	_, err := svc.Create(context.Background(), testRequesterID, &model.ItemRequest{Description: "need a ladder"})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreateStampsRequester(t *testing.T) {
	repo := &mockRequestRepo{
		createFn: func(_ context.Context, request *model.ItemRequest) (*model.ItemRequest, error) {
			created := *request
			created.ID = testRequestID
			created.CreatedAt = time.Now().UTC()
			return &created, nil
		},
	}
	svc := newTestService(repo, &mockItemReader{}, &mockUserReader{findByIDFn: knownUsers})

	created, err := svc.Create(context.Background(), testRequesterID, &model.ItemRequest{Description: "need a ladder"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.RequesterID != testRequesterID {
		t.Errorf("expected requester %s stamped, got %s", testRequesterID, created.RequesterID)
	}
}

func TestListOwnAttachesRespondingItems(t *testing.T) {
	repo := &mockRequestRepo{
		byRequesterFn: func(context.Context, string) ([]model.ItemRequest, error) {
			return []model.ItemRequest{
				{ID: testRequestID, RequesterID: testRequesterID, Description: "need a ladder"},
			}, nil
		},
	}
	items := &mockItemReader{
		byRequestIDsFn: func(_ context.Context, requestIDs []string) ([]model.Item, error) {
			if len(requestIDs) != 1 || requestIDs[0] != testRequestID {
				t.Errorf("expected bulk query for [%s], got %v", testRequestID, requestIDs)
			}
			return []model.Item{
				{ID: "65d0000000000000000000a1", RequestID: testRequestID, Name: "ladder"},
				{ID: "65d0000000000000000000a2", RequestID: "65d0000000000000000000ff", Name: "unrelated"},
			}, nil
		},
	}
	svc := newTestService(repo, items, &mockUserReader{findByIDFn: knownUsers})

	views, err := svc.ListOwn(context.Background(), testRequesterID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one view, got %d", len(views))
	}
	if len(views[0].Items) != 1 || views[0].Items[0].Name != "ladder" {
		t.Errorf("expected only the responding item attached, got %+v", views[0].Items)
	}
}

func TestListOwnWithoutRequests(t *testing.T) {
	repo := &mockRequestRepo{
		byRequesterFn: func(context.Context, string) ([]model.ItemRequest, error) {
			return nil, nil
		},
	}
	svc := newTestService(repo, &mockItemReader{}, &mockUserReader{findByIDFn: knownUsers})

	views, err := svc.ListOwn(context.Background(), testRequesterID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if views == nil || len(views) != 0 {
		t.Errorf("expected empty slice, got %v", views)
	}
}

func TestListOthersPassesPaging(t *testing.T) {
	repo := &mockRequestRepo{
		othersFn: func(_ context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequest, error) {
			if requesterID != testOtherUserID {
				t.Errorf("expected caller %s excluded, got %s", testOtherUserID, requesterID)
			}
			if limit != 10 || offset != 20 {
				t.Errorf("expected limit 10 offset 20, got %d %d", limit, offset)
			}
			return []model.ItemRequest{{ID: testRequestID, RequesterID: testRequesterID}}, nil
		},
	}
	svc := newTestService(repo, &mockItemReader{}, &mockUserReader{findByIDFn: knownUsers})

	views, err := svc.ListOthers(context.Background(), testOtherUserID, 10, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one view, got %d", len(views))
	}
	if views[0].Items == nil {
		t.Error("responding items must be an empty slice, not nil")
	}
}

func TestGetByIDUnknownRequest(t *testing.T) {
	repo := &mockRequestRepo{
		findByIDFn: func(context.Context, string) (*model.ItemRequest, error) {
			return nil, requestrepo.ErrNotFound
		},
	}
	svc := newTestService(repo, &mockItemReader{}, &mockUserReader{findByIDFn: knownUsers})

	_, err := svc.GetByID(context.Background(), testRequesterID, testRequestID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGetByIDUnknownCaller(t *testing.T) {
	users := &mockUserReader{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return nil, userrepo.ErrNotFound
		},
	}
	svc := newTestService(&mockRequestRepo{}, &mockItemReader{}, users)

	_, err := svc.GetByID(context.Background(), testOtherUserID, testRequestID)
	assertCode(t, err, apperrors.CodeNotFound)
}
