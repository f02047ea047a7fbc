package service

import (
	"context"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"

	"lendly/internal/users/repository"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

const testUserID = "65c000000000000000000001"

type mockUserRepo struct {
	createFn        func(ctx context.Context, user *model.User) (*model.User, error)
	findByIDFn      func(ctx context.Context, id string) (*model.User, error)
	findAllFn       func(ctx context.Context, limit int, offset int64) ([]model.User, error)
	countFn         func(ctx context.Context) (int64, error)
	updateFn        func(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error)
	deleteFn        func(ctx context.Context, id string) error
	existsByEmailFn func(ctx context.Context, email, excludeID string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	return m.createFn(ctx, user)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindAll(ctx context.Context, limit int, offset int64) ([]model.User, error) {
	return m.findAllFn(ctx, limit, offset)
}

func (m *mockUserRepo) Count(ctx context.Context) (int64, error) {
	return m.countFn(ctx)
}

func (m *mockUserRepo) Update(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error) {
	return m.updateFn(ctx, id, update)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return m.existsByEmailFn(ctx, email, excludeID)
}

func newTestService(repo *mockUserRepo) *UserService {
	return &UserService{
		repo:     repo,
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

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		existsByEmailFn: func(_ context.Context, email, excludeID string) (bool, error) {
			if excludeID != "" {
				t.Errorf("create must not exclude any user, got %q", excludeID)
			}
			return true, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), &model.User{Name: "ann", Email: "ann@example.com"})
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Create(context.Background(), &model.User{Name: "ann", Email: "not-an-email"})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestCreateStoresUser(t *testing.T) {
	repo := &mockUserRepo{
		existsByEmailFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
		createFn: func(_ context.Context, user *model.User) (*model.User, error) {
			created := *user
			created.ID = testUserID
			return &created, nil
		},
	}
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), &model.User{Name: "ann", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != testUserID {
		t.Errorf("expected id %s, got %s", testUserID, created.ID)
	}
}

func TestUpdateExcludesSelfFromEmailCheck(t *testing.T) {
	repo := &mockUserRepo{
		existsByEmailFn: func(_ context.Context, _, excludeID string) (bool, error) {
			if excludeID != testUserID {
				t.Errorf("update must exclude the user itself, got %q", excludeID)
			}
			return false, nil
		},
		updateFn: func(_ context.Context, id string, update *model.UserUpdate) (*model.User, error) {
			return &model.User{ID: id, Name: "ann", Email: update.Email}, nil
		},
	}
	svc := newTestService(repo)

	updated, err := svc.Update(context.Background(), testUserID, &model.UserUpdate{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Errorf("expected updated email, got %s", updated.Email)
	}
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	repo := &mockUserRepo{
		existsByEmailFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), testUserID, &model.UserUpdate{Email: "taken@example.com"})
	assertCode(t, err, apperrors.CodeConflict)
}

func TestGetByIDUnknownUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := newTestService(repo)

	_, err := svc.GetByID(context.Background(), testUserID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGetAllCombinesPageAndCount(t *testing.T) {
	repo := &mockUserRepo{
		findAllFn: func(_ context.Context, limit int, offset int64) ([]model.User, error) {
			if limit != 10 || offset != 20 {
				t.Errorf("expected limit 10 offset 20, got %d %d", limit, offset)
			}
			return []model.User{{ID: testUserID, Name: "ann", Email: "ann@example.com"}}, nil
		},
		countFn: func(context.Context) (int64, error) { return 42, nil },
	}
	svc := newTestService(repo)

	users, total, err := svc.GetAll(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || total != 42 {
		t.Errorf("expected 1 user of 42, got %d of %d", len(users), total)
	}
}
