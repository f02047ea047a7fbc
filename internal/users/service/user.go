package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"lendly/internal/users/repository"
	apperrors "lendly/pkg/errors"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

// UserRepository is the persistence surface the service depends on.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id string) error
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
}

type UserService struct {
	repo     UserRepository
	validate *validator.Validate
	log      *logger.Logger
}

func NewUserService(repo UserRepository, log *logger.Logger) *UserService {
	return &UserService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

func (s *UserService) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if err := s.validate.Struct(user); err != nil {
		return nil, apperrors.Validation("invalid user", validationDetails(err))
	}

	taken, err := s.repo.ExistsByEmail(ctx, user.Email, "")
	if err != nil {
		return nil, translateRepoError(err, user.ID)
	}
	if taken {
		return nil, apperrors.Conflict(fmt.Sprintf("user with email %s already exists", user.Email))
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, apperrors.Internal("failed to create user", err)
	}

	s.log.Info("user created", "user_id", created.ID)
	return created, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, id)
	}
	return user, nil
}

// GetAll pages over all users. The count and the page are fetched
// concurrently since neither depends on the other.
func (s *UserService) GetAll(ctx context.Context, limit int, offset int64) ([]model.User, int64, error) {
	var (
		wg       sync.WaitGroup
		users    []model.User
		total    int64
		findErr  error
		countErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		users, findErr = s.repo.FindAll(ctx, limit, offset)
	}()
	go func() {
		defer wg.Done()
		total, countErr = s.repo.Count(ctx)
	}()
	wg.Wait()

	if findErr != nil {
		return nil, 0, apperrors.Internal("failed to list users", findErr)
	}
	if countErr != nil {
		return nil, 0, apperrors.Internal("failed to count users", countErr)
	}
	return users, total, nil
}

func (s *UserService) Update(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error) {
	if err := s.validate.Struct(update); err != nil {
		return nil, apperrors.Validation("invalid user update", validationDetails(err))
	}

	if update.Email != "" {
		taken, err := s.repo.ExistsByEmail(ctx, update.Email, id)
		if err != nil {
			return nil, translateRepoError(err, id)
		}
		if taken {
			return nil, apperrors.Conflict(fmt.Sprintf("user with email %s already exists", update.Email))
		}
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, translateRepoError(err, id)
	}

	s.log.Info("user updated", "user_id", id)
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateRepoError(err, id)
	}
	s.log.Info("user deleted", "user_id", id)
	return nil
}

func translateRepoError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidID):
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
