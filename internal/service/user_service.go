package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"natours/api/internal/apperr"
	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

const msgNoUser = "No user found with that ID"

type UserService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

func NewUserService(users repository.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// List runs a query over active users and returns each narrowed to the projection.
func (s *UserService) List(ctx context.Context, params url.Values) ([]map[string]any, error) {
	spec, err := query.Build(models.UserSchema, params)
	if err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, spec.With(models.ActiveUsers()))
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	views := make([]map[string]any, 0, len(users))
	for _, u := range users {
		views = append(views, models.UserView(u, spec.Projection))
	}
	return views, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id, models.ActiveUsers())
	if err != nil {
		return models.User{}, storeError(err, msgNoUser)
	}
	return user, nil
}

// UpdateMeInput is what a user may change about themselves. The password fields are
// only decoded so their presence can be rejected.
type UpdateMeInput struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Photo           *string `json:"photo"`
	Password        *string `json:"password"`
	ConfirmPassword *string `json:"confirmPassword"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

func (s *UserService) UpdateMe(ctx context.Context, current models.User, input UpdateMeInput) (models.User, error) {
	if input.Password != nil || input.ConfirmPassword != nil || input.PasswordConfirm != nil {
		return models.User{}, apperr.Validation("This route is not for password updates. Please use /updatePassword.")
	}
	return s.update(ctx, current.ID, models.UserPatch{Name: input.Name, Email: input.Email, Photo: input.Photo})
}

// DeleteMe deactivates the account; the record is kept.
func (s *UserService) DeleteMe(ctx context.Context, current models.User) error {
	if err := s.users.SetActive(ctx, current.ID, false); err != nil {
		return storeError(err, msgNoUser)
	}
	s.log.Info().Str("user_id", current.ID).Msg("user deactivated")
	return nil
}

// Update is the administrative update; it may also change the role.
func (s *UserService) Update(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	return s.update(ctx, id, patch)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err, msgNoUser)
	}
	return nil
}

type profile struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Email string          `json:"email" validate:"required,email"`
	Role  models.UserRole `json:"role" validate:"required,oneof=user guide lead-guide admin"`
}

func (s *UserService) update(ctx context.Context, id string, patch models.UserPatch) (models.User, error) {
	user, err := s.users.GetByID(ctx, id, models.ActiveUsers())
	if err != nil {
		return models.User{}, storeError(err, msgNoUser)
	}

	patch.Apply(&user)
	if err := models.Validate(profile{Name: user.Name, Email: user.Email, Role: user.Role}, "user"); err != nil {
		return models.User{}, err
	}
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, apperr.Conflict("Email is already registered. Please use another value!")
		}
		return models.User{}, storeError(err, msgNoUser)
	}
	return user, nil
}
