// Package repository declares the storage contracts the services depend on. The
// memory, mongo and postgres subpackages implement them.
package repository

import (
	"context"
	"errors"
	"time"

	"natours/api/internal/models"
	"natours/api/internal/query"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInvalidID         = errors.New("invalid id")
	ErrResetTokenInvalid = errors.New("password reset token invalid or expired")
)

type UserRepository interface {
	// Create fails with ErrDuplicate when the email is taken.
	Create(ctx context.Context, user models.User) error
	// GetByID applies filters to the lookup, so a record they exclude is ErrNotFound.
	GetByID(ctx context.Context, id string, filters ...query.Filter) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	// FindByResetToken returns the user holding tokenHash with an expiry after now.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error)
	SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearPasswordReset(ctx context.Context, id string) error
	// ConsumePasswordReset stores the new password and clears both reset fields, but
	// only while tokenHash is still outstanding at now. Otherwise ErrResetTokenInvalid.
	ConsumePasswordReset(ctx context.Context, id, tokenHash string, passwordHash []byte, changedAt, now time.Time) error
	SetPassword(ctx context.Context, id string, passwordHash []byte, changedAt time.Time) error
	UpdateProfile(ctx context.Context, user models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, spec query.Spec) ([]models.User, error)
	// PurgeExpiredResets clears reset fields whose expiry is not after now.
	PurgeExpiredResets(ctx context.Context, now time.Time) (int64, error)
}

type TourRepository interface {
	List(ctx context.Context, spec query.Spec) ([]models.Tour, error)
	GetByID(ctx context.Context, id string, filters ...query.Filter) (models.Tour, error)
	// Create fails with ErrDuplicate when the name is taken.
	Create(ctx context.Context, tour models.Tour) error
	// Update writes every field of tour and bumps its version.
	Update(ctx context.Context, tour models.Tour) (models.Tour, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, filters []query.Filter) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int, filters []query.Filter) ([]models.MonthlyPlan, error)
	InsertMany(ctx context.Context, tours []models.Tour) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Store bundles the repositories of one backend with its lifecycle.
type Store struct {
	Users  UserRepository
	Tours  TourRepository
	Driver string
	Ping   func(ctx context.Context) error
	Close  func(ctx context.Context) error
}

// YearBounds returns the half-open UTC interval [start, end) covering year.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
