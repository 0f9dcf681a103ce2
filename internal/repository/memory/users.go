package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.byEmail(user.Email); ok {
		return repository.ErrDuplicate
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string, filters ...query.Filter) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok || !matches(userDoc(user), filters) {
		return models.User{}, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail(email)
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.PasswordResetTokenHash == tokenHash && user.ResetPending(now) {
			return cloneUser(user), nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r *UserRepository) SetPasswordReset(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return r.mutate(id, func(u *models.User) error {
		exp := expiresAt.UTC()
		u.PasswordResetTokenHash = tokenHash
		u.PasswordResetExpiresAt = &exp
		return nil
	})
}

func (r *UserRepository) ClearPasswordReset(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) error {
		clearReset(u)
		return nil
	})
}

func (r *UserRepository) ConsumePasswordReset(_ context.Context, id, tokenHash string, passwordHash []byte, changedAt, now time.Time) error {
	err := r.mutate(id, func(u *models.User) error {
		if u.PasswordResetTokenHash != tokenHash || !u.ResetPending(now) {
			return repository.ErrResetTokenInvalid
		}
		setPassword(u, passwordHash, changedAt)
		clearReset(u)
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrResetTokenInvalid
	}
	return err
}

func (r *UserRepository) SetPassword(_ context.Context, id string, passwordHash []byte, changedAt time.Time) error {
	return r.mutate(id, func(u *models.User) error {
		setPassword(u, passwordHash, changedAt)
		return nil
	})
}

func (r *UserRepository) UpdateProfile(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if other, ok := r.byEmail(user.Email); ok && other.ID != user.ID {
		return repository.ErrDuplicate
	}
	current.Name = user.Name
	current.Email = user.Email
	current.Photo = user.Photo
	current.Role = user.Role
	r.users[user.ID] = current
	return nil
}

func (r *UserRepository) SetActive(_ context.Context, id string, active bool) error {
	return r.mutate(id, func(u *models.User) error {
		u.Active = active
		return nil
	})
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) List(_ context.Context, spec query.Spec) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]map[string]any, 0, len(r.users))
	for _, user := range r.users {
		doc := userDoc(user)
		if matches(doc, spec.Filters) {
			docs = append(docs, doc)
		}
	}
	sortDocs(docs, spec.Sort)

	start, end := page(len(docs), spec)
	out := make([]models.User, 0, end-start)
	for _, doc := range docs[start:end] {
		out = append(out, cloneUser(r.users[doc["id"].(string)]))
	}
	return out, nil
}

func (r *UserRepository) PurgeExpiredResets(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, user := range r.users {
		if user.PasswordResetExpiresAt != nil && !user.PasswordResetExpiresAt.After(now) {
			clearReset(&user)
			r.users[id] = user
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) mutate(id string, fn func(*models.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&user); err != nil {
		return err
	}
	r.users[id] = user
	return nil
}

// byEmail expects the caller to hold the lock.
func (r *UserRepository) byEmail(email string) (models.User, bool) {
	for _, user := range r.users {
		if user.Email == email {
			return user, true
		}
	}
	return models.User{}, false
}

func userDoc(u models.User) map[string]any {
	doc := u.Document()
	doc["active"] = u.Active
	return doc
}

func setPassword(u *models.User, hash []byte, changedAt time.Time) {
	changed := changedAt.UTC()
	u.PasswordHash = append([]byte(nil), hash...)
	u.PasswordChangedAt = &changed
}

func clearReset(u *models.User) {
	u.PasswordResetTokenHash = ""
	u.PasswordResetExpiresAt = nil
}

func cloneUser(u models.User) models.User {
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		u.PasswordChangedAt = &t
	}
	if u.PasswordResetExpiresAt != nil {
		t := *u.PasswordResetExpiresAt
		u.PasswordResetExpiresAt = &t
	}
	return u
}
