package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"natours/api/internal/models"
	"natours/api/internal/query"
	"natours/api/internal/repository"
)

const userColumns = `id, name, email, photo, role, password_hash, active, password_changed_at,
	password_reset_token, password_reset_expires, created_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, photo, role, password_hash, active, password_changed_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		user.Active,
		user.PasswordChangedAt,
		user.CreatedAt,
	)
	return mapError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string, filters ...query.Filter) (models.User, error) {
	if err := checkID(id); err != nil {
		return models.User{}, err
	}

	b := sqlBuilder{args: []any{id}}
	where, err := b.where(filters)
	if err != nil {
		return models.User{}, err
	}
	return r.scanOne(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1 AND "+where, b.args...))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error) {
	return r.scanOne(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE password_reset_token = $1 AND password_reset_expires > $2",
		tokenHash, now,
	))
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users SET password_reset_token = $2, password_reset_expires = $3 WHERE id = $1
	`
	return r.execOne(ctx, query, id, tokenHash, expiresAt)
}

func (r *UserRepository) ClearPasswordReset(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *UserRepository) ConsumePasswordReset(ctx context.Context, id, tokenHash string, passwordHash []byte, changedAt, now time.Time) error {
	const query = `
		UPDATE users
		SET password_hash = $3,
		    password_changed_at = $4,
		    password_reset_token = NULL,
		    password_reset_expires = NULL
		WHERE id = $1 AND password_reset_token = $2 AND password_reset_expires > $5
	`
	cmd, err := r.db.Exec(ctx, query, id, tokenHash, passwordHash, changedAt, now)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrResetTokenInvalid
	}
	return nil
}

func (r *UserRepository) SetPassword(ctx context.Context, id string, passwordHash []byte, changedAt time.Time) error {
	const query = `
		UPDATE users SET password_hash = $2, password_changed_at = $3 WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash, changedAt)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users SET name = $2, email = $3, photo = $4, role = $5 WHERE id = $1
	`
	return r.execOne(ctx, query, user.ID, user.Name, user.Email, user.Photo, string(user.Role))
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `
		UPDATE users SET active = $2 WHERE id = $1
	`
	return r.execOne(ctx, query, id, active)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) List(ctx context.Context, spec query.Spec) ([]models.User, error) {
	var b sqlBuilder
	where, err := b.where(spec.Filters)
	if err != nil {
		return nil, err
	}
	sql := "SELECT " + userColumns + " FROM users WHERE " + where + orderBy(spec.Sort) + b.paginate(spec)

	rows, err := r.db.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) PurgeExpiredResets(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL
		WHERE password_reset_expires IS NOT NULL AND password_reset_expires <= $1
	`
	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *UserRepository) execOne(ctx context.Context, sql string, args ...any) error {
	if id, ok := args[0].(string); ok {
		if err := checkID(id); err != nil {
			return err
		}
	}
	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row pgx.Row) (models.User, error) {
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, mapError(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user      models.User
		role      string
		resetHash *string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Photo,
		&role,
		&user.PasswordHash,
		&user.Active,
		&user.PasswordChangedAt,
		&resetHash,
		&user.PasswordResetExpiresAt,
		&user.CreatedAt,
	); err != nil {
		return models.User{}, err
	}
	user.Role = models.UserRole(role)
	if resetHash != nil {
		user.PasswordResetTokenHash = *resetHash
	}
	return user, nil
}
