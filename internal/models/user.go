package models

import (
	"strings"
	"time"

	"natours/api/internal/query"
)

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleGuide     UserRole = "guide"
	UserRoleLeadGuide UserRole = "lead-guide"
	UserRoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleGuide, UserRoleLeadGuide, UserRoleAdmin:
		return true
	}
	return false
}

// User is the persisted identity. Everything tagged json:"-" is internal bookkeeping
// and never leaves the service; use PublicUser for responses.
type User struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	Photo                  string     `json:"photo,omitempty"`
	Role                   UserRole   `json:"role"`
	PasswordHash           []byte     `json:"-"`
	Active                 bool       `json:"-"`
	PasswordChangedAt      *time.Time `json:"-"`
	PasswordResetTokenHash string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"-"`
}

// ResetPending reports whether a password reset token is outstanding at now.
func (u User) ResetPending(now time.Time) bool {
	return u.PasswordResetTokenHash != "" && u.PasswordResetExpiresAt != nil && u.PasswordResetExpiresAt.After(now)
}

// ChangedPasswordAfter reports whether the password changed after a token issued at iat.
// JWT timestamps have second precision, so the comparison is done in whole seconds.
func (u User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

// PublicUser is the only representation of a user that is sent to clients.
type PublicUser struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	Photo string   `json:"photo,omitempty"`
}

func NewPublicUser(u User) PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		Photo: u.Photo,
	}
}

// Document returns the outward fields keyed by their query names.
func (u User) Document() map[string]any {
	doc := map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  string(u.Role),
	}
	if u.Photo != "" {
		doc["photo"] = u.Photo
	}
	return doc
}

// UserView renders u narrowed to the projection.
func UserView(u User, p query.Projection) map[string]any {
	return p.Apply(u.Document())
}

// UserSchema lists the user fields clients may filter, sort and select on.
// Password and reset fields are not queryable.
var UserSchema = query.NewSchema("id", "",
	query.Field{Name: "id", Type: query.String, Mongo: "_id"},
	query.Field{Name: "name", Type: query.String},
	query.Field{Name: "email", Type: query.String},
	query.Field{Name: "role", Type: query.String},
	query.Field{Name: "photo", Type: query.String},
)

var userActiveField = query.Field{Name: "active", Type: query.Bool, Mongo: "active", Column: "active"}

// ActiveUsers is the default filter applied to every user listing.
func ActiveUsers() query.Filter {
	return query.Filter{Field: userActiveField, Op: query.OpEq, Value: true}
}

// UserPatch carries a partial profile update; nil means unchanged.
type UserPatch struct {
	Name  *string   `json:"name"`
	Email *string   `json:"email"`
	Photo *string   `json:"photo"`
	Role  *UserRole `json:"role"`
}

func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Photo != nil {
		u.Photo = strings.TrimSpace(*p.Photo)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
