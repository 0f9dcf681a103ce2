package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/apperr"
	"natours/api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestUserService_UpdateMe(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())
	ctx := context.Background()
	me := f.signup(t, "me@example.com").User

	_, err := users.UpdateMe(ctx, me, UpdateMeInput{Password: strPtr("newpass123")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "/updatePassword")

	updated, err := users.UpdateMe(ctx, me, UpdateMeInput{Name: strPtr("New Name"), Email: strPtr(" NEW@example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, models.UserRoleUser, updated.Role)

	_, err = users.UpdateMe(ctx, me, UpdateMeInput{Email: strPtr("not-an-email")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	f.signup(t, "taken@example.com")
	_, err = users.UpdateMe(ctx, me, UpdateMeInput{Email: strPtr("taken@example.com")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUserService_DeleteMeHidesFromListing(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())
	ctx := context.Background()
	me := f.signup(t, "me@example.com").User
	f.signup(t, "other@example.com")

	require.NoError(t, users.DeleteMe(ctx, me))

	list, err := users.List(ctx, url.Values{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "other@example.com", list[0]["email"])
	assert.NotContains(t, list[0], "password")

	_, err = users.Get(ctx, me.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserService_AdminUpdateAndDelete(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())
	ctx := context.Background()
	u := f.signup(t, "guide@example.com").User

	role := models.UserRoleLeadGuide
	updated, err := users.Update(ctx, u.ID, models.UserPatch{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleLeadGuide, updated.Role)

	bad := models.UserRole("root")
	_, err = users.Update(ctx, u.ID, models.UserPatch{Role: &bad})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, users.Delete(ctx, u.ID))
	err = users.Delete(ctx, u.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUserService_ListRejectsBadQuery(t *testing.T) {
	f := newAuthFixture(t)
	users := NewUserService(f.users, zerolog.Nop())

	_, err := users.List(context.Background(), url.Values{"role[regex]": {".*"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
