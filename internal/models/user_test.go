package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/query"
)

var forbiddenUserKeys = []string{
	"password", "passwordHash", "PasswordHash",
	"active", "passwordChangedAt", "passwordResetToken", "passwordResetTokenHash",
	"passwordResetExpires", "passwordResetExpiresAt",
}

func assertNoSecrets(t *testing.T, raw []byte) {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range forbiddenUserKeys {
		_, present := decoded[key]
		assert.False(t, present, "key %q leaked in %s", key, raw)
	}
}

func FuzzUserJSONNeverLeaksSecrets(f *testing.F) {
	f.Add("u1", "Jonas", "jonas@example.com", "$2a$12$abcdefghijklmnopqrstuv", "hash", "admin", true, int64(1700000000))
	f.Add("", "", "", "", "", "", false, int64(0))
	f.Add("id", "\"password\":", "x@y.z", "password", "passwordHash", "lead-guide", false, int64(-1))

	f.Fuzz(func(t *testing.T, id, name, email, hash, resetHash, role string, active bool, unix int64) {
		ts := time.Unix(unix, 0).UTC()
		u := User{
			ID:                     id,
			Name:                   name,
			Email:                  email,
			Role:                   UserRole(role),
			PasswordHash:           []byte(hash),
			Active:                 active,
			PasswordChangedAt:      &ts,
			PasswordResetTokenHash: resetHash,
			PasswordResetExpiresAt: &ts,
			CreatedAt:              ts,
		}

		for _, v := range []any{u, &u, NewPublicUser(u), UserView(u, query.Projection{})} {
			raw, err := json.Marshal(v)
			require.NoError(t, err)
			assertNoSecrets(t, raw)
		}
	})
}

func TestChangedPasswordAfter(t *testing.T) {
	iat := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var u User
	assert.False(t, u.ChangedPasswordAfter(iat))

	before := iat.Add(-time.Hour)
	u.PasswordChangedAt = &before
	assert.False(t, u.ChangedPasswordAfter(iat))

	sameSecond := iat.Add(300 * time.Millisecond)
	u.PasswordChangedAt = &sameSecond
	assert.False(t, u.ChangedPasswordAfter(iat))

	after := iat.Add(2 * time.Second)
	u.PasswordChangedAt = &after
	assert.True(t, u.ChangedPasswordAfter(iat))
}

func TestResetPending(t *testing.T) {
	now := time.Now()
	exp := now.Add(10 * time.Minute)
	u := User{PasswordResetTokenHash: "abc", PasswordResetExpiresAt: &exp}

	assert.True(t, u.ResetPending(now))
	assert.False(t, u.ResetPending(now.Add(11*time.Minute)))
	assert.False(t, User{}.ResetPending(now))
}

func TestUserSchemaHidesSecrets(t *testing.T) {
	for _, key := range []string{"password", "passwordHash", "active", "passwordResetToken"} {
		_, ok := UserSchema.Lookup(key)
		assert.False(t, ok, key)
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, UserRoleLeadGuide.Valid())
	assert.False(t, UserRole("root").Valid())
}
