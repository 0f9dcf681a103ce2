package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTokenIssuer_RoundTrip(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer := NewTokenIssuer("secret-secret-secret-secret-32b!", 90*24*time.Hour, c.now)

	token, exp, err := issuer.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(90*24*time.Hour), exp)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, c.t.Unix(), claims.IssuedAt.Unix())
}

func TestTokenIssuer_Expired(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer := NewTokenIssuer("secret", time.Hour, c.now)

	token, _, err := issuer.Issue("user-1")
	require.NoError(t, err)

	c.t = c.t.Add(2 * time.Hour)
	_, err = issuer.Parse(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	a := NewTokenIssuer("secret-a", time.Hour, nil)
	b := NewTokenIssuer("secret-b", time.Hour, nil)

	token, _, err := a.Issue("user-1")
	require.NoError(t, err)

	_, err = b.Parse(token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTokenExpired))
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, nil)

	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(hs256)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none)
	assert.Error(t, err)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour, nil)
	for _, raw := range []string{"", "abc", "a.b.c", "null"} {
		_, err := issuer.Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"bearer":         {header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		"case":           {header: "bearer abc", token: "abc", ok: true},
		"missing scheme": {header: "abc.def.ghi"},
		"basic":          {header: "Basic dXNlcjpwYXNz"},
		"empty":          {header: "Bearer "},
		"null":           {header: "Bearer null"},
	}
	for name, tc := range cases {
		token, ok := BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, name)
		assert.Equal(t, tc.token, token, name)
	}
}
