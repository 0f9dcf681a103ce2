package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"natours/api/internal/config"
	"natours/api/internal/notify"
	"natours/api/internal/repository/memory"
	"natours/api/internal/security"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T) notify.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type authFixture struct {
	auth   *AuthService
	users  *memory.UserRepository
	mailer *fakeMailer
	clock  *clock
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	clk := newClock()
	users := memory.NewUserRepository()
	mailer := &fakeMailer{}
	cfg := config.SecurityConfig{
		JWTSecret:     "test-secret-that-is-long-enough-for-hs512",
		JWTTTL:        90 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
		ResetTokenTTL: 10 * time.Minute,
	}
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL, clk.Now)
	auth := NewAuthService(users, tokens, mailer, nil, cfg, zerolog.Nop(), clk.Now)
	return authFixture{auth: auth, users: users, mailer: mailer, clock: clk}
}

func (f authFixture) signup(t *testing.T, email string) AuthResult {
	t.Helper()
	res, err := f.auth.Signup(context.Background(), SignupInput{
		Name:            "Test User",
		Email:           email,
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	return res
}

var errSMTP = errors.New("smtp: connection refused")
