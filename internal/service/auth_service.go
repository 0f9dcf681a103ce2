package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"natours/api/internal/apperr"
	"natours/api/internal/cache"
	"natours/api/internal/config"
	"natours/api/internal/ids"
	"natours/api/internal/models"
	"natours/api/internal/notify"
	"natours/api/internal/repository"
	"natours/api/internal/security"
)

const (
	msgIncorrectCredentials = "Incorrect email or password"
	msgInvalidToken         = "Invalid token. Please log in again!"
	msgExpiredToken         = "Your token has expired! Please log in again."
	msgUserGone             = "The user belonging to this token no longer exists."
	msgPasswordChanged      = "User recently changed password! Please log in again."
	msgResetInvalid         = "Token is invalid or has expired"

	// ResetPath is where reset links point; the plaintext token is appended.
	ResetPath = "/api/v1/users/resetPassword/"
)

type AuthService struct {
	users    repository.UserRepository
	tokens   *security.TokenIssuer
	mailer   notify.Sender
	throttle *cache.ResetThrottle
	cfg      config.SecurityConfig
	log      zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(
	users repository.UserRepository,
	tokens *security.TokenIssuer,
	mailer notify.Sender,
	throttle *cache.ResetThrottle,
	cfg config.SecurityConfig,
	log zerolog.Logger,
	now func() time.Time,
) *AuthService {
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		throttle: throttle,
		cfg:      cfg,
		log:      log,
		now:      now,
	}
}

// AuthResult is a freshly issued session for User.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

type SignupInput struct {
	Name            string          `json:"name" validate:"required,max=100"`
	Email           string          `json:"email" validate:"required,email"`
	Photo           string          `json:"photo"`
	Password        string          `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string          `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            models.UserRole `json:"role" validate:"omitempty,oneof=user guide lead-guide"`
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = models.NormalizeEmail(input.Email)
	if err := models.Validate(input, "user"); err != nil {
		return AuthResult{}, err
	}

	role := input.Role
	if role == "" {
		role = models.UserRoleUser
	}

	hash, err := security.HashPasswordWithCost(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, apperr.Internal("hash password", err)
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		Photo:        strings.TrimSpace(input.Photo),
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, apperr.Conflict("Email is already registered. Please use another value!")
		}
		return AuthResult{}, storeError(err, "user not found")
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed up")
	return s.issue(user)
}

// Login verifies credentials. Every failure returns the same message and runs a
// bcrypt comparison, so responses do not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, apperr.Validation("Please provide email and password!")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, storeError(err, msgIncorrectCredentials)
		}
		_, _ = security.VerifyPassword(password, s.dummy())
		return AuthResult{}, apperr.Unauthorized(msgIncorrectCredentials)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if !ok || !user.Active {
		return AuthResult{}, apperr.Unauthorized(msgIncorrectCredentials)
	}
	return s.issue(user)
}

// Authenticate resolves a bearer token to the current user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, apperr.Unauthorized("You are not logged in! Please log in to get access.")
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return models.User{}, apperr.Unauthorized(msgExpiredToken)
		}
		return models.User{}, apperr.Wrap(apperr.KindUnauthorized, msgInvalidToken, err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject, models.ActiveUsers())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return models.User{}, apperr.Unauthorized(msgUserGone)
		}
		return models.User{}, storeError(err, msgUserGone)
	}

	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return models.User{}, apperr.Unauthorized(msgPasswordChanged)
	}
	return user, nil
}

// ForgotPassword issues a reset token for email and mails the link built on baseURL.
// If the mail cannot be sent the pending reset is withdrawn again.
func (s *AuthService) ForgotPassword(ctx context.Context, email, baseURL string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return apperr.Validation("Please provide your email address")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil || !user.Active {
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("There is no user with that email address.")
		}
		return storeError(err, "There is no user with that email address.")
	}

	allowed, err := s.throttle.Allow(ctx, user.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reset throttle unavailable")
		allowed = true
	}
	if !allowed {
		return apperr.RateLimited("A reset link was sent recently. Please check your email or try again later.")
	}

	token, tokenHash, err := security.NewResetToken()
	if err != nil {
		return apperr.Internal("generate reset token", err)
	}
	expiresAt := s.now().Add(s.cfg.ResetTokenTTL).UTC()
	if err := s.users.SetPasswordReset(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return storeError(err, "There is no user with that email address.")
	}

	resetURL := strings.TrimRight(baseURL, "/") + ResetPath + token
	msg := notify.Message{
		To:      user.Email,
		Subject: "Your password reset token (valid for " + s.cfg.ResetTokenTTL.String() + ")",
		Body: "Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: " +
			resetURL + "\nIf you didn't forget your password, please ignore this email!",
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		if clearErr := s.users.ClearPasswordReset(ctx, user.ID); clearErr != nil {
			s.log.Error().Err(clearErr).Str("user_id", user.ID).Msg("roll back password reset")
		}
		if relErr := s.throttle.Release(ctx, user.ID); relErr != nil {
			s.log.Warn().Err(relErr).Str("user_id", user.ID).Msg("release reset throttle")
		}
		return apperr.Upstream("There was an error sending the email. Try again later!", err)
	}

	s.log.Info().Str("user_id", user.ID).Time("expires_at", expiresAt).Msg("password reset requested")
	return nil
}

type PasswordInput struct {
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// ResetPassword consumes a reset token. Unknown, expired and already used tokens
// are indistinguishable to the caller.
func (s *AuthService) ResetPassword(ctx context.Context, token string, input PasswordInput) (AuthResult, error) {
	if err := models.Validate(input, "user"); err != nil {
		return AuthResult{}, err
	}

	now := s.now()
	tokenHash := security.HashResetToken(token)
	user, err := s.users.FindByResetToken(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, apperr.InvalidOrExpired(msgResetInvalid)
		}
		return AuthResult{}, storeError(err, msgResetInvalid)
	}

	hash, err := security.HashPasswordWithCost(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, apperr.Internal("hash password", err)
	}
	changedAt := passwordChangedAt(now)
	if err := s.users.ConsumePasswordReset(ctx, user.ID, tokenHash, hash, changedAt, now); err != nil {
		if errors.Is(err, repository.ErrResetTokenInvalid) {
			return AuthResult{}, apperr.InvalidOrExpired(msgResetInvalid)
		}
		return AuthResult{}, storeError(err, msgResetInvalid)
	}

	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetTokenHash = ""
	user.PasswordResetExpiresAt = nil

	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return s.issue(user)
}

type UpdatePasswordInput struct {
	PasswordCurrent string `json:"passwordCurrent"`
	PasswordInput
}

// UpdatePassword changes the password of an authenticated user after re-checking the
// current one against the stored hash.
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, input UpdatePasswordInput) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, userID, models.ActiveUsers())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, apperr.Unauthorized(msgUserGone)
		}
		return AuthResult{}, storeError(err, msgUserGone)
	}

	ok, err := security.VerifyPassword(input.PasswordCurrent, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, apperr.Unauthorized("Your current password is wrong.")
	}
	if err := models.Validate(input.PasswordInput, "user"); err != nil {
		return AuthResult{}, err
	}

	hash, err := security.HashPasswordWithCost(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, apperr.Internal("hash password", err)
	}
	changedAt := passwordChangedAt(s.now())
	if err := s.users.SetPassword(ctx, user.ID, hash, changedAt); err != nil {
		return AuthResult{}, storeError(err, msgUserGone)
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt

	s.log.Info().Str("user_id", user.ID).Msg("password updated")
	return s.issue(user)
}

// TokenTTL is the lifetime of issued session tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user models.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, apperr.Internal("issue token", err)
	}
	return AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// dummy is a hash at the configured cost, compared against when an account does not
// exist so the response time matches a wrong password.
func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := security.HashPasswordWithCost(ids.New(), s.cfg.BcryptCost)
		if err != nil {
			s.log.Error().Err(err).Msg("dummy password hash")
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// passwordChangedAt backdates the change by a second so the token issued with it,
// whose iat has second precision, still verifies.
func passwordChangedAt(now time.Time) time.Time {
	return now.Add(-time.Second).UTC()
}
