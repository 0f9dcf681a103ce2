package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/apperr"
	"natours/api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	users map[string]models.User
	seen  string
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (models.User, error) {
	s.seen = token
	if token == "" {
		return models.User{}, apperr.Unauthorized("You are not logged in! Please log in to get access.")
	}
	user, ok := s.users[token]
	if !ok {
		return models.User{}, apperr.Unauthorized("Invalid token. Please log in again!")
	}
	return user, nil
}

func newEngine(development bool, auth Authenticator, roles ...models.UserRole) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), Recovery(zerolog.Nop()), Errors(development, zerolog.Nop()))
	chain := []gin.HandlerFunc{Authenticate(auth)}
	if len(roles) > 0 {
		chain = append(chain, RequireRoles(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"status": "success", "id": user.ID})
	})
	engine.GET("/private", chain...)
	engine.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation does not exist"))
	})
	engine.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	return engine
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate_HeaderAndCookie(t *testing.T) {
	auth := &stubAuth{users: map[string]models.User{"good": {ID: "u1", Role: models.UserRoleUser}}}
	engine := newEngine(false, auth)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := serve(engine, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", decode(t, rec)["id"])

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	rec = serve(engine, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	rec = serve(engine, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "You are not logged in! Please log in to get access.", body["message"])
	assert.NotContains(t, body, "error")
}

func TestAuthenticate_NullTokenTreatedAsMissing(t *testing.T) {
	auth := &stubAuth{}
	engine := newEngine(false, auth)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer null")
	rec := serve(engine, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, auth.seen)
}

func TestRequireRoles(t *testing.T) {
	auth := &stubAuth{users: map[string]models.User{
		"user":  {ID: "u1", Role: models.UserRoleUser},
		"admin": {ID: "a1", Role: models.UserRoleAdmin},
	}}
	engine := newEngine(false, auth, models.UserRoleAdmin, models.UserRoleLeadGuide)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer user")
	rec := serve(engine, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not have permission to perform this action", decode(t, rec)["message"])

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rec = serve(engine, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoles_WithoutUser(t *testing.T) {
	engine := gin.New()
	engine.Use(Errors(false, zerolog.Nop()))
	engine.GET("/admin", RequireRoles(models.UserRoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrors_InternalHiddenInProduction(t *testing.T) {
	rec := serve(newEngine(false, &stubAuth{}), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Something went very wrong!", body["message"])
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestErrors_DevelopmentIncludesDetail(t *testing.T) {
	rec := serve(newEngine(true, &stubAuth{}), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "pq: relation does not exist", body["error"])
	assert.Equal(t, "internal", body["kind"])
}

func TestRecovery(t *testing.T) {
	rec := serve(newEngine(false, &stubAuth{}), httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"https://natours.dev"}))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://natours.dev")
	rec := serve(engine, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://natours.dev", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = serve(engine, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
