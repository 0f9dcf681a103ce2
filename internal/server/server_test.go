package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"natours/api/internal/config"
	"natours/api/internal/database"
	"natours/api/internal/handlers"
	"natours/api/internal/notify"
)

func TestHTTPServer_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{
		Environment:      "development",
		HTTP:             config.HTTPConfig{Host: "127.0.0.1", Port: 3000},
		Security:         config.SecurityConfig{JWTSecret: "server-test-secret", JWTTTL: time.Hour, ResetTokenTTL: time.Minute},
		AllowCORSOrigins: []string{"*"},
	}
	log := zerolog.Nop()
	hs := handlers.NewHandlerSet(log, cfg, database.NewMemoryStore(), nil, nil, notify.NewLogSender(log))
	srv := NewHTTPServer(cfg, log, hs)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"unauthorized"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","results":0,"data":{"tours":[]}}`, rec.Body.String())
}
