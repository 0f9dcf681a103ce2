package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"natours/api/internal/apperr"
)

// Logger writes one access line per request. Health probes are logged at debug so
// they do not drown the tour and user traffic.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case route == "/api/healthz":
			event = log.Debug()
		default:
			event = log.Info()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", RequestIDFrom(c))

		if user, ok := CurrentUser(c); ok {
			event.Str("user_id", user.ID).Str("role", string(user.Role))
		}
		if last := c.Errors.Last(); last != nil {
			event.Str("error_kind", apperr.KindOf(last.Err).String())
		}
		event.Msg("http request")
	}
}
