package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"natours/api/internal/apperr"
)

const genericMessage = "Something went very wrong!"

// Abort records err for the Errors middleware and stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Errors renders the last error recorded on the context as a JSend failure. In
// development the cause and kind are included; in production internal failures
// only carry a generic message.
func Errors(development bool, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, body := errorBody(err, development)

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
		}
		c.JSON(status, body)
	}
}

func errorBody(err error, development bool) (int, gin.H) {
	kind := apperr.KindOf(err)
	status := kind.StatusCode()

	message := genericMessage
	var appErr *apperr.Error
	if errors.As(err, &appErr) && kind != apperr.KindInternal {
		message = appErr.Message
	}

	body := gin.H{"status": "error", "message": message}
	if status < http.StatusInternalServerError {
		body["status"] = "fail"
	}
	if development {
		body["message"] = messageFor(err, appErr)
		body["error"] = err.Error()
		body["kind"] = kind.String()
	}
	return status, body
}

func messageFor(err error, appErr *apperr.Error) string {
	if appErr != nil {
		return appErr.Message
	}
	return err.Error()
}
