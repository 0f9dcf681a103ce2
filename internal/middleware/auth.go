package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/api/internal/models"
	"natours/api/internal/security"
)

const (
	currentUserKey = "current_user"

	// SessionCookie carries the session token for browser clients.
	SessionCookie = "jwt"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Authenticate resolves the session token from the Authorization header or, failing
// that, the session cookie, and stores the user on the context.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := security.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = cookieToken(c.Request)
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			Abort(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func cookieToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	token, ok := security.BearerToken("Bearer " + cookie.Value)
	if !ok {
		return ""
	}
	return token
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
