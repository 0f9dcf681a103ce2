package middleware

import (
	"github.com/gin-gonic/gin"

	"natours/api/internal/apperr"
	"natours/api/internal/models"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			Abort(c, apperr.Unauthorized("You are not logged in! Please log in to get access."))
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			Abort(c, apperr.Forbidden("You do not have permission to perform this action"))
			return
		}

		c.Next()
	}
}
