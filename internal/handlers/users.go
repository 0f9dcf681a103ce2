package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/api/internal/apperr"
	"natours/api/internal/middleware"
	"natours/api/internal/models"
	"natours/api/internal/service"
)

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(users),
		"data":    gin.H{"users": users},
	})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"user": models.NewPublicUser(user)})
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	middleware.Abort(c, apperr.Validation("This route is not defined! Please use /signup instead"))
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var patch models.UserPatch
	if !bindJSON(c, &patch) {
		return
	}
	user, err := h.userService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"user": models.NewPublicUser(user)})
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	success(c, http.StatusOK, gin.H{"user": models.NewPublicUser(user)})
}

func (h HandlerSet) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req service.UpdateMeInput
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.userService.UpdateMe(c.Request.Context(), user, req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"user": models.NewPublicUser(updated)})
}

func (h HandlerSet) DeleteMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteMe(c.Request.Context(), user); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
