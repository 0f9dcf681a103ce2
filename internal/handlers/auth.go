package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"natours/api/internal/middleware"
	"natours/api/internal/models"
	"natours/api/internal/service"
)

// passwordFields accepts both spellings of the confirmation field.
type passwordFields struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (p passwordFields) input() service.PasswordInput {
	confirm := p.ConfirmPassword
	if confirm == "" {
		confirm = p.PasswordConfirm
	}
	return service.PasswordInput{Password: p.Password, PasswordConfirm: confirm}
}

type signupRequest struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Photo string          `json:"photo"`
	Role  models.UserRole `json:"role"`
	passwordFields
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	pw := req.input()
	result, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Photo:           req.Photo,
		Role:            req.Role,
		Password:        pw.Password,
		PasswordConfirm: pw.PasswordConfirm,
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	h.sendToken(c, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	h.sendToken(c, http.StatusOK, result)
}

// Logout overwrites the session cookie; bearer tokens simply expire.
func (h HandlerSet) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email, h.baseURL(c)); err != nil {
		middleware.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req passwordFields
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.input())
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	h.sendToken(c, http.StatusOK, result)
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	passwordFields
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req updatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.UpdatePassword(c.Request.Context(), user.ID, service.UpdatePasswordInput{
		PasswordCurrent: req.PasswordCurrent,
		PasswordInput:   req.input(),
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	h.sendToken(c, http.StatusOK, result)
}

func (h HandlerSet) sendToken(c *gin.Context, status int, result service.AuthResult) {
	ttl := h.cfg.Security.CookieTTL
	if ttl <= 0 {
		ttl = h.authService.TokenTTL()
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	c.JSON(status, gin.H{
		"status": "success",
		"token":  result.Token,
		"data":   gin.H{"user": models.NewPublicUser(result.User)},
	})
}

// baseURL is where reset links point. The configured public URL wins; the request
// host is only trusted when none is set.
func (h HandlerSet) baseURL(c *gin.Context) string {
	if h.cfg.HTTP.PublicURL != "" {
		return strings.TrimRight(h.cfg.HTTP.PublicURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
