package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"natours/api/internal/apperr"
	"natours/api/internal/cache"
	"natours/api/internal/config"
	"natours/api/internal/middleware"
	"natours/api/internal/models"
	"natours/api/internal/notify"
	"natours/api/internal/repository"
	"natours/api/internal/security"
	"natours/api/internal/service"
	"natours/api/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	userService *service.UserService
	tourService *service.TourService
	store       *repository.Store
	redis       *cache.Redis
	objects     *storage.ObjectStore
}

// NewHandlerSet wires services over the opened store. redisCache and objects may be
// nil when redis or object storage are disabled.
func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, store *repository.Store, redisCache *cache.Redis, objects *storage.ObjectStore, mailer notify.Sender) HandlerSet {
	tokens := security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.JWTTTL, time.Now)

	var covers service.CoverStore
	if objects != nil {
		covers = objects
	}

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: service.NewAuthService(store.Users, tokens, mailer, redisCache.ResetThrottle(), cfg.Security, log, time.Now),
		userService: service.NewUserService(store.Users, log),
		tourService: service.NewTourService(store.Tours, redisCache.StatsCache(), covers, log, time.Now),
		store:       store,
		redis:       redisCache,
		objects:     objects,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	protect := middleware.Authenticate(h.authService)
	tourWriters := middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleLeadGuide)

	v1 := router.Group("/v1")
	{
		tours := v1.Group("/tours")
		tours.GET("/top-5-cheap", h.ListTours("top-5-cheap"))
		tours.GET("/top-5-extravagant", h.ListTours("top-5-extravagant"))
		tours.GET("/tour-stats", h.TourStats)
		tours.GET("/monthly-plan/:year",
			protect,
			middleware.RequireRoles(models.UserRoleAdmin, models.UserRoleLeadGuide, models.UserRoleGuide),
			h.MonthlyPlan,
		)
		tours.GET("", h.ListTours(""))
		tours.POST("", protect, tourWriters, h.CreateTour)
		tours.GET("/:id", h.GetTour)
		tours.PATCH("/:id", protect, tourWriters, h.UpdateTour)
		tours.DELETE("/:id", protect, tourWriters, h.DeleteTour)
		tours.PUT("/:id/cover", protect, tourWriters, h.UploadTourCover)
	}
	{
		users := v1.Group("/users")
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgotPassword", h.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.ResetPassword)

		me := users.Group("", protect)
		me.PATCH("/updatePassword", h.UpdatePassword)
		me.GET("/me", h.Me)
		me.PATCH("/updateMe", h.UpdateMe)
		me.DELETE("/deleteMe", h.DeleteMe)

		admin := users.Group("", protect, middleware.RequireRoles(models.UserRoleAdmin))
		admin.GET("", h.ListUsers)
		admin.POST("", h.CreateUser)
		admin.GET("/:id", h.GetUser)
		admin.PATCH("/:id", h.UpdateUser)
		admin.DELETE("/:id", h.DeleteUser)
	}
}

// NotFound answers requests no route matched.
func NotFound(c *gin.Context) {
	middleware.Abort(c, apperr.NotFound("Can't find "+c.Request.URL.Path+" on this server!"))
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		msg := "Invalid input data. The request body must be a JSON object."
		if errors.Is(err, io.EOF) {
			msg = "Invalid input data. The request body is empty."
		}
		middleware.Abort(c, apperr.Wrap(apperr.KindValidation, msg, err))
		return false
	}
	return true
}

func currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Abort(c, apperr.Unauthorized("You are not logged in! Please log in to get access."))
	}
	return user, ok
}

func success(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}
