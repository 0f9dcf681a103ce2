package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	Driver      string `json:"driver"`
	Cache       string `json:"cache"`
	Storage     string `json:"storage"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Store:       "ok",
		Driver:      h.store.Driver,
		Cache:       "disabled",
		Storage:     "disabled",
		Environment: h.cfg.Environment,
	}
	status := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		resp.Store = "error"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
		h.log.Error().Err(err).Str("driver", h.store.Driver).Msg("store ping failed")
	}

	if h.redis != nil {
		resp.Cache = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			resp.Cache = "error"
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	if h.objects != nil {
		resp.Storage = "ok"
		if err := h.objects.Ping(ctx); err != nil {
			resp.Storage = "error"
			h.log.Error().Err(err).Msg("object storage ping failed")
		}
	}

	c.JSON(status, resp)
}
