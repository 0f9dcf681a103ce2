package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"natours/api/internal/apperr"
	"natours/api/internal/middleware"
	"natours/api/internal/models"
	"natours/api/internal/service"
)

const coverField = "imageCover"

// ListTours serves the tour collection, optionally through a named alias.
func (h HandlerSet) ListTours(alias string) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := c.Request.URL.Query()
		if alias != "" {
			params = service.WithAlias(params, alias)
		}

		tours, err := h.tourService.List(c.Request.Context(), params)
		if err != nil {
			middleware.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"results": len(tours),
			"data":    gin.H{"tours": tours},
		})
	}
}

func (h HandlerSet) GetTour(c *gin.Context) {
	tour, err := h.tourService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	sendTour(c, http.StatusOK, tour)
}

func (h HandlerSet) CreateTour(c *gin.Context) {
	var req models.Tour
	if !bindJSON(c, &req) {
		return
	}
	tour, err := h.tourService.Create(c.Request.Context(), req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	sendTour(c, http.StatusCreated, tour)
}

func (h HandlerSet) UpdateTour(c *gin.Context) {
	var patch models.TourPatch
	if !bindJSON(c, &patch) {
		return
	}
	tour, err := h.tourService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	sendTour(c, http.StatusOK, tour)
}

func (h HandlerSet) DeleteTour(c *gin.Context) {
	if err := h.tourService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) TourStats(c *gin.Context) {
	stats, err := h.tourService.Stats(c.Request.Context())
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"stats": stats})
}

func (h HandlerSet) MonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		middleware.Abort(c, apperr.Validation("Invalid year: "+c.Param("year")))
		return
	}
	plan, err := h.tourService.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"plan": plan})
}

func (h HandlerSet) UploadTourCover(c *gin.Context) {
	limit := h.cfg.Storage.MaxUploadBytes
	if limit > 0 {
		// Multipart framing needs a little room beyond the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+64<<10)
	}

	file, header, err := c.Request.FormFile(coverField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.Abort(c, apperr.Validation(fmt.Sprintf("Image is too large. The limit is %d bytes.", limit)))
			return
		}
		middleware.Abort(c, apperr.Validation("Please upload an image in the "+coverField+" field"))
		return
	}
	defer file.Close()

	if limit > 0 && header.Size > limit {
		middleware.Abort(c, apperr.Validation(fmt.Sprintf("Image is too large. The limit is %d bytes.", limit)))
		return
	}

	tour, err := h.tourService.SetCover(c.Request.Context(), c.Param("id"), file, header.Size)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	sendTour(c, http.StatusOK, tour)
}

func sendTour(c *gin.Context, status int, tour models.Tour) {
	success(c, status, gin.H{"tour": models.TourView(tour, service.DefaultProjection())})
}
