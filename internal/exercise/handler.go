package exercise

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/vitalog-lab/vitalog/internal/api/v1"
	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	httperr "github.com/vitalog-lab/vitalog/internal/core/errors"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
	"github.com/vitalog-lab/vitalog/internal/server"
)

// Handler exposes the exercise API.
type Handler struct {
	svc *Service
}

// NewHandler creates a handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers all exercise routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/v1/exercises")
	g.POST("", h.handleCreate)
	g.GET("", h.handleList)
	g.PATCH("/:id", h.handleUpdate)
	g.DELETE("/:id", h.handleDelete)
	g.GET("/:id", h.handleGet)
	g.POST("/import", h.handleImport)

	g.GET("/stats/today", h.handleToday)
	g.GET("/stats/daily", h.statsHandler(calendar.Daily))
	g.GET("/stats/weekly", h.statsHandler(calendar.Weekly))
	g.GET("/stats/monthly", h.statsHandler(calendar.Monthly))

	g.GET("/categories", h.handleCategories)
	g.GET("/types", h.handleTypes)
	g.GET("/types/latest", h.handleLatestTypes)
	g.GET("/types/:id", h.handleTypeDetail)

	g.GET("/favorites", h.handleFavorites)
	g.POST("/favorites/:id", h.handleAddFavorite)
	g.DELETE("/favorites/:id", h.handleRemoveFavorite)
}

func (h *Handler) handleCreate(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	var req v1.ExerciseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "Failed to record exercise")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) handleList(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	resp, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to list exercises")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleGet(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err, "Failed to load exercise")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleUpdate(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req v1.ExerciseUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		writeError(c, err, "Failed to correct exercise")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleDelete(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, err, "Failed to delete exercise")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleImport(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	var req v1.ExerciseImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c, err)
		return
	}

	resp, err := h.svc.Import(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "Failed to import exercises")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleToday(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	resp, err := h.svc.Today(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to build today's stats")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) statsHandler(g calendar.Granularity) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64(server.UserIDKey)

		endDate := time.Now().UTC()
		if raw := c.Query("end_date"); raw != "" {
			parsed, err := time.Parse(v1.DateFormat, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
					ErrorType: httperr.HttpValidationError,
					Message:   "Invalid end_date parameter",
					Details:   err.Error(),
				})
				return
			}
			endDate = parsed
		}

		resp, err := h.svc.Window(c.Request.Context(), userID, endDate, g)
		if err != nil {
			writeError(c, err, "Failed to build exercise stats")
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) handleCategories(c *gin.Context) {
	resp, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to list categories")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleTypes(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	resp, err := h.svc.Types(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to list exercise types")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleLatestTypes(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	resp, err := h.svc.LatestTypes(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to list recent exercise types")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleTypeDetail(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := h.svc.TypeDetail(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err, "Failed to load exercise type")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleFavorites(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	resp, err := h.svc.Favorites(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "Failed to list favorites")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleAddFavorite(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.AddFavorite(c.Request.Context(), userID, id); err != nil {
		writeError(c, err, "Failed to add favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleRemoveFavorite(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveFavorite(c.Request.Context(), userID, id); err != nil {
		writeError(c, err, "Failed to remove favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "Invalid record id",
		})
		return 0, false
	}
	return id, true
}

func writeInvalidJSON(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
		ErrorType: httperr.HttpInvalidJsonError,
		Message:   "Invalid JSON body",
		Details:   err.Error(),
	})
}

// writeError maps service errors onto the JSON error shape.
func writeError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   err.Error(),
		})
	case errors.Is(err, ErrUnknownType):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownReference,
			Message:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Exercise not found",
		})
	case errors.Is(err, storage.ErrTombstoned):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpAlreadyDeleted,
			Message:   "Exercise was already deleted",
		})
	default:
		slog.Error(internalMsg, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   internalMsg,
		})
	}
}
