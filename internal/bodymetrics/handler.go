package bodymetrics

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	v1 "github.com/vitalog-lab/vitalog/internal/api/v1"
	"github.com/vitalog-lab/vitalog/internal/core/calendar"
	httperr "github.com/vitalog-lab/vitalog/internal/core/errors"
	"github.com/vitalog-lab/vitalog/internal/core/storage"
	"github.com/vitalog-lab/vitalog/internal/ocr"
	"github.com/vitalog-lab/vitalog/internal/server"
)

const maxSheetImageBytes = 10 << 20

// Handler exposes the body measurement API.
type Handler struct {
	svc       *Service
	extractor *ocr.Service
}

// NewHandler creates a handler. The extractor may be nil; the OCR routes then
// answer 503.
func NewHandler(svc *Service, extractor *ocr.Service) *Handler {
	return &Handler{svc: svc, extractor: extractor}
}

// RegisterRoutes registers all body measurement routes on the given router.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/v1/bodies")
	g.POST("", h.handleCreate)
	g.PATCH("/:id", h.handlePatch)
	g.DELETE("/:id", h.handleDelete)
	g.GET("", h.handleSnapshot)
	g.GET("/latest", h.handleLatest)
	g.GET("/series", h.handleSeries)
	g.POST("/ocr", h.handleExtract)

	// Confirming an extraction is an ordinary create: the client reviews the
	// recognized values and submits them as a measurement.
	g.POST("/ocr/confirm", h.handleCreate)
}

func (h *Handler) handleCreate(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	var req v1.MeasurementCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err, "Failed to register measurement")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) handlePatch(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req v1.MeasurementPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid JSON body",
			Details:   err.Error(),
		})
		return
	}

	resp, err := h.svc.Patch(c.Request.Context(), userID, id, req)
	if err != nil {
		writeError(c, err, "Failed to correct measurement")
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
		writeError(c, err, "Failed to delete measurement")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleSnapshot(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	date, ok := queryDate(c, time.Now().UTC())
	if !ok {
		return
	}

	resp, err := h.svc.Snapshot(c.Request.Context(), userID, date)
	if err != nil {
		writeError(c, err, "Failed to resolve measurement")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleLatest(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)
	date, ok := queryDate(c, time.Now().UTC())
	if !ok {
		return
	}

	resp, err := h.svc.Latest(c.Request.Context(), userID, date)
	if err != nil {
		writeError(c, err, "Failed to resolve latest measurement")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleSeries(c *gin.Context) {
	userID := c.GetInt64(server.UserIDKey)

	g, err := calendar.ParseGranularity(c.DefaultQuery("granularity", string(calendar.Daily)))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   err.Error(),
		})
		return
	}
	endDate, ok := queryDate(c, time.Now().UTC())
	if !ok {
		return
	}
	carryForward := c.Query("carry_forward") == "true"

	resp, err := h.svc.Series(c.Request.Context(), userID, endDate, g, carryForward)
	if err != nil {
		writeError(c, err, "Failed to build measurement series")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleExtract(c *gin.Context) {
	if h.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpExtractFailed,
			Message:   "Measurement extraction is not configured",
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "An image file is required",
			Details:   err.Error(),
		})
		return
	}
	if fileHeader.Size > maxSheetImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "Image exceeds maximum allowed size",
			Details:   map[string]interface{}{"max_size_mb": maxSheetImageBytes >> 20},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read uploaded image",
		})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxSheetImageBytes))
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to read uploaded image",
		})
		return
	}

	extraction, err := h.extractor.Extract(c.Request.Context(), fileHeader.Filename, image)
	if err != nil {
		if errors.Is(err, ocr.ErrExtractTimeout) {
			c.JSON(http.StatusRequestTimeout, httperr.ErrorResponse{
				ErrorType: httperr.HttpExtractTimeout,
				Message:   "Measurement extraction timed out",
			})
			return
		}
		slog.Error("Measurement extraction failed", "error", err)
		c.JSON(http.StatusBadGateway, httperr.ErrorResponse{
			ErrorType: httperr.HttpExtractFailed,
			Message:   "Measurement extraction failed",
		})
		return
	}
	c.JSON(http.StatusOK, extraction)
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

func queryDate(c *gin.Context, fallback time.Time) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		raw = c.Query("end_date")
	}
	if raw == "" {
		return fallback, true
	}
	date, err := time.Parse(v1.DateFormat, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   "Invalid date parameter",
			Details:   err.Error(),
		})
		return time.Time{}, false
	}
	return date, true
}

// writeError maps service errors onto the JSON error shape.
func writeError(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpValidationError,
			Message:   err.Error(),
		})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "Measurement not found",
		})
	case errors.Is(err, storage.ErrTombstoned):
		c.JSON(http.StatusConflict, httperr.ErrorResponse{
			ErrorType: httperr.HttpAlreadyDeleted,
			Message:   "Measurement was already deleted",
		})
	default:
		slog.Error(internalMsg, "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   internalMsg,
		})
	}
}
