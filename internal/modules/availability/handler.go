package availability

import (
	"errors"
	"net/http"
	"strconv"

	"examroom/internal/domain"
	"examroom/internal/pkg/response"
	"examroom/internal/pkg/timeslot"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultDurationHours = 2

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/classrooms/:id/periods", h.GetPeriods)
	rg.GET("/classrooms/:id/busy", h.GetBusy)
}

// GetPeriods handles GET /classrooms/:id/periods?date=YYYY-MM-DD&duration=1.5
func (h *Handler) GetPeriods(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid classroom ID")
		return
	}

	duration := float64(defaultDurationHours)
	if raw := c.Query("duration"); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", "duration must be a number of hours")
			return
		}
	}

	res, err := h.service.ExamPeriods(c.Request.Context(), id, c.Query("date"), duration)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// GetBusy handles GET /classrooms/:id/busy?date=YYYY-MM-DD
func (h *Handler) GetBusy(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid classroom ID")
		return
	}

	res, err := h.service.Busy(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var collab *domain.CollaboratorError

	switch {
	case errors.Is(err, timeslot.ErrInvalidFormat):
		response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
	case errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidClassroom), errors.Is(err, timeslot.ErrInvalidHours):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Classroom not found")
	case errors.As(err, &collab):
		h.logger.Error("storage failure", zap.String("op", collab.Op), zap.Error(collab.Err))
		response.Error(c, http.StatusBadGateway, "STORAGE_ERROR", collab.Error())
	default:
		h.logger.Error("availability request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
