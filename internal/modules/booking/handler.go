package booking

import (
	"errors"
	"net/http"
	"strconv"

	"examroom/internal/domain"
	"examroom/internal/middleware"
	"examroom/internal/pkg/response"
	"examroom/internal/pkg/timeslot"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	users   UserRepository
	tokens  TokenValidator
	logger  *zap.Logger
}

func NewHandler(service *Service, users UserRepository, tokens TokenValidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, users: users, tokens: tokens, logger: logger}
}

// RegisterRoutes mounts the booking endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("/check", h.CheckConflict)
		bookings.POST("", middleware.RequireRole(string(domain.RoleTeacher)), h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.PATCH("/:id/status", middleware.AdminOnly(), h.UpdateStatus)
		bookings.DELETE("/:id", h.DeleteBooking)
	}
}

// RegisterWS mounts the live booking feed. The browser websocket API cannot
// send headers, so the token comes from the query string.
func (h *Handler) RegisterWS(r gin.IRoutes) {
	r.GET("/ws/bookings", h.StreamBookings)
}

func actorFromContext(c *gin.Context) Actor {
	return Actor{
		UserID: c.GetInt64("user_id"),
		Role:   domain.UserRole(c.GetString("role")),
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) CheckConflict(c *gin.Context) {
	var req CheckConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.CheckConflict(c.Request.Context(), Proposal{
		ClassroomID: req.ClassroomID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ExcludeID:   req.ExcludeID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := ConflictResponse{HasConflict: res.HasConflict, ConflictingBooking: res.ConflictingBooking}
	if res.HasConflict {
		out.Message = RoomConflictMessage
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) ListBookings(c *gin.Context) {
	list, err := h.service.ListBookings(c.Request.Context(), actorFromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.service.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	if err := h.service.DeleteBooking(c.Request.Context(), actorFromContext(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var conflict *ConflictError
	var collab *domain.CollaboratorError

	switch {
	case errors.As(err, &conflict):
		response.ErrorWithDetails(c, http.StatusConflict, "BOOKING_CONFLICT", RoomConflictMessage,
			gin.H{"conflicting_booking": conflict.Conflicting})
	case errors.Is(err, ErrRoomConflict):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", RoomConflictMessage)
	case errors.Is(err, ErrMissingField):
		response.Error(c, http.StatusBadRequest, "MISSING_FIELD", err.Error())
	case errors.Is(err, timeslot.ErrInvalidFormat):
		response.Error(c, http.StatusBadRequest, "INVALID_FORMAT", err.Error())
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotEnrolled):
		response.Error(c, http.StatusForbidden, "NOT_ENROLLED", err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You cannot modify this booking")
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", "Only pending bookings can be approved or rejected")
	case errors.Is(err, domain.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.As(err, &collab):
		h.logger.Error("storage failure", zap.String("op", collab.Op), zap.Error(collab.Err))
		response.Error(c, http.StatusBadGateway, "STORAGE_ERROR", collab.Error())
	default:
		h.logger.Error("booking request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
