package enrollment

import (
	"errors"
	"net/http"

	"examroom/internal/domain"
	"examroom/internal/pkg/response"
	"examroom/internal/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

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
	subjects := rg.Group("/users/me/subjects")
	{
		subjects.GET("", h.List)
		subjects.POST("", h.Add)
		subjects.DELETE("", h.Remove)
	}
}

func (h *Handler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) Add(c *gin.Context) {
	var req AddSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid subject", errs)
		return
	}

	res, err := h.service.Add(c.Request.Context(), c.GetInt64("user_id"), req.toSubject())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// Remove handles DELETE /users/me/subjects?subject_number=CS101&subject_sub_number=1
func (h *Handler) Remove(c *gin.Context) {
	number := c.Query("subject_number")
	if number == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "subject_number is required")
		return
	}

	res, err := h.service.Remove(c.Request.Context(), c.GetInt64("user_id"), number, c.Query("subject_sub_number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var collab *domain.CollaboratorError

	switch {
	case errors.Is(err, ErrDuplicateSubject):
		response.Error(c, http.StatusConflict, "DUPLICATE_SUBJECT", err.Error())
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNoSubjectList):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.As(err, &collab):
		h.logger.Error("storage failure", zap.String("op", collab.Op), zap.Error(collab.Err))
		response.Error(c, http.StatusBadGateway, "STORAGE_ERROR", collab.Error())
	default:
		h.logger.Error("enrollment request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
