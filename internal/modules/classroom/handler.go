package classroom

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"examroom/internal/domain"
	"examroom/internal/middleware"
	"examroom/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	service    *Service
	classrooms ClassroomRepository
	tokens     TokenValidator
	logger     *zap.Logger
}

func NewHandler(service *Service, classrooms ClassroomRepository, tokens TokenValidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, classrooms: classrooms, tokens: tokens, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	classrooms := rg.Group("/classrooms")
	{
		classrooms.GET("", h.List)
		classrooms.GET("/:id", h.Get)
		classrooms.POST("", middleware.AdminOnly(), h.Create)
		classrooms.PUT("/:id", middleware.AdminOnly(), h.Update)
		classrooms.DELETE("/:id", middleware.AdminOnly(), h.Delete)
	}
}

func (h *Handler) RegisterWS(r gin.IRoutes) {
	r.GET("/ws/classrooms", h.StreamClassrooms)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"classrooms": list})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	room, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"classroom": room})
}

func (h *Handler) Create(c *gin.Context) {
	var req ClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	room, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"classroom": room})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	room, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"classroom": room})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamClassrooms pushes the full classroom list on connect and after every
// change.
func (h *Handler) StreamClassrooms(c *gin.Context) {
	if _, err := h.tokens.ValidateToken(c.Query("token")); err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := make(chan []domain.Classroom, 1)
	failures := make(chan error, 1)
	stop := h.classrooms.Subscribe(func(list []domain.Classroom) {
		select {
		case <-updates:
		default:
		}
		updates <- list
	}, func(err error) {
		select {
		case failures <- err:
		default:
		}
	})
	defer stop()

	for {
		var msg gin.H
		select {
		case <-done:
			return
		case list := <-updates:
			msg = gin.H{"type": "classrooms", "classrooms": list}
		case err := <-failures:
			msg = gin.H{"type": "error", "message": err.Error()}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid classroom ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	var collab *domain.CollaboratorError

	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid classroom", verr.Fields)
	case errors.Is(err, ErrHasBookings):
		response.Error(c, http.StatusConflict, "CLASSROOM_IN_USE", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Classroom not found")
	case errors.As(err, &collab):
		h.logger.Error("storage failure", zap.String("op", collab.Op), zap.Error(collab.Err))
		response.Error(c, http.StatusBadGateway, "STORAGE_ERROR", collab.Error())
	default:
		h.logger.Error("classroom request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
