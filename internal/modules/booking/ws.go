package booking

import (
	"net/http"
	"slices"
	"time"

	"examroom/internal/domain"
	"examroom/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamBookings pushes the caller's booking list every time it changes.
// Admins see everything, teachers their own bookings and students the
// approved bookings of their registered subjects.
func (h *Handler) StreamBookings(c *gin.Context) {
	claims, err := h.tokens.ValidateToken(c.Query("token"))
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing token")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("booking stream opened", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	h.stream(conn, user)
	h.logger.Debug("booking stream closed", zap.Int64("user_id", user.ID))
}

func (h *Handler) stream(conn *websocket.Conn, user *domain.User) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sub := h.service.Subscribe(FilterForUser(user))
	defer func() { sub.Close() }()

	// Students follow their registered subjects, which may change while
	// the stream is open.
	var userChanges chan *domain.User
	if user.Role == domain.RoleStudent {
		userChanges = make(chan *domain.User, 1)
		stop := h.users.Watch(user.ID, func(u *domain.User) {
			select {
			case <-userChanges:
			default:
			}
			userChanges <- u
		}, nil)
		defer stop()
	}
	subjects := user.RegisteredSubjects

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return

		case list, ok := <-sub.Updates():
			if !ok {
				return
			}
			if err := writeJSON(conn, gin.H{"type": "bookings", "bookings": list}); err != nil {
				return
			}

		case err, ok := <-sub.Errors():
			if !ok {
				return
			}
			if err := writeJSON(conn, gin.H{"type": "error", "message": err.Error()}); err != nil {
				return
			}

		case u := <-userChanges:
			if slices.Equal(subjects, u.RegisteredSubjects) {
				continue
			}
			subjects = u.RegisteredSubjects
			sub.Close()
			sub = h.service.Subscribe(BySubjects(subjects))

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
