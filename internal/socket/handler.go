// internal/socket/handler.go
package socket

import (
	"context"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Authenticator validates the bearer token presented on upgrade.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Identity, error)
}

// Handler handles WebSocket connections
type Handler struct {
	Hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler. allowedOrigins empty or containing "*" accepts any origin.
func NewHandler(hub *Hub, auth Authenticator, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		Hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket upgrades an authenticated request. Browsers cannot set headers on
// the WebSocket handshake, so the token may also arrive as ?token=.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		status, body := apperrors.ToResponse(apperrors.ErrUnauthenticated)
		c.JSON(status, body)
		return
	}

	ident, err := h.auth.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		status, body := apperrors.ToResponse(err)
		c.JSON(status, body)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade error: %v", err)
		return
	}

	client := NewClient(h.Hub, ident.UserID, conn)
	select {
	case h.Hub.register <- client:
	case <-h.Hub.stop:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
