package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/finloop/finloop-api/utils"
)

// WSHandler pushes change signals to a user's open clients so they can
// refetch. Sessions are keyed by the authenticated user id.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get("user_id")
		slog.Debug("websocket client disconnected", "user_id", userID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		slog.Error("websocket error", "error", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request. Browsers cannot set headers on websocket
// upgrades, so the access token is taken from the query string.
func (h *WSHandler) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter required"})
		return
	}

	userID, err := utils.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
		"user_id": userID,
	}); err != nil {
		slog.Error("failed to upgrade websocket", "error", err)
	}
}

// NotifyUser sends a typed signal to every open session of one user.
func (h *WSHandler) NotifyUser(userID, eventType string) {
	msg := []byte(`{"type": "` + eventType + `"}`)

	err := h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, exists := s.Get("user_id")
		return exists && id == userID
	})
	if err != nil {
		slog.Warn("failed to broadcast", "user_id", userID, "error", err)
	}
}
