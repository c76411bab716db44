package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/monocle-dev/crewboard/internal/realtime"
	"github.com/monocle-dev/crewboard/internal/utils"
)

// WebSocket streams the caller's new notifications until the connection
// closes.
func (h *Handler) WebSocket(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		h.respondError(ctx, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := realtime.NewClient(conn)

	conn.SetReadLimit(realtime.MaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(realtime.PongWait)); err != nil {
		h.Logger.Warn("failed to set initial read deadline", "error", err)
		client.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(realtime.PongWait))
	})

	h.Hub.Register(userID, client)

	defer func() {
		h.Hub.Unregister(userID, client)
		client.Close()
		h.Logger.Debug("websocket connection closed", "user_id", userID)
	}()

	err = client.WriteJSON(map[string]interface{}{
		"type":    "connected",
		"message": "WebSocket connection established",
		"userId":  userID,
	})

	if err != nil {
		h.Logger.Warn("failed to send welcome message", "user_id", userID, "error", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(realtime.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.Ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn("websocket error", "user_id", userID, "error", err)
			}
			break
		}
	}
}
