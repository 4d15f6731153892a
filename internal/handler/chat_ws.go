package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"guardianangel/config"
	"guardianangel/internal/domain"
	"guardianangel/internal/middleware"
	"guardianangel/internal/service"
	"guardianangel/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type inboundFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	MediaURL string `json:"media_url"`
}

// UpgradeChatWS upgrades to WebSocket for one chat; query: token, chat_id. The caller must
// take part in the chat and the chat must be open. The gate is checked again before
// every frame written to the socket, so a connection cannot outlive its access.
func UpgradeChatWS(cfg *config.JWTConfig, users middleware.UserLoader, chats *service.ChatService, hub *ws.ChatHub, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		chatIDStr := c.Query("chat_id")
		if token == "" || chatIDStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and chat_id required"})
			return
		}
		p, err := middleware.ResolvePrincipal(cfg, users, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		id, err := strconv.ParseUint(chatIDStr, 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat_id"})
			return
		}
		chatID := uint(id)
		if _, err := chats.OpenChat(p, chatID); err != nil {
			if errors.Is(err, domain.ErrPaymentRequired) {
				paymentRequired(c, chatID)
				return
			}
			respondError(c, log, err)
			return
		}

		// Join before the handshake completes so frames published once the peer
		// sees the upgrade are not missed.
		client := ws.NewClient(p.UserID)
		room := hub.Join(chatID, client)
		defer func() {
			hub.Leave(chatID, client)
			client.Close()
		}()
		conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		allow := func() bool {
			_, err := chats.OpenChat(p, chatID)
			return err == nil
		}
		go ws.WritePump(conn, client, allow)

		ws.ReadPump(conn, func(raw []byte) {
			var in inboundFrame
			if json.Unmarshal(raw, &in) != nil || in.Type != "message" {
				return
			}
			msg, err := chats.PostMessage(p, chatID, in.Content, in.MediaURL)
			if err != nil {
				// A lost access right surfaces here too: the write pump closes the socket
				// instead of delivering this frame.
				frame, _ := json.Marshal(gin.H{"type": "error", "error": err.Error()})
				client.Deliver(frame)
				return
			}
			room.Broadcast(client, messageFrame(msg))
		})
	}
}
