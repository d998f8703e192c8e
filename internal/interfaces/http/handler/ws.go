package handler

import (
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/weatherbot/backend/internal/application/conversation"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	"github.com/weatherbot/backend/internal/infrastructure/websocket"
)

// WSHandler 聊天窗口推送处理器
type WSHandler struct {
	svc      *conversation.Service
	hub      *websocket.Hub
	upgrader *gorillaws.Upgrader
}

// NewWSHandler 创建推送处理器
func NewWSHandler(svc *conversation.Service, hub *websocket.Hub, upgrader *gorillaws.Upgrader) *WSHandler {
	return &WSHandler{svc: svc, hub: hub, upgrader: upgrader}
}

// Connect 升级为 WebSocket 连接并订阅会话消息
// @Summary 订阅会话消息
// @Tags 消息
// @Param id path string true "会话 ID"
// @Router /sessions/{id}/ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := h.svc.GetSession(c.Request.Context(), sessionID); err != nil {
		writeServiceError(c, err)
		return
	}

	if _, err := websocket.ServeWS(h.hub, h.upgrader, c.Writer, c.Request, sessionID); err != nil {
		// Upgrade 失败时已写入错误响应
		log.NewModuleLogger("http", "ws").Warn("Websocket upgrade failed",
			"session_id", sessionID,
			"error", err,
		)
	}
}
