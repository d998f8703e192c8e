package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

const (
	// writeWait 单次写入超时
	writeWait = 10 * time.Second
	// pongWait 等待 Pong 的超时
	pongWait = 60 * time.Second
	// pingPeriod 发送 Ping 的间隔，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize 客户端消息上限（窗口只发送控制帧）
	maxMessageSize = 4096
	// sendBufferSize 每个连接的发送缓冲
	sendBufferSize = 64
)

// Client 聊天窗口的 WebSocket 客户端
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	Conn   *Connection
	logger *slog.Logger
}

// NewUpgrader 创建 WebSocket Upgrader
func NewUpgrader(cfg *config.WebSocketConfig) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true // 窗口可能嵌入在其他页面中
		},
	}
}

// ServeWS 升级连接并注册到 Hub
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, sessionID string) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		Conn:   NewConnection(sessionID),
		logger: log.NewModuleLogger("websocket", "client"),
	}
	hub.Register(client.Conn)

	go client.writePump()
	go client.readPump()

	client.logger.Debug("Websocket client connected", "session_id", sessionID)
	return client, nil
}

// readPump 读取消息，仅用于维持心跳和检测断开
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.Conn)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Websocket read error",
					"session_id", c.Conn.SessionID,
					"error", err,
				)
			}
			return
		}
	}
}

// writePump 将 Hub 推送的消息写入连接
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Conn.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
