package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/weatherbot/backend/docs" // Swagger docs
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	"github.com/weatherbot/backend/internal/interfaces/http/handler"
	"github.com/weatherbot/backend/internal/interfaces/http/middleware"
	"github.com/weatherbot/backend/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.ServerConfig,
	chatHandler *handler.ChatHandler,
	entityHandler *handler.EntityHandler,
	wsHandler *handler.WSHandler,
	healthHandler *handler.HealthHandler,
	widgetHandler *handler.WidgetHandler,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	router := NewRouter(chatHandler, entityHandler, wsHandler, healthHandler, widgetHandler, mcpServer)

	return &HTTPServer{
		router:   router,
		httpPort: cfg.HTTPPort,
		server: &http.Server{
			Addr:    cfg.HTTPPort,
			Handler: router,
		},
		logger: log.NewModuleLogger("http", "server"),
	}
}

// NewRouter 注册全部路由
func NewRouter(
	chatHandler *handler.ChatHandler,
	entityHandler *handler.EntityHandler,
	wsHandler *handler.WSHandler,
	healthHandler *handler.HealthHandler,
	widgetHandler *handler.WidgetHandler,
	mcpServer *mcp.MCPServer,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())

	// 聊天窗口
	router.GET("/", widgetHandler.Index)

	api := router.Group("/api/v1")
	api.Use(middleware.EnsureUTF8Body())
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", chatHandler.CreateSession)
			sessions.GET("", chatHandler.ListSessions)
			sessions.DELETE("/:id", chatHandler.DeleteSession)
			sessions.GET("/:id/messages", chatHandler.ListMessages)
			sessions.POST("/:id/messages", chatHandler.SendMessage)
			sessions.GET("/:id/history", chatHandler.GetHistory)
			sessions.GET("/:id/ws", wsHandler.Connect)
		}

		// 调试：查看文本中识别出的地点
		api.POST("/entities/locations", entityHandler.DetectLocations)
	}

	// 健康检查
	router.GET("/health", healthHandler.Health)

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return router
}

// Handler 返回路由（用于测试）
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *HTTPServer) Addr() string {
	return s.httpPort
}

// Start 启动服务器，listener 为空时自行监听配置端口
func (s *HTTPServer) Start(listener net.Listener) error {
	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	var err error
	if listener != nil {
		err = s.server.Serve(listener)
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
