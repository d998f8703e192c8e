package wire

import (
	"context"
	"database/sql"
	"log/slog"
	"net"
	"time"

	"github.com/weatherbot/backend/internal/application/recognizer"
	"github.com/weatherbot/backend/internal/domain/events"
	"github.com/weatherbot/backend/internal/infrastructure/agent"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/discovery"
	applog "github.com/weatherbot/backend/internal/infrastructure/log"
	"github.com/weatherbot/backend/internal/infrastructure/websocket"
	"github.com/weatherbot/backend/internal/interfaces"
	"github.com/weatherbot/backend/internal/interfaces/http/handler"
)

// shutdownTimeout HTTP 服务器优雅关闭的最长等待时间
const shutdownTimeout = 10 * time.Second

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	cfg        *config.Config
	wsHub      *websocket.Hub
	recognizer *recognizer.EntityRecognizer
	agent      *agent.ChatAgent
	advertiser *discovery.Advertiser
	db         *sql.DB
	logger     *slog.Logger

	// 事件与配置热加载
	eventBus      events.EventBus
	configWatcher *config.Watcher
	unsubscribers []events.Unsubscribe
}

// NewApp 创建应用实例
func NewApp(
	cfg *config.Config,
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	eventBus events.EventBus,
	configWatcher *config.Watcher,
	entityRecognizer *recognizer.EntityRecognizer,
	chatAgent *agent.ChatAgent,
	advertiser *discovery.Advertiser,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:    httpServer,
		MCPServer:     mcpServer,
		cfg:           cfg,
		wsHub:         wsHub,
		recognizer:    entityRecognizer,
		agent:         chatAgent,
		advertiser:    advertiser,
		db:            db,
		logger:        applog.NewModuleLogger("app", "main"),
		eventBus:      eventBus,
		configWatcher: configWatcher,
	}
}

// Start 启动所有服务，listener 为单例锁已占用的端口监听
func (a *App) Start(listener net.Listener) error {
	a.logger.Info("Starting WeatherBot application",
		"version", config.Version,
		"agent", a.agent.Name(),
	)

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 注册事件订阅者
	a.setupEventSubscribers()

	// 配置热加载
	if a.configWatcher != nil {
		a.configWatcher.OnReload(a.applyConfig)
		if err := a.configWatcher.Start(); err != nil {
			a.logger.Error("Failed to start config watcher",
				"error", err,
			)
		}
	}

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(listener); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	// 局域网广播（未启用时直接返回）
	if a.advertiser != nil {
		if err := a.advertiser.Start(a.HTTPServer.Addr(), config.Version); err != nil {
			a.logger.Warn("Failed to start service discovery",
				"error", err,
			)
		}
	}

	a.logger.Info("WeatherBot application started successfully",
		"addr", a.HTTPServer.Addr(),
	)

	// MCP 服务器通过 HTTP Handler 提供服务，已注册在 /mcp/sse
	return nil
}

// setupEventSubscribers 把对话事件推送给聊天窗口
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	a.unsubscribers = append(a.unsubscribers, a.eventBus.Subscribe(
		events.MessageAppended,
		events.HandlerFunc(func(event events.Event) error {
			msgEvent, ok := event.(*events.MessageEvent)
			if !ok {
				return nil
			}
			dto := handler.ToMessageDTO(msgEvent.Message)
			return a.wsHub.BroadcastToSession(msgEvent.SessionID, handler.WSEvent{
				Type:    "message",
				Message: &dto,
			})
		}),
	))

	a.unsubscribers = append(a.unsubscribers, a.eventBus.Subscribe(
		events.HistoryReset,
		events.HandlerFunc(func(event events.Event) error {
			resetEvent, ok := event.(*events.HistoryResetEvent)
			if !ok {
				return nil
			}
			return a.wsHub.BroadcastToSession(resetEvent.SessionID, handler.WSEvent{
				Type:     "history_reset",
				Location: resetEvent.SeededLocation,
			})
		}),
	))

	a.logger.Debug("WebSocket hub subscribed to chat events")
}

// applyConfig 应用热加载的配置，仅阈值与系统提示词支持运行时变更
func (a *App) applyConfig(cfg *config.Config) {
	a.recognizer.SetThreshold(cfg.NER.ScoreThreshold)
	a.agent.SetSystemPrompt(cfg.Agent.SystemPrompt)

	a.logger.Info("Config reloaded",
		"score_threshold", cfg.NER.ScoreThreshold,
	)
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping WeatherBot application")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
	}

	if a.advertiser != nil {
		a.advertiser.Stop()
	}

	// 停止配置监听
	if a.configWatcher != nil {
		a.configWatcher.Stop()
	}

	for _, unsubscribe := range a.unsubscribers {
		unsubscribe()
	}
	a.unsubscribers = nil

	// 关闭事件总线
	if a.eventBus != nil {
		a.eventBus.Close()
		a.logger.Info("Event bus closed")
	}

	a.wsHub.Stop()

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database connection",
				"error", err,
			)
			return err
		}
	}

	a.logger.Info("WeatherBot application stopped successfully")
	return nil
}
