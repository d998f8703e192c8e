// Package mcp 通过 MCP 协议暴露天气助手能力
package mcp

import (
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/weatherbot/backend/internal/application/conversation"
	"github.com/weatherbot/backend/internal/application/recognizer"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// MCPServer MCP 服务器
type MCPServer struct {
	server     *mcp.Server
	handler    http.Handler
	svc        *conversation.Service
	recognizer *recognizer.EntityRecognizer
	logger     *slog.Logger
}

// NewServer 创建 MCP 服务器
func NewServer(svc *conversation.Service, r *recognizer.EntityRecognizer) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "weatherbot",
			Version: config.Version,
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:     server,
		svc:        svc,
		recognizer: r,
		logger:     log.NewModuleLogger("mcp", "server"),
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_weatherbot",
		Description: `Ask WeatherBot a question about the weather.
Parameters:
- message (string, required): The question, e.g. "What's the weather in Lisbon?"
- session_id (string, optional): Continue an existing conversation. A new session is started when omitted.

Returns: session_id, the assistant reply, and whether the conversation history was reset to a new location.`,
	}, mcpServer.askWeatherbotTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "detect_locations",
		Description: "Detect place names in a text with the NER model. Parameters: text (string, required). Returns: locations above the confidence threshold with their scores.",
	}, mcpServer.detectLocationsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_session_transcript",
		Description: "Read all messages of a WeatherBot session in order. Parameters: session_id (string, required). Returns: messages with role and content.",
	}, mcpServer.getSessionTranscriptTool)

	mcpServer.handler = mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			return server
		},
		nil, // SSEOptions，使用默认值
	)
	return mcpServer
}

// GetHandler SSE 处理器，挂载在 /mcp/sse
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}
