// Package agent 基于 OpenAI 兼容接口的天气对话代理
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	"github.com/weatherbot/backend/internal/infrastructure/weather"
)

var (
	// ErrEmptyReply 模型没有返回文本
	ErrEmptyReply = errors.New("agent returned an empty reply")
	// ErrToolRoundsExceeded 工具调用轮数超过上限
	ErrToolRoundsExceeded = errors.New("agent exceeded max tool rounds")
)

// defaultMaxToolRounds 工具调用轮数默认上限
const defaultMaxToolRounds = 4

// ChatAgent 支持天气工具调用的对话代理
type ChatAgent struct {
	client        *openai.Client
	model         string
	maxToolRounds int
	tokenBudget   int
	weather       weather.Provider
	tokens        *TokenCounter
	logger        *slog.Logger

	mu           sync.RWMutex
	systemPrompt string
}

// NewChatAgent 创建对话代理
func NewChatAgent(cfg *config.AgentConfig, provider weather.Provider) *ChatAgent {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := log.NewModuleLogger("agent", "chat")

	// 编码器加载失败时退化为字符估算
	tokens, err := GetTokenCounter()
	if err != nil {
		logger.Warn("Failed to load tiktoken encoding, falling back to estimation",
			"error", err,
		)
	}

	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}

	a := &ChatAgent{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         cfg.Model,
		maxToolRounds: maxRounds,
		tokenBudget:   cfg.ContextTokenBudget,
		weather:       provider,
		tokens:        tokens,
		logger:        logger,
	}
	a.SetSystemPrompt(cfg.SystemPrompt)
	return a
}

// Name 代理标识
func (a *ChatAgent) Name() string {
	return "openai/" + a.model
}

// SystemPrompt 当前系统提示词
func (a *ChatAgent) SystemPrompt() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.systemPrompt
}

// SetSystemPrompt 更新系统提示词，空值恢复默认
func (a *ChatAgent) SetSystemPrompt(prompt string) {
	if strings.TrimSpace(prompt) == "" {
		prompt = config.DefaultSystemPrompt
	}
	a.mu.Lock()
	a.systemPrompt = prompt
	a.mu.Unlock()
}

// Respond 根据用户输入和此前的用户消息生成回复
func (a *ChatAgent) Respond(ctx context.Context, input string, turns []chat.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: a.buildMessages(input, turns),
		Tools:    weatherTools,
	}

	for round := 0; ; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyReply
		}

		message := resp.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			reply := strings.TrimSpace(message.Content)
			if reply == "" {
				return "", ErrEmptyReply
			}
			a.logger.Debug("Agent replied",
				"model", a.model,
				"tool_rounds", round,
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens,
			)
			return reply, nil
		}

		if round >= a.maxToolRounds {
			return "", ErrToolRoundsExceeded
		}

		a.logger.Debug("Processing tool calls",
			"round", round+1,
			"count", len(message.ToolCalls),
		)
		req.Messages = append(req.Messages, message)
		for _, call := range message.ToolCalls {
			result, err := a.executeToolCall(ctx, call)
			if err != nil {
				return "", fmt.Errorf("tool call failed: %w", err)
			}
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}
}

// buildMessages 系统提示词 + 此前用户消息摘要 + 本轮输入
func (a *ChatAgent) buildMessages(input string, turns []chat.Message) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.SystemPrompt(),
	}}

	turns = a.tokens.TrimToBudget(turns, a.tokenBudget)
	if len(turns) > 0 {
		var b strings.Builder
		b.WriteString("Earlier messages from the user in this conversation, oldest first:")
		for _, t := range turns {
			b.WriteString("\n- ")
			b.WriteString(t.Content)
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: b.String(),
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})
}

// 编译时检查接口实现
var _ chat.Agent = (*ChatAgent)(nil)
