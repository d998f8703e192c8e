package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/weather"
)

// fakeWeather 固定返回的天气数据源
type fakeWeather struct {
	queried []string
}

func (f *fakeWeather) Name() string { return "fake" }

func (f *fakeWeather) Current(ctx context.Context, location string) (*weather.Report, error) {
	f.queried = append(f.queried, location)
	if location == "Atlantis" {
		return nil, weather.ErrLocationNotFound
	}
	return &weather.Report{Location: location, TemperatureC: 21, Condition: "clear sky"}, nil
}

// completionServer 依次返回预置回复并记录请求
type completionServer struct {
	mu       sync.Mutex
	replies  []openai.ChatCompletionMessage
	requests []openai.ChatCompletionRequest
}

func (s *completionServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		s.mu.Lock()
		s.requests = append(s.requests, req)
		idx := len(s.requests) - 1
		s.mu.Unlock()

		reply := s.replies[len(s.replies)-1]
		if idx < len(s.replies) {
			reply = s.replies[idx]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:   0,
				Message: reply,
			}},
		})
	}
}

func newTestAgent(t *testing.T, srv *completionServer, provider weather.Provider, maxRounds int) *ChatAgent {
	t.Helper()
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	return NewChatAgent(&config.AgentConfig{
		BaseURL:            ts.URL + "/v1",
		APIKey:             "test-key",
		Model:              "gpt-test",
		MaxToolRounds:      maxRounds,
		ContextTokenBudget: 1024,
		Timeout:            5 * time.Second,
	}, provider)
}

func assistant(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

func weatherCall(id, location string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:   id,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      ToolGetCurrentWeather,
				Arguments: `{"location":"` + location + `"}`,
			},
		}},
	}
}

func TestChatAgent_PlainReply(t *testing.T) {
	srv := &completionServer{replies: []openai.ChatCompletionMessage{assistant("  Hello there!  ")}}
	a := newTestAgent(t, srv, &fakeWeather{}, 4)

	reply, err := a.Respond(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", reply)

	require.Len(t, srv.requests, 1)
	req := srv.requests[0]
	assert.Equal(t, "gpt-test", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, config.DefaultSystemPrompt, req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "hi", req.Messages[1].Content)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, ToolGetCurrentWeather, req.Tools[0].Function.Name)
}

func TestChatAgent_ContextTurns(t *testing.T) {
	srv := &completionServer{replies: []openai.ChatCompletionMessage{assistant("Still sunny.")}}
	a := newTestAgent(t, srv, &fakeWeather{}, 4)

	turns := []chat.Message{
		{Role: chat.RoleUser, Content: "Paris"},
		{Role: chat.RoleUser, Content: "what about tomorrow?"},
	}
	_, err := a.Respond(context.Background(), "and now?", turns)
	require.NoError(t, err)

	req := srv.requests[0]
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "- Paris\n- what about tomorrow?")
	assert.Equal(t, "and now?", req.Messages[2].Content)
}

func TestChatAgent_ToolCallLoop(t *testing.T) {
	srv := &completionServer{replies: []openai.ChatCompletionMessage{
		weatherCall("call_1", "Paris"),
		assistant("It is 21°C and clear in Paris."),
	}}
	provider := &fakeWeather{}
	a := newTestAgent(t, srv, provider, 4)

	reply, err := a.Respond(context.Background(), "weather in paris?", nil)
	require.NoError(t, err)
	assert.Equal(t, "It is 21°C and clear in Paris.", reply)
	assert.Equal(t, []string{"Paris"}, provider.queried)

	require.Len(t, srv.requests, 2)
	second := srv.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, openai.ChatMessageRoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)

	var report weather.Report
	require.NoError(t, json.Unmarshal([]byte(last.Content), &report))
	assert.Equal(t, "Paris", report.Location)
	assert.Equal(t, 21.0, report.TemperatureC)
}

func TestChatAgent_ToolErrorReturnedToModel(t *testing.T) {
	srv := &completionServer{replies: []openai.ChatCompletionMessage{
		weatherCall("call_1", "Atlantis"),
		assistant("I could not find that place."),
	}}
	a := newTestAgent(t, srv, &fakeWeather{}, 4)

	reply, err := a.Respond(context.Background(), "weather in atlantis?", nil)
	require.NoError(t, err)
	assert.Equal(t, "I could not find that place.", reply)

	second := srv.requests[1].Messages
	assert.Contains(t, second[len(second)-1].Content, `"error"`)
}

func TestChatAgent_ToolRoundsExceeded(t *testing.T) {
	srv := &completionServer{replies: []openai.ChatCompletionMessage{weatherCall("call_n", "Paris")}}
	a := newTestAgent(t, srv, &fakeWeather{}, 2)

	_, err := a.Respond(context.Background(), "loop forever", nil)
	assert.True(t, errors.Is(err, ErrToolRoundsExceeded))
	// 两轮工具调用 + 最后一次请求
	assert.Len(t, srv.requests, 3)
}

func TestChatAgent_EmptyReply(t *testing.T) {
	srv := &completionServer{replies: []openai.ChatCompletionMessage{assistant("   ")}}
	a := newTestAgent(t, srv, &fakeWeather{}, 4)

	_, err := a.Respond(context.Background(), "hi", nil)
	assert.True(t, errors.Is(err, ErrEmptyReply))
}

func TestChatAgent_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	a := NewChatAgent(&config.AgentConfig{BaseURL: ts.URL + "/v1", Model: "gpt-test"}, &fakeWeather{})
	_, err := a.Respond(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestChatAgent_NameAndPrompt(t *testing.T) {
	a := NewChatAgent(&config.AgentConfig{Model: "gpt-4o-mini"}, &fakeWeather{})
	assert.Equal(t, "openai/gpt-4o-mini", a.Name())
	assert.Equal(t, config.DefaultSystemPrompt, a.SystemPrompt())

	a.SetSystemPrompt("Be brief.")
	assert.Equal(t, "Be brief.", a.SystemPrompt())

	a.SetSystemPrompt("")
	assert.Equal(t, config.DefaultSystemPrompt, a.SystemPrompt())
}
