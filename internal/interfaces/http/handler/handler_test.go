package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/weatherbot/backend/internal/application/conversation"
	"github.com/weatherbot/backend/internal/application/recognizer"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/domain/entity"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/eventbus"
	"github.com/weatherbot/backend/internal/infrastructure/storage"
	"github.com/weatherbot/backend/internal/interfaces/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAgent testify mock 实现的对话代理
type mockAgent struct {
	mock.Mock
}

func (m *mockAgent) Respond(ctx context.Context, input string, turns []chat.Message) (string, error) {
	args := m.Called(ctx, input, turns)
	return args.String(0), args.Error(1)
}

// cityPipeline 把首字母大写的单词识别为地点
var cityPipeline = entity.PipelineFunc(func(ctx context.Context, text string) ([]entity.Entity, error) {
	var out []entity.Entity
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, "?!.,")
		if w != "" && w[0] >= 'A' && w[0] <= 'Z' && w != "What" {
			out = append(out, entity.Entity{Group: entity.GroupLocation, Word: w, Score: 0.98})
		}
	}
	return out, nil
})

type testServer struct {
	router *gin.Engine
	agent  *mockAgent
}

func setupRouter(t *testing.T, pipeline entity.Pipeline) *testServer {
	t.Helper()

	db, err := storage.ProvideDB(&config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "handler.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := eventbus.NewEventBus()
	t.Cleanup(bus.Close)

	agent := &mockAgent{}
	rec := recognizer.NewEntityRecognizer(pipeline, &config.NERConfig{ScoreThreshold: 0.9})
	svc := conversation.NewService(
		storage.NewSessionRepository(db),
		storage.NewTranscriptRepository(db),
		storage.NewHistoryRepository(db),
		rec,
		agent,
		bus,
		&config.ChatConfig{MaxMessageLength: 100},
	)

	chatHandler := NewChatHandler(svc)
	entityHandler := NewEntityHandler(rec)
	healthHandler := NewHealthHandler(db, pipeline)

	router := gin.New()
	router.GET("/", NewWidgetHandler().Index)
	router.GET("/health", healthHandler.Health)
	api := router.Group("/api/v1")
	{
		api.POST("/sessions", chatHandler.CreateSession)
		api.GET("/sessions", chatHandler.ListSessions)
		api.DELETE("/sessions/:id", chatHandler.DeleteSession)
		api.GET("/sessions/:id/messages", chatHandler.ListMessages)
		api.POST("/sessions/:id/messages", chatHandler.SendMessage)
		api.GET("/sessions/:id/history", chatHandler.GetHistory)
		api.POST("/entities/locations", entityHandler.DetectLocations)
	}

	return &testServer{router: router, agent: agent}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeData 解析统一响应中的 data 字段
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var session SessionDTO
	decodeData(t, w, &session)
	require.NotEmpty(t, session.ID)
	return session.ID
}

func TestChatHandler_ConversationFlow(t *testing.T) {
	s := setupRouter(t, cityPipeline)
	id := s.createSession(t)

	s.agent.On("Respond", mock.Anything, "What about Paris?", mock.Anything).
		Return("Paris is 18°C and cloudy.", nil).Once()
	s.agent.On("Respond", mock.Anything, "and tomorrow?", mock.MatchedBy(func(turns []chat.Message) bool {
		return len(turns) == 1 && turns[0].Content == "Paris"
	})).Return("Tomorrow looks sunny in Paris.", nil).Once()

	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/messages", SendMessageRequest{Message: "What about Paris?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var first TurnDTO
	decodeData(t, w, &first)
	assert.Equal(t, "Paris is 18°C and cloudy.", first.Assistant.Content)
	assert.True(t, first.HistoryReset)

	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/messages", SendMessageRequest{Message: "and tomorrow?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var second TurnDTO
	decodeData(t, w, &second)
	assert.Equal(t, "Paris", second.Location)
	require.Len(t, second.History, 2)
	assert.Equal(t, "Paris", second.History[0].Content)
	assert.Equal(t, "and tomorrow?", second.History[1].Content)

	// 展示日志
	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []MessageDTO
	decodeData(t, w, &messages)
	require.Len(t, messages, 4)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[3].Role)

	// 对话历史
	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []MessageDTO
	decodeData(t, w, &history)
	assert.Len(t, history, 2)

	s.agent.AssertExpectations(t)
}

func TestChatHandler_SendMessageErrors(t *testing.T) {
	s := setupRouter(t, cityPipeline)
	id := s.createSession(t)

	// 缺少 message
	w := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/messages", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, decodeError(t, w).Code)

	// 只有空白
	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/messages", SendMessageRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeMessageInvalid, decodeError(t, w).Code)

	// 会话不存在
	w = s.do(t, http.MethodPost, "/api/v1/sessions/missing/messages", SendMessageRequest{Message: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeSessionNotFound, decodeError(t, w).Code)

	// 代理失败
	s.agent.On("Respond", mock.Anything, "hi", mock.Anything).Return("", errors.New("quota exceeded")).Once()
	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/messages", SendMessageRequest{Message: "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, response.CodeAgentFailed, decodeError(t, w).Code)
}

func TestChatHandler_ListAndDeleteSessions(t *testing.T) {
	s := setupRouter(t, cityPipeline)
	id := s.createSession(t)

	w := s.do(t, http.MethodPost, "/api/v1/sessions", CreateSessionRequest{Title: "Trip planning"})
	require.Equal(t, http.StatusCreated, w.Code)
	var titled SessionDTO
	decodeData(t, w, &titled)
	assert.Equal(t, "Trip planning", titled.Title)

	w = s.do(t, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sessions []SessionDTO
	decodeData(t, w, &sessions)
	assert.Len(t, sessions, 2)

	w = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEntityHandler_DetectLocations(t *testing.T) {
	s := setupRouter(t, cityPipeline)

	w := s.do(t, http.MethodPost, "/api/v1/entities/locations", DetectLocationsRequest{Text: "flying from Oslo to Rome"})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Threshold float64       `json:"threshold"`
		Locations []LocationDTO `json:"locations"`
	}
	decodeData(t, w, &result)
	assert.Equal(t, 0.9, result.Threshold)
	require.Len(t, result.Locations, 2)
	assert.Equal(t, "Oslo", result.Locations[0].Word)
	assert.Equal(t, "Rome", result.Locations[1].Word)
}

func TestEntityHandler_PipelineDown(t *testing.T) {
	down := entity.PipelineFunc(func(ctx context.Context, text string) ([]entity.Entity, error) {
		return nil, errors.New("connection refused")
	})
	s := setupRouter(t, down)

	w := s.do(t, http.MethodPost, "/api/v1/entities/locations", DetectLocationsRequest{Text: "Oslo"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, response.CodeUnavailable, decodeError(t, w).Code)
}

func TestHealthHandler(t *testing.T) {
	s := setupRouter(t, cityPipeline)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = s.do(t, http.MethodGet, "/health?deep=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}

func TestWidgetHandler_Index(t *testing.T) {
	s := setupRouter(t, cityPipeline)

	w := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "<title>WeatherBot</title>")
	assert.Contains(t, body, "Ask about the weather in any location!")
	assert.Contains(t, body, `placeholder="Ask me anything about the weather!"`)
}

// unreachablePipeline Ping 失败的识别管线
type unreachablePipeline struct {
	entity.PipelineFunc
}

func (unreachablePipeline) Ping(ctx context.Context) error {
	return errors.New("dial tcp: connection refused")
}

func TestHealthHandler_Degraded(t *testing.T) {
	s := setupRouter(t, unreachablePipeline{PipelineFunc: cityPipeline})

	w := s.do(t, http.MethodGet, "/health?deep=true", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"status":"degraded"`)
	assert.Contains(t, body, `"database":"ok"`)
	assert.Contains(t, body, "connection refused")

	// 浅检查不探测依赖
	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
