// Package conversation 编排一轮对话：记录消息、维护对话历史并调用对话代理
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/domain/events"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// LocationDetector 地点检测能力（由 recognizer 提供）
type LocationDetector interface {
	LocationEntityDetected(ctx context.Context, text string) (bool, error)
	FindLocation(ctx context.Context, messages []chat.Message) (string, error)
}

// Turn 一轮对话的结果
type Turn struct {
	User      chat.Message
	Assistant chat.Message
	// Location 历史以该地点重新播种时非空
	Location string
	// HistoryReset 本轮是否清空过对话历史
	HistoryReset bool
	// History 本轮结束后的对话历史
	History []chat.Message
}

// Service 对话应用服务
type Service struct {
	sessions    chat.SessionRepository
	transcripts chat.TranscriptRepository
	histories   chat.HistoryRepository
	detector    LocationDetector
	agent       chat.Agent
	bus         events.EventBus
	maxRunes    int
	locks       sync.Map // sessionID -> *sync.Mutex
	logger      *slog.Logger
}

// NewService 创建对话服务
func NewService(
	sessions chat.SessionRepository,
	transcripts chat.TranscriptRepository,
	histories chat.HistoryRepository,
	detector LocationDetector,
	agent chat.Agent,
	bus events.EventBus,
	cfg *config.ChatConfig,
) *Service {
	return &Service{
		sessions:    sessions,
		transcripts: transcripts,
		histories:   histories,
		detector:    detector,
		agent:       agent,
		bus:         bus,
		maxRunes:    cfg.MaxMessageLength,
		logger:      log.NewModuleLogger("conversation", "service"),
	}
}

// StartSession 创建新会话
func (s *Service) StartSession(ctx context.Context, title string) (*chat.Session, error) {
	now := time.Now()
	session := &chat.Session{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Session started", "session_id", session.ID)
	return session, nil
}

// Send 处理用户输入：
// 文本中出现地点时清空历史；否则在历史中查找地点，找到则清空并以该地点重新播种。
// 随后把输入写入历史并交给对话代理生成回复。
func (s *Service) Send(ctx context.Context, sessionID, text string) (*Turn, error) {
	// 原文交给历史与代理，空白只用于判空
	query := text
	if strings.TrimSpace(query) == "" {
		return nil, chat.ErrEmptyMessage
	}
	if s.maxRunes > 0 && utf8.RuneCountInString(query) > s.maxRunes {
		return nil, fmt.Errorf("%w: limit is %d characters", chat.ErrMessageTooLong, s.maxRunes)
	}

	ctx = log.WithSessionID(ctx, sessionID)
	logger := log.FromContext(ctx, s.logger)

	session, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 1. 展示日志记录用户输入
	userMsg, err := s.appendTranscript(ctx, sessionID, chat.RoleUser, query)
	if err != nil {
		return nil, err
	}
	session.Touch(strings.TrimSpace(query))
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	history, err := s.histories.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// 2. 根据地点检测结果维护对话历史
	turn := &Turn{User: *userMsg}
	detected, err := s.detector.LocationEntityDetected(ctx, query)
	if err != nil {
		logger.Warn("Location detection failed, treating as no location", "error", err)
		detected = false
	}

	if detected {
		history.Clear()
		turn.HistoryReset = true
	} else {
		location, err := s.detector.FindLocation(ctx, history.Messages())
		if err != nil {
			logger.Warn("Location lookup in history failed", "error", err)
			location = ""
		}
		if location != "" {
			history.Clear()
			history.AddUserMessage(location)
			turn.HistoryReset = true
			turn.Location = location
		}
	}

	// 3. 代理的上下文是本轮之前的历史
	prior := history.Messages()
	history.AddUserMessage(query)
	if err := s.histories.Save(ctx, history); err != nil {
		return nil, err
	}
	turn.History = history.Messages()

	if turn.HistoryReset {
		logger.Debug("History reset",
			"seeded_location", turn.Location,
			"history_len", history.Len(),
		)
		s.bus.Publish(&events.HistoryResetEvent{
			SessionID:      sessionID,
			SeededLocation: turn.Location,
			EventTime:      time.Now(),
		})
	}

	// 4. 调用对话代理
	start := time.Now()
	reply, err := s.agent.Respond(ctx, query, prior)
	if err != nil {
		logger.Error("Agent failed to respond",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %w", chat.ErrAgentFailed, err)
	}

	// 5. 展示日志记录回复
	assistantMsg, err := s.appendTranscript(ctx, sessionID, chat.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}
	turn.Assistant = *assistantMsg

	logger.Info("Turn completed",
		"history_reset", turn.HistoryReset,
		"history_len", len(turn.History),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return turn, nil
}

// Transcript 获取会话的展示日志
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]*chat.Message, error) {
	if _, err := s.mustSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.transcripts.FindBySession(ctx, sessionID)
}

// History 获取会话的对话历史
func (s *Service) History(ctx context.Context, sessionID string) (*chat.History, error) {
	if _, err := s.mustSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.histories.Load(ctx, sessionID)
}

// GetSession 获取会话
func (s *Service) GetSession(ctx context.Context, sessionID string) (*chat.Session, error) {
	return s.mustSession(ctx, sessionID)
}

// ListSessions 列出全部会话
func (s *Service) ListSessions(ctx context.Context) ([]*chat.Session, error) {
	return s.sessions.FindAll(ctx)
}

// DeleteSession 删除会话及其消息
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	_, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.locks.Delete(sessionID)

	s.logger.Info("Session deleted", "session_id", sessionID)
	return nil
}

func (s *Service) mustSession(ctx context.Context, sessionID string) (*chat.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, chat.ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) appendTranscript(ctx context.Context, sessionID string, role chat.Role, content string) (*chat.Message, error) {
	msg := &chat.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.transcripts.Append(ctx, msg); err != nil {
		return nil, err
	}

	s.bus.Publish(&events.MessageEvent{
		SessionID: sessionID,
		Message:   *msg,
		EventTime: msg.CreatedAt,
	})
	return msg, nil
}

// lockSession 加会话锁并确认会话存在，同一会话的请求串行处理
// 会话不存在时不保留锁，未知 ID 的请求不会在 locks 中留下条目
func (s *Service) lockSession(ctx context.Context, sessionID string) (*chat.Session, func(), error) {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	session, err := s.mustSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			s.locks.CompareAndDelete(sessionID, mu)
		}
		mu.Unlock()
		return nil, nil, err
	}
	return session, mu.Unlock, nil
}
