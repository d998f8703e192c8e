package handler

import (
	"github.com/weatherbot/backend/internal/application/conversation"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/domain/entity"
)

// SessionDTO 会话 DTO
type SessionDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"` // Unix 毫秒时间戳
	UpdatedAt int64  `json:"updatedAt"` // Unix 毫秒时间戳
}

// MessageDTO 消息 DTO
type MessageDTO struct {
	ID        string `json:"id,omitempty"`
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// TurnDTO 一轮对话的结果
type TurnDTO struct {
	User         MessageDTO   `json:"user"`
	Assistant    MessageDTO   `json:"assistant"`
	Location     string       `json:"location,omitempty"`
	HistoryReset bool         `json:"historyReset"`
	History      []MessageDTO `json:"history"`
}

// LocationDTO 识别出的地点
type LocationDTO struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// DetectLocationsRequest 地点识别请求
type DetectLocationsRequest struct {
	Text string `json:"text" binding:"required"`
}

// WSEvent WebSocket 推送的事件
type WSEvent struct {
	Type    string      `json:"type"`
	Message *MessageDTO `json:"message,omitempty"`
	// Location 历史重置事件中重新播种的地点
	Location string `json:"location,omitempty"`
}

func toSessionDTO(s *chat.Session) *SessionDTO {
	return &SessionDTO{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt.UnixMilli(),
		UpdatedAt: s.UpdatedAt.UnixMilli(),
	}
}

// ToMessageDTO 将领域消息转换为 DTO
func ToMessageDTO(m chat.Message) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

func toMessageDTOs(messages []chat.Message) []MessageDTO {
	dtos := make([]MessageDTO, 0, len(messages))
	for _, m := range messages {
		dtos = append(dtos, ToMessageDTO(m))
	}
	return dtos
}

func toTurnDTO(turn *conversation.Turn) *TurnDTO {
	return &TurnDTO{
		User:         ToMessageDTO(turn.User),
		Assistant:    ToMessageDTO(turn.Assistant),
		Location:     turn.Location,
		HistoryReset: turn.HistoryReset,
		History:      toMessageDTOs(turn.History),
	}
}

func toLocationDTOs(entities []entity.Entity) []LocationDTO {
	dtos := make([]LocationDTO, 0, len(entities))
	for _, e := range entities {
		dtos = append(dtos, LocationDTO{Word: e.Word, Score: e.Score, Start: e.Start, End: e.End})
	}
	return dtos
}
