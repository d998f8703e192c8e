package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weatherbot/backend/internal/application/conversation"
	"github.com/weatherbot/backend/internal/interfaces/http/response"
)

// ChatHandler 会话与消息处理器
type ChatHandler struct {
	svc *conversation.Service
}

// NewChatHandler 创建会话处理器
func NewChatHandler(svc *conversation.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateSession 创建会话
// @Summary 创建会话
// @Tags 会话
// @Accept json
// @Produce json
// @Param body body CreateSessionRequest false "会话标题"
// @Success 201 {object} response.Response
// @Router /sessions [post]
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// 允许空请求体
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeBadRequest, "请求参数错误", err.Error())
			return
		}
	}

	session, err := h.svc.StartSession(c.Request.Context(), req.Title)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Created(c, toSessionDTO(session))
}

// ListSessions 获取会话列表
// @Summary 获取会话列表
// @Tags 会话
// @Produce json
// @Success 200 {object} response.Response
// @Router /sessions [get]
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.svc.ListSessions(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	dtos := make([]*SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		dtos = append(dtos, toSessionDTO(s))
	}
	response.Success(c, dtos)
}

// DeleteSession 删除会话
// @Summary 删除会话
// @Tags 会话
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /sessions/{id} [delete]
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.svc.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ListMessages 获取会话的展示日志
// @Summary 获取会话消息
// @Tags 消息
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /sessions/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.svc.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	dtos := make([]MessageDTO, 0, len(messages))
	for _, m := range messages {
		dtos = append(dtos, ToMessageDTO(*m))
	}
	response.Success(c, dtos)
}

// SendMessage 发送消息并获取回复
// @Summary 发送消息
// @Tags 消息
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param body body SendMessageRequest true "用户消息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /sessions/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeBadRequest, "请求参数错误", err.Error())
		return
	}

	turn, err := h.svc.Send(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, toTurnDTO(turn))
}

// GetHistory 获取对话历史（模型上下文）
// @Summary 获取对话历史
// @Tags 消息
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Router /sessions/{id}/history [get]
func (h *ChatHandler) GetHistory(c *gin.Context) {
	history, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, toMessageDTOs(history.Messages()))
}
