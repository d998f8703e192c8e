package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	"github.com/weatherbot/backend/internal/interfaces/http/response"
)

// writeServiceError 将应用层错误映射为 HTTP 响应
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "会话不存在")
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeMessageInvalid, "消息无效", err.Error())
	case errors.Is(err, chat.ErrAgentFailed):
		response.ErrorWithDetail(c, http.StatusBadGateway, response.CodeAgentFailed, "天气助手暂时无法回复", err.Error())
	default:
		log.FromContext(c.Request.Context(), log.NewModuleLogger("http", "handler")).Error("Request failed",
			"path", c.FullPath(),
			"error", err,
		)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "服务器内部错误")
	}
}
