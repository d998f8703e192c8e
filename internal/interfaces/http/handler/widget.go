package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weatherbot/backend/internal/interfaces/http/web"
)

// WidgetHandler 聊天窗口页面
type WidgetHandler struct{}

// NewWidgetHandler 创建聊天窗口处理器
func NewWidgetHandler() *WidgetHandler {
	return &WidgetHandler{}
}

// Index 返回内嵌的聊天窗口页面
func (h *WidgetHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}
