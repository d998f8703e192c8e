package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weatherbot/backend/internal/application/recognizer"
	"github.com/weatherbot/backend/internal/interfaces/http/response"
)

// EntityHandler 地点识别处理器
type EntityHandler struct {
	recognizer *recognizer.EntityRecognizer
}

// NewEntityHandler 创建地点识别处理器
func NewEntityHandler(r *recognizer.EntityRecognizer) *EntityHandler {
	return &EntityHandler{recognizer: r}
}

// DetectLocations 返回文本中识别出的地点
// @Summary 识别地点
// @Tags 实体
// @Accept json
// @Produce json
// @Param body body DetectLocationsRequest true "待识别文本"
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /entities/locations [post]
func (h *EntityHandler) DetectLocations(c *gin.Context) {
	var req DetectLocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeBadRequest, "请求参数错误", err.Error())
		return
	}

	locations, err := h.recognizer.Locations(c.Request.Context(), req.Text)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusServiceUnavailable, response.CodeUnavailable, "实体识别服务不可用", err.Error())
		return
	}

	response.Success(c, gin.H{
		"threshold": h.recognizer.Threshold(),
		"locations": toLocationDTOs(locations),
	})
}
