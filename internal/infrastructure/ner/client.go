// Package ner 通过 HTTP 调用预训练的 token classification 模型完成命名实体识别
package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/weatherbot/backend/internal/domain/entity"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

var (
	// ErrModelLoading 模型仍在加载（推理服务返回 503）
	ErrModelLoading = errors.New("ner model is loading")
	// ErrInferenceFailed 推理请求失败
	ErrInferenceFailed = errors.New("ner inference failed")
)

// InferenceClient Hugging Face Inference API 兼容的 NER 客户端
type InferenceClient struct {
	client *resty.Client
	model  string
	wait   bool
	logger *slog.Logger
}

// inferenceRequest 推理请求体
type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// inferenceError 推理服务错误响应
type inferenceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}

// NewInferenceClient 创建 NER 推理客户端
func NewInferenceClient(cfg *config.NERConfig) *InferenceClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &InferenceClient{
		client: client,
		model:  cfg.Model,
		wait:   cfg.WaitForModel,
		logger: log.NewModuleLogger("ner", "client"),
	}
}

// Recognize 识别文本中的命名实体（aggregation_strategy=simple）
func (c *InferenceClient) Recognize(ctx context.Context, text string) ([]entity.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(inferenceRequest{
			Inputs:     text,
			Parameters: inferenceParameters{AggregationStrategy: "simple"},
			Options:    inferenceOptions{WaitForModel: c.wait},
		}).
		Post("/models/" + c.model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	if resp.StatusCode() == http.StatusServiceUnavailable {
		var apiErr inferenceError
		_ = json.Unmarshal(resp.Body(), &apiErr)
		c.logger.Warn("NER model is loading",
			"model", c.model,
			"estimated_time", apiErr.EstimatedTime,
		)
		return nil, ErrModelLoading
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrInferenceFailed, resp.StatusCode(), resp.String())
	}

	entities, err := decodeEntities(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	c.logger.Debug("NER inference completed",
		"model", c.model,
		"entities", len(entities),
	)
	return entities, nil
}

// Ping 检查推理服务是否可达
func (c *InferenceClient) Ping(ctx context.Context) error {
	_, err := c.Recognize(ctx, "Paris")
	return err
}

// decodeEntities 解析推理结果
// 单条输入返回 [{...}]，部分部署会按批次包一层 [[{...}]]
func decodeEntities(body []byte) ([]entity.Entity, error) {
	var flat []entity.Entity
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}

	var nested [][]entity.Entity
	if err := json.Unmarshal(body, &nested); err != nil {
		return nil, fmt.Errorf("failed to decode entities: %w", err)
	}
	if len(nested) == 0 {
		return nil, nil
	}
	return nested[0], nil
}

// 编译时检查接口实现
var _ entity.Pipeline = (*InferenceClient)(nil)
