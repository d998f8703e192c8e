// Package recognizer 实现基于 NER 的地点检测策略
package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/domain/entity"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
)

// EntityRecognizer 从文本中检测和提取地点
type EntityRecognizer struct {
	pipeline  entity.Pipeline
	threshold atomic.Uint64 // float64 bits，支持配置热更新
	logger    *slog.Logger
}

// NewEntityRecognizer 创建地点识别器
func NewEntityRecognizer(pipeline entity.Pipeline, cfg *config.NERConfig) *EntityRecognizer {
	r := &EntityRecognizer{
		pipeline: pipeline,
		logger:   log.NewModuleLogger("recognizer", "entity"),
	}
	threshold := entity.DefaultScoreThreshold
	if cfg != nil {
		threshold = cfg.ScoreThreshold
	}
	r.SetThreshold(threshold)
	return r
}

// Threshold 当前置信度阈值
func (r *EntityRecognizer) Threshold() float64 {
	return math.Float64frombits(r.threshold.Load())
}

// SetThreshold 更新置信度阈值
func (r *EntityRecognizer) SetThreshold(threshold float64) {
	r.threshold.Store(math.Float64bits(threshold))
}

// LocationEntityDetected 文本中是否出现置信度高于阈值的地点
func (r *EntityRecognizer) LocationEntityDetected(ctx context.Context, text string) (bool, error) {
	entities, err := r.pipeline.Recognize(ctx, text)
	if err != nil {
		return false, fmt.Errorf("failed to recognize entities: %w", err)
	}

	threshold := r.Threshold()
	for _, e := range entities {
		if e.IsLocation(threshold) {
			return true, nil
		}
	}
	return false, nil
}

// FindLocation 按顺序扫描消息，返回第一个地点实体的词；没有时返回空字符串
// 命中第一个地点实体即停止，即使其词为空
func (r *EntityRecognizer) FindLocation(ctx context.Context, messages []chat.Message) (string, error) {
	for _, msg := range messages {
		location, found, err := r.firstLocation(ctx, msg.Content)
		if err != nil {
			return "", err
		}
		if found {
			r.logger.Debug("Location found in history",
				"location", location,
				"message_id", msg.ID,
			)
			return location, nil
		}
	}
	return "", nil
}

// Locations 返回文本中全部符合阈值的地点实体
func (r *EntityRecognizer) Locations(ctx context.Context, text string) ([]entity.Entity, error) {
	entities, err := r.pipeline.Recognize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to recognize entities: %w", err)
	}

	threshold := r.Threshold()
	locations := make([]entity.Entity, 0, len(entities))
	for _, e := range entities {
		if e.IsLocation(threshold) {
			locations = append(locations, e)
		}
	}
	return locations, nil
}

func (r *EntityRecognizer) firstLocation(ctx context.Context, text string) (string, bool, error) {
	entities, err := r.pipeline.Recognize(ctx, text)
	if err != nil {
		return "", false, fmt.Errorf("failed to recognize entities: %w", err)
	}

	threshold := r.Threshold()
	for _, e := range entities {
		if e.IsLocation(threshold) {
			return e.Word, true, nil
		}
	}
	return "", false, nil
}
