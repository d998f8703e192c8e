package ner

import (
	"context"
	"sync"

	"github.com/weatherbot/backend/internal/domain/entity"
	"github.com/weatherbot/backend/internal/infrastructure/config"
)

// CachedPipeline 按原文缓存识别结果
// 查找历史地点时会对同样的历史消息重复识别，缓存避免重复的远程调用
type CachedPipeline struct {
	next       entity.Pipeline
	maxEntries int

	mu      sync.RWMutex
	entries map[string][]entity.Entity
}

// NewCachedPipeline 创建带缓存的管线，缓存满时整体清空
func NewCachedPipeline(next entity.Pipeline, maxEntries int) *CachedPipeline {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &CachedPipeline{
		next:       next,
		maxEntries: maxEntries,
		entries:    make(map[string][]entity.Entity),
	}
}

// Recognize 实现 entity.Pipeline，错误结果不缓存
func (p *CachedPipeline) Recognize(ctx context.Context, text string) ([]entity.Entity, error) {
	p.mu.RLock()
	cached, ok := p.entries[text]
	p.mu.RUnlock()
	if ok {
		return cloneEntities(cached), nil
	}

	entities, err := p.next.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if len(p.entries) >= p.maxEntries {
		p.entries = make(map[string][]entity.Entity)
	}
	p.entries[text] = cloneEntities(entities)
	p.mu.Unlock()

	return entities, nil
}

// Len 当前缓存条数
func (p *CachedPipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

func cloneEntities(in []entity.Entity) []entity.Entity {
	if in == nil {
		return nil
	}
	out := make([]entity.Entity, len(in))
	copy(out, in)
	return out
}

// ProvidePipeline 创建默认 NER 管线（推理客户端 + 缓存）
func ProvidePipeline(cfg *config.NERConfig) entity.Pipeline {
	return NewCachedPipeline(NewInferenceClient(cfg), cfg.CacheSize)
}

var _ entity.Pipeline = (*CachedPipeline)(nil)

// Ping 透传到底层管线的连通性检查
func (p *CachedPipeline) Ping(ctx context.Context) error {
	if pinger, ok := p.next.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
