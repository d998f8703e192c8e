// Package entity 定义命名实体识别（NER）的结果模型
package entity

import "context"

// Group 实体类别
type Group string

// 预训练模型（CoNLL-2003 标签集）输出的实体类别
const (
	GroupLocation     Group = "LOC"
	GroupPerson       Group = "PER"
	GroupOrganization Group = "ORG"
	GroupMisc         Group = "MISC"
)

// DefaultScoreThreshold 判定为地点实体的默认置信度阈值（严格大于）
const DefaultScoreThreshold = 0.9

// Entity 聚合后的命名实体
type Entity struct {
	Group Group   `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// IsLocation 是否为置信度高于阈值的地点实体
func (e Entity) IsLocation(threshold float64) bool {
	return e.Group == GroupLocation && e.Score > threshold
}

// Pipeline NER 推理管线（由预训练模型提供）
type Pipeline interface {
	// Recognize 识别文本中的命名实体，按出现顺序返回
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// PipelineFunc 函数类型的 Pipeline 适配器
type PipelineFunc func(ctx context.Context, text string) ([]Entity, error)

// Recognize 实现 Pipeline 接口
func (f PipelineFunc) Recognize(ctx context.Context, text string) ([]Entity, error) {
	return f(ctx, text)
}
