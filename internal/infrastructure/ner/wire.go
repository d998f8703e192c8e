package ner

import "github.com/google/wire"

// ProviderSet NER 基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	ProvidePipeline,
)
