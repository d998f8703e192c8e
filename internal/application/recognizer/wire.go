package recognizer

import "github.com/google/wire"

// ProviderSet 地点识别 ProviderSet
var ProviderSet = wire.NewSet(
	NewEntityRecognizer,
)
