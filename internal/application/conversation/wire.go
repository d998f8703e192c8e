package conversation

import (
	"github.com/google/wire"
	"github.com/weatherbot/backend/internal/application/recognizer"
)

// ProviderSet 对话服务 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
	wire.Bind(new(LocationDetector), new(*recognizer.EntityRecognizer)),
)
