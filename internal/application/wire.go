package application

import (
	"github.com/google/wire"
	"github.com/weatherbot/backend/internal/application/conversation"
	"github.com/weatherbot/backend/internal/application/recognizer"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	recognizer.ProviderSet,
	conversation.ProviderSet,
)
