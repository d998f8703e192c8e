package infrastructure

import (
	"github.com/google/wire"
	"github.com/weatherbot/backend/internal/infrastructure/agent"
	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/discovery"
	"github.com/weatherbot/backend/internal/infrastructure/eventbus"
	"github.com/weatherbot/backend/internal/infrastructure/ner"
	"github.com/weatherbot/backend/internal/infrastructure/storage"
	"github.com/weatherbot/backend/internal/infrastructure/weather"
	"github.com/weatherbot/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	eventbus.ProviderSet,
	websocket.ProviderSet,
	ner.ProviderSet,
	weather.ProviderSet,
	agent.ProviderSet,
	discovery.ProviderSet,
)
