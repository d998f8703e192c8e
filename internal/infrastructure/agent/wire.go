package agent

import (
	"github.com/google/wire"
	"github.com/weatherbot/backend/internal/domain/chat"
)

// ProviderSet 对话代理 ProviderSet
var ProviderSet = wire.NewSet(
	NewChatAgent,
	wire.Bind(new(chat.Agent), new(*ChatAgent)),
)
