package discovery

import "github.com/google/wire"

// ProviderSet 服务广播 ProviderSet
var ProviderSet = wire.NewSet(
	NewAdvertiser,
)
