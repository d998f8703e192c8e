package weather

import "github.com/google/wire"

// ProviderSet 天气 ProviderSet
var ProviderSet = wire.NewSet(
	NewOpenMeteoProvider,
	wire.Bind(new(Provider), new(*OpenMeteoProvider)),
)
