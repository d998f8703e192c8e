package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,               // 提供数据库连接
	NewSessionRepository,    // 会话仓储
	NewTranscriptRepository, // 展示日志仓储
	NewHistoryRepository,    // 对话历史仓储
)
