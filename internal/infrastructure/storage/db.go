package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weatherbot/backend/internal/infrastructure/config"
	"github.com/weatherbot/backend/internal/infrastructure/log"
	_ "modernc.org/sqlite"
)

// DBFileName 默认数据库文件名
const DBFileName = "weatherbot.db"

// GetDBPath 获取数据库路径，未配置时使用数据目录下的 weatherbot.db
func GetDBPath(cfg *config.DatabaseConfig) string {
	if cfg != nil && cfg.Path != "" {
		return cfg.Path
	}
	return filepath.Join(config.GetDataDir(), DBFileName)
}

// OpenDB 打开数据库连接并启用 WAL 与外键约束
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// pragma 通过 DSN 下发，对连接池中的每个连接生效
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ProvideDB 提供数据库连接并初始化表结构
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := GetDBPath(cfg)
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	log.NewModuleLogger("storage", "db").Info("Database opened", "path", dbPath)
	return db, nil
}

// InitSchema 初始化会话、展示日志与对话历史表
func InitSchema(db *sql.DB) error {
	createSQL := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);

	CREATE TABLE IF NOT EXISTS transcript_messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript_messages(session_id, seq);

	CREATE TABLE IF NOT EXISTS history_messages (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, position)
	);`

	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
