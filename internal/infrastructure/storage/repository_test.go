package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherbot/backend/internal/domain/chat"
	"github.com/weatherbot/backend/internal/infrastructure/config"
)

// setupTestDB 创建临时测试数据库
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := ProvideDB(&config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createSession(t *testing.T, db *sql.DB, title string) *chat.Session {
	t.Helper()
	session := &chat.Session{Title: title}
	require.NoError(t, NewSessionRepository(db).Save(context.Background(), session))
	return session
}

func TestSessionRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := &chat.Session{Title: "Paris trip"}
	require.NoError(t, repo.Save(ctx, session))
	assert.NotEmpty(t, session.ID, "保存后应自动生成 ID")
	assert.False(t, session.CreatedAt.IsZero())

	found, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Paris trip", found.Title)
	assert.Equal(t, session.CreatedAt.UnixMilli(), found.CreatedAt.UnixMilli())

	// 更新
	session.Title = "Renamed"
	session.UpdatedAt = session.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, session))

	found, err = repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Title)

	missing, err := repo.FindByID(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepository_FindAllOrderedByUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	base := time.Now()
	older := &chat.Session{Title: "older", CreatedAt: base, UpdatedAt: base}
	newer := &chat.Session{Title: "newer", CreatedAt: base, UpdatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].Title)
	assert.Equal(t, "older", all[1].Title)
}

func TestTranscriptRepository_AppendKeepsOrder(t *testing.T) {
	db := setupTestDB(t)
	session := createSession(t, db, "s")
	repo := NewTranscriptRepository(db)
	ctx := context.Background()

	// 同一毫秒写入也按写入顺序返回
	now := time.Now()
	for _, m := range []*chat.Message{
		{SessionID: session.ID, Role: chat.RoleUser, Content: "weather in rome?", CreatedAt: now},
		{SessionID: session.ID, Role: chat.RoleAssistant, Content: "Sunny, 24°C.", CreatedAt: now},
		{SessionID: session.ID, Role: chat.RoleUser, Content: "and tomorrow?", CreatedAt: now},
	} {
		require.NoError(t, repo.Append(ctx, m))
		assert.NotEmpty(t, m.ID)
	}

	messages, err := repo.FindBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "weather in rome?", messages[0].Content)
	assert.Equal(t, chat.RoleAssistant, messages[1].Role)
	assert.Equal(t, "and tomorrow?", messages[2].Content)

	empty, err := repo.FindBySession(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTranscriptRepository_RequiresSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepository(db)

	err := repo.Append(context.Background(), &chat.Message{SessionID: "ghost", Role: chat.RoleUser, Content: "hi"})
	assert.Error(t, err, "外键约束应拒绝不存在的会话")
}

func TestHistoryRepository_SaveReplacesWhole(t *testing.T) {
	db := setupTestDB(t)
	session := createSession(t, db, "s")
	repo := NewHistoryRepository(db)
	ctx := context.Background()

	history, err := repo.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, history.Len())

	history.AddUserMessage("what's it like in oslo?")
	history.AddUserMessage("windy?")
	require.NoError(t, repo.Save(ctx, history))

	loaded, err := repo.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"what's it like in oslo?", "windy?"}, loaded.Contents())
	for _, m := range loaded.Messages() {
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, chat.RoleUser, m.Role)
	}

	// 重置并以地点重新播种
	loaded.Clear()
	loaded.AddUserMessage("oslo")
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"oslo"}, reloaded.Contents())
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	session := createSession(t, db, "s")
	ctx := context.Background()

	transcripts := NewTranscriptRepository(db)
	histories := NewHistoryRepository(db)

	require.NoError(t, transcripts.Append(ctx, &chat.Message{SessionID: session.ID, Role: chat.RoleUser, Content: "hi"}))
	history := chat.NewHistory(session.ID)
	history.AddUserMessage("hi")
	require.NoError(t, histories.Save(ctx, history))

	require.NoError(t, NewSessionRepository(db).Delete(ctx, session.ID))

	messages, err := transcripts.FindBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	loaded, err := histories.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestGetDBPath(t *testing.T) {
	assert.Equal(t, "/tmp/custom.db", GetDBPath(&config.DatabaseConfig{Path: "/tmp/custom.db"}))

	t.Setenv(config.EnvDataDir, "/tmp/wb-data")
	config.ResetDataDir()
	t.Cleanup(config.ResetDataDir)
	assert.Equal(t, filepath.Join("/tmp/wb-data", DBFileName), GetDBPath(nil))
}
