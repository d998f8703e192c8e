package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ResetDataDir()
	t.Setenv(EnvDataDir, dir)
	t.Cleanup(ResetDataDir)
	return dir
}

func TestNewConfig_Defaults(t *testing.T) {
	useTempDataDir(t)
	t.Setenv(EnvHTTPPort, "")

	cfg := NewConfig()
	assert.Equal(t, ":19970", cfg.Server.HTTPPort)
	assert.Equal(t, "dslim/bert-base-NER-uncased", cfg.NER.Model)
	assert.Equal(t, 0.9, cfg.NER.ScoreThreshold)
	assert.Equal(t, 4, cfg.Agent.MaxToolRounds)
	assert.Equal(t, DefaultSystemPrompt, cfg.Agent.SystemPrompt)
}

func TestNewConfig_EnvOverride(t *testing.T) {
	useTempDataDir(t)
	t.Setenv(EnvHTTPPort, "29970")
	t.Setenv(EnvOpenAIModel, "gpt-4o")
	t.Setenv(EnvHFToken, "hf_test")

	cfg := NewConfig()
	assert.Equal(t, ":29970", cfg.Server.HTTPPort, "纯数字端口应补全冒号")
	assert.Equal(t, "gpt-4o", cfg.Agent.Model)
	assert.Equal(t, "hf_test", cfg.NER.Token)
}

func TestNewConfig_FileThenEnv(t *testing.T) {
	dir := useTempDataDir(t)
	content := `
server:
  http_port: ":18000"
ner:
  score_threshold: 0.8
  timeout: 5s
agent:
  model: llama3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))
	t.Setenv(EnvHTTPPort, "")
	t.Setenv(EnvOpenAIModel, "gpt-4o")

	cfg := NewConfig()
	assert.Equal(t, ":18000", cfg.Server.HTTPPort)
	assert.Equal(t, 0.8, cfg.NER.ScoreThreshold)
	assert.Equal(t, 5*time.Second, cfg.NER.Timeout)
	assert.Equal(t, "gpt-4o", cfg.Agent.Model, "环境变量优先于配置文件")
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, "dslim/bert-base-NER-uncased", cfg.NER.Model)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	require.NoError(t, os.WriteFile(path, []byte("ner: [broken"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("ner:\n  score_threshold: 1.5\n"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "score_threshold")
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestNewConfig_InvalidFileFallsBack(t *testing.T) {
	dir := useTempDataDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("::::"), 0644))
	t.Setenv(EnvHTTPPort, "")

	cfg := NewConfig()
	assert.Equal(t, ":19970", cfg.Server.HTTPPort)
}
