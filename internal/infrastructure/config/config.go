package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/weatherbot/backend/internal/infrastructure/log"
	"gopkg.in/yaml.v3"
)

// 环境变量名（优先级高于配置文件）
const (
	EnvHTTPPort      = "WEATHERBOT_HTTP_PORT"
	EnvDatabasePath  = "WEATHERBOT_DB_PATH"
	EnvOpenAIAPIKey  = "WEATHERBOT_OPENAI_API_KEY"
	EnvOpenAIBaseURL = "WEATHERBOT_OPENAI_BASE_URL"
	EnvOpenAIModel   = "WEATHERBOT_OPENAI_MODEL"
	EnvHFToken       = "WEATHERBOT_HF_TOKEN"
	EnvNERBaseURL    = "WEATHERBOT_NER_BASE_URL"
	EnvNERModel      = "WEATHERBOT_NER_MODEL"
)

// ConfigFileName 数据目录下的配置文件名
const ConfigFileName = "config.yaml"

// Version 服务版本号
const Version = "0.1.0"

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	NER       NERConfig       `yaml:"ner"`
	Agent     AgentConfig     `yaml:"agent"`
	Weather   WeatherConfig   `yaml:"weather"`
	Chat      ChatConfig      `yaml:"chat"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"` // 固定端口，用于单例锁
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 为空时使用数据目录下的 weatherbot.db
	Path string `yaml:"path"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// NERConfig 命名实体识别配置
type NERConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	Token          string        `yaml:"token"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	WaitForModel   bool          `yaml:"wait_for_model"`
	Timeout        time.Duration `yaml:"timeout"`
	CacheSize      int           `yaml:"cache_size"`
}

// AgentConfig 对话代理配置
type AgentConfig struct {
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"api_key"`
	Model              string        `yaml:"model"`
	SystemPrompt       string        `yaml:"system_prompt"`
	MaxToolRounds      int           `yaml:"max_tool_rounds"`
	ContextTokenBudget int           `yaml:"context_token_budget"`
	Timeout            time.Duration `yaml:"timeout"`
}

// WeatherConfig 天气数据源配置
type WeatherConfig struct {
	GeocodingURL string        `yaml:"geocoding_url"`
	ForecastURL  string        `yaml:"forecast_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ChatConfig 对话配置
type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
}

// DiscoveryConfig 局域网服务广播配置
type DiscoveryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	InstanceName string `yaml:"instance_name"`
}

// DefaultSystemPrompt 默认系统提示词
const DefaultSystemPrompt = `You are WeatherBot, a friendly assistant that answers questions about the weather.
Use the get_current_weather tool to look up current conditions for a place.
When the user does not name a place, use the place mentioned earlier in the conversation.
If no place is known, ask the user which location they mean. Keep answers short.`

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":19970",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		NER: NERConfig{
			BaseURL:        "https://router.huggingface.co/hf-inference",
			Model:          "dslim/bert-base-NER-uncased",
			ScoreThreshold: 0.9,
			WaitForModel:   true,
			Timeout:        30 * time.Second,
			CacheSize:      512,
		},
		Agent: AgentConfig{
			BaseURL:            "https://api.openai.com/v1",
			Model:              "gpt-4o-mini",
			SystemPrompt:       DefaultSystemPrompt,
			MaxToolRounds:      4,
			ContextTokenBudget: 1024,
			Timeout:            60 * time.Second,
		},
		Weather: WeatherConfig{
			GeocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
			ForecastURL:  "https://api.open-meteo.com/v1/forecast",
			Timeout:      10 * time.Second,
		},
		Chat: ChatConfig{
			MaxMessageLength: 2000,
		},
		Discovery: DiscoveryConfig{
			Enabled:      false,
			InstanceName: "WeatherBot",
		},
	}
}

// NewConfig 创建配置：默认值 -> 配置文件 -> 环境变量
func NewConfig() *Config {
	path := ConfigPath()
	cfg, err := Load(path)
	if err != nil {
		log.NewModuleLogger("config", "loader").Warn("Failed to load config file, using defaults",
			"path", path,
			"error", err,
		)
		cfg = Default()
	}
	applyEnv(cfg)
	return cfg
}

// ConfigPath 配置文件路径
func ConfigPath() string {
	return filepath.Join(GetDataDir(), ConfigFileName)
}

// Load 读取配置文件并覆盖默认值，文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.NER.ScoreThreshold < 0 || c.NER.ScoreThreshold >= 1 {
		return fmt.Errorf("ner.score_threshold must be in [0, 1), got %v", c.NER.ScoreThreshold)
	}
	if c.Agent.MaxToolRounds <= 0 {
		return fmt.Errorf("agent.max_tool_rounds must be positive, got %d", c.Agent.MaxToolRounds)
	}
	if c.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("chat.max_message_length must be positive, got %d", c.Chat.MaxMessageLength)
	}
	return nil
}

// applyEnv 环境变量覆盖
func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Server.HTTPPort, EnvHTTPPort)
	setFromEnv(&cfg.Database.Path, EnvDatabasePath)
	setFromEnv(&cfg.Agent.APIKey, EnvOpenAIAPIKey)
	setFromEnv(&cfg.Agent.BaseURL, EnvOpenAIBaseURL)
	setFromEnv(&cfg.Agent.Model, EnvOpenAIModel)
	setFromEnv(&cfg.NER.Token, EnvHFToken)
	setFromEnv(&cfg.NER.BaseURL, EnvNERBaseURL)
	setFromEnv(&cfg.NER.Model, EnvNERModel)

	if port := cfg.Server.HTTPPort; port != "" && port[0] != ':' {
		if _, err := strconv.Atoi(port); err == nil {
			cfg.Server.HTTPPort = ":" + port
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewWebSocketConfig 创建 WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}

// NewNERConfig 创建 NER 配置
func NewNERConfig(cfg *Config) *NERConfig {
	return &cfg.NER
}

// NewAgentConfig 创建对话代理配置
func NewAgentConfig(cfg *Config) *AgentConfig {
	return &cfg.Agent
}

// NewWeatherConfig 创建天气配置
func NewWeatherConfig(cfg *Config) *WeatherConfig {
	return &cfg.Weather
}

// NewDiscoveryConfig 创建服务广播配置
func NewDiscoveryConfig(cfg *Config) *DiscoveryConfig {
	return &cfg.Discovery
}

// NewChatConfig 创建对话配置
func NewChatConfig(cfg *Config) *ChatConfig {
	return &cfg.Chat
}
