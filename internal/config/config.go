package config

import (
	"os"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LLM       LLMConfig          `mapstructure:"llm"`
	Storage   StorageConfig      `mapstructure:"storage"`
	Pricing   map[string]float64 `mapstructure:"pricing"` // model -> USD per 1k tokens
	Server    ServerConfig       `mapstructure:"server"`
	Log       LogConfig          `mapstructure:"log"`
	Telemetry TelemetryConfig    `mapstructure:"telemetry"`
}

// LLMConfig holds the completion endpoint configuration
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// StorageConfig holds the persistence configuration
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // file, sqlite, redis, memory
	Path        string `mapstructure:"path"`   // file path or sqlite DB path
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisKey    string `mapstructure:"redis_key"`
	RedisTTLMin int    `mapstructure:"redis_ttl_min"` // minutes, 0 = no expiry
	DebounceMs  int    `mapstructure:"debounce_ms"`
	MaxSessions int    `mapstructure:"max_sessions"` // retained after a quota failure
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty = stdout only
}

// TelemetryConfig holds the OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Load loads the configuration from config.yaml in the working
// directory, or from the file named by CONFIG_PATH when set. Missing
// keys fall back to defaults; a missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "sessions.json")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_key", "chatstore:sessions")
	v.SetDefault("storage.debounce_ms", 300)
	v.SetDefault("storage.max_sessions", 10)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")

	v.SetDefault("log.level", "info")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dir", "logs")
}
