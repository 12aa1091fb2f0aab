package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines client configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	URL       string        `yaml:"url"`
	TokenPage string        `yaml:"token_page"`
	Timeout   time.Duration `yaml:"timeout"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing overrides it. DB and
// log paths live under the user config directory when it can be resolved.
func Default() Config {
	cfg := Config{
		Server: ServerConfig{
			URL:       "http://localhost:8080",
			TokenPage: "/",
			Timeout:   15 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.DB.Path = filepath.Join(dir, "caltrack", "caltrack.db")
		cfg.Log.Path = filepath.Join(dir, "caltrack", "caltrack.log")
	}
	return cfg
}

// Load reads configuration from an optional YAML file and environment
// variables. path wins over CALTRACK_CONFIG_PATH when both are set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CALTRACK_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if url := os.Getenv("CALTRACK_SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}
	if page := os.Getenv("CALTRACK_TOKEN_PAGE"); page != "" {
		cfg.Server.TokenPage = page
	}
	if timeoutStr := os.Getenv("CALTRACK_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CALTRACK_TIMEOUT: %w", err)
		}
		cfg.Server.Timeout = timeout
	}
	if dbPath := os.Getenv("CALTRACK_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CALTRACK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("CALTRACK_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}

	if cfg.Server.Timeout <= 0 {
		return Config{}, fmt.Errorf("server timeout must be positive, got %s", cfg.Server.Timeout)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
