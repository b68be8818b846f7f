package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port          int    `toml:"port"`
	DBPath        string `toml:"db_path"`
	FileDir       string `toml:"file_dir"`
	ControlSocket string `toml:"control_socket"`
	LogLevel      string `toml:"log_level"`
	ReadTimeout   int    `toml:"read_timeout"`  // seconds
	WriteTimeout  int    `toml:"write_timeout"` // seconds
	MaxConns      int    `toml:"max_conns"`
}

func defaults() *Config {
	return &Config{
		Port:          8888,
		DBPath:        "chatrelay.db",
		FileDir:       "uploads",
		ControlSocket: "/tmp/chatrelay.sock",
		LogLevel:      "info",
		ReadTimeout:   300,
		WriteTimeout:  30,
		MaxConns:      1024,
	}
}

// Load builds the configuration from defaults, then an optional TOML file
// (path argument, or CHATRELAY_CONFIG), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CHATRELAY_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.MaxConns <= 0 {
		return nil, fmt.Errorf("max_conns must be positive, got %d", cfg.MaxConns)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHATRELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("CHATRELAY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CHATRELAY_FILE_DIR"); v != "" {
		cfg.FileDir = v
	}
	if v := os.Getenv("CHATRELAY_CONTROL_SOCKET"); v != "" {
		cfg.ControlSocket = v
	}
	if v := os.Getenv("CHATRELAY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHATRELAY_READ_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			cfg.ReadTimeout = timeout
		}
	}
	if v := os.Getenv("CHATRELAY_WRITE_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if v := os.Getenv("CHATRELAY_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = n
		}
	}
}
