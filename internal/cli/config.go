package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration read from ZLOGIN_* variables.
type Config struct {
	DataDir        string        `envconfig:"DATA_DIR"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"warn"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	UserAgent      string        `envconfig:"USER_AGENT"`
	FrameDepth     int           `envconfig:"FRAME_DEPTH" default:"3"`
	PasswordLength int           `envconfig:"PASSWORD_LENGTH" default:"20"`
}

// LoadConfig reads the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process("zlogin", &c); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if c.DataDir == "" {
		c.DataDir = DataDir()
	}
	return c, nil
}

// Level returns the slog level named by LogLevel, defaulting to warn.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}
