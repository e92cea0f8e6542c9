package config

import (
	"fmt"
	"os"
	"time"

	"pingrank/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	// AdminToken is the capability required by mutating endpoints. It is
	// handed to the boundary explicitly via config rather than read from
	// ambient state.
	AdminToken string

	CommentaryURL     string
	CommentaryAPIKey  string
	CommentaryTimeout time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "pingrank.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
		CommentaryURL:     getEnv("COMMENTARY_URL", ""),
		CommentaryAPIKey:  getEnv("COMMENTARY_API_KEY", ""),
		CommentaryTimeout: constants.CommentaryTimeout,
	}

	if d := getEnv("COMMENTARY_TIMEOUT", ""); d != "" {
		timeout, err := time.ParseDuration(d)
		if err != nil {
			return nil, fmt.Errorf("invalid COMMENTARY_TIMEOUT: %w", err)
		}
		cfg.CommentaryTimeout = timeout
	}

	if cfg.AdminToken == "" {
		return nil, fmt.Errorf("ADMIN_TOKEN is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("commentary_enabled", cfg.CommentaryURL != "").
		Dur("commentary_timeout", cfg.CommentaryTimeout).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
