package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	ServerURL string
	Username  string
	Password  string
	Token     string
	LogLevel  slog.Level
	LogFile   string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
}

func Load() *Config {
	cfg := &Config{
		ServerURL:      envOrDefault("SERVER_URL", "http://localhost:8080"),
		Username:       os.Getenv("PERMCAST_USERNAME"),
		Password:       os.Getenv("PERMCAST_PASSWORD"),
		Token:          os.Getenv("PERMCAST_TOKEN"),
		LogLevel:       parseLogLevel(os.Getenv("LOG_LEVEL")),
		LogFile:        envOrDefault("LOG_FILE", "permcast.log"),
		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    envOrDefault("MINIO_BUCKET", "permcast-snapshots"),
	}

	if cfg.Token == "" {
		var missing []string
		if cfg.Username == "" {
			missing = append(missing, "PERMCAST_USERNAME")
		}
		if cfg.Password == "" {
			missing = append(missing, "PERMCAST_PASSWORD")
		}
		if len(missing) > 0 {
			panic(fmt.Sprintf("required environment variables not set (or set PERMCAST_TOKEN): %s", strings.Join(missing, ", ")))
		}
	}

	return cfg
}

// SnapshotsEnabled reports whether the MinIO snapshot store is configured.
func (c *Config) SnapshotsEnabled() bool {
	return c.MinIOEndpoint != ""
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
