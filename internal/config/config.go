package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	DataDir       string
	MemstoreURL   string
	MemstoreToken string
	DatabaseURL   string
	NatsURL       string
	NatsToken     string
	LogLevel      string
	MaxRetries    int
	ItemDelayMS   int
}

func Load() Config {
	return Config{
		Port:          envInt("SCRIBE_PORT", 8970),
		DataDir:       envStr("SCRIBE_DATA_DIR", "~/.scribe/exports"),
		MemstoreURL:   envStr("MEMSTORE_URL", "http://localhost:8700"),
		MemstoreToken: envStr("MEMSTORE_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		MaxRetries:    envInt("SCRIBE_MAX_RETRIES", 3),
		ItemDelayMS:   envInt("SCRIBE_ITEM_DELAY_MS", 250),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
