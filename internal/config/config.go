package config

import (
	"log"
	"os"
	"strconv"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port     string
	LogLevel string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory" or "firestore"
	UseMockLLM     bool   // true = use mock even on GCP

	// History budget injected into the next provider call. Oldest
	// messages are dropped first once either bound is hit.
	HistoryMaxMessages int
	HistoryMaxChars    int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("CONVERSE_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port:     getEnv("CONVERSE_PORT", "8080"),
		LogLevel: getEnv("CONVERSE_LOG_LEVEL", "info"),

		GCPProjectID: getEnv("CONVERSE_GCP_PROJECT", ""),
		GCPLocation:  getEnv("CONVERSE_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("CONVERSE_MODEL_NAME", "gemini-2.5-flash"),

		StorageBackend: getEnv("CONVERSE_STORAGE_BACKEND", "memory"),
		UseMockLLM:     getBoolEnv("CONVERSE_USE_MOCK_LLM", mode == ModeLocal),

		HistoryMaxMessages: getIntEnv("CONVERSE_HISTORY_MAX_MESSAGES", 40),
		HistoryMaxChars:    getIntEnv("CONVERSE_HISTORY_MAX_CHARS", 16384),
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("CONVERSE_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}
