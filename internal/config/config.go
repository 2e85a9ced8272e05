// Package config provides configuration for the discussion server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	StoreDriver string // memory or sqlite
	DatabaseURL string

	// Orchestration
	ParticipantCount  int
	DiscussionRounds  int
	MaxContextResults int
	TurnTimeout       time.Duration
	TurnDelay         time.Duration
	MaxContentLength  int

	// Remote responder; empty LLMURL selects the built-in templates
	LLMURL     string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Optional data files
	PromptFile    string
	KnowledgeFile string
	PolicyFile    string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	SendBuffer     int
	SubmitRPS      float64
	SubmitBurst    int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
// Variables from a .env file in the working directory fill in anything unset.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		StoreDriver:       getEnv("STORE_DRIVER", "memory"),
		DatabaseURL:       getEnv("DATABASE_URL", ":memory:"),
		ParticipantCount:  getEnvInt("PARTICIPANT_COUNT", 3),
		DiscussionRounds:  getEnvInt("DISCUSSION_ROUNDS", 2),
		MaxContextResults: getEnvInt("MAX_CONTEXT_RESULTS", 5),
		TurnTimeout:       time.Duration(getEnvInt("TURN_TIMEOUT_MS", 60000)) * time.Millisecond,
		TurnDelay:         time.Duration(getEnvInt("TURN_DELAY_MS", 0)) * time.Millisecond,
		MaxContentLength:  getEnvInt("MAX_CONTENT_LENGTH", 4000),
		LLMURL:            getEnv("LLM_URL", ""),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		PromptFile:        getEnv("PROMPT_FILE", ""),
		KnowledgeFile:     getEnv("KNOWLEDGE_FILE", ""),
		PolicyFile:        getEnv("POLICY_FILE", ""),
		PingInterval:      time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 20000)) * time.Millisecond,
		WriteTimeout:      time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:       time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:    int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		SendBuffer:        getEnvInt("WS_SEND_BUFFER", 256),
		SubmitRPS:         getEnvFloat("WS_SUBMIT_RPS", 2),
		SubmitBurst:       getEnvInt("WS_SUBMIT_BURST", 5),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
