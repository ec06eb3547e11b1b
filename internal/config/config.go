package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port               int
	LogLevel           string
	Debug              bool
	AWSRegion          string
	BedrockModelID     string
	StoryblokToken     string
	StoryblokSpaceID   string
	StoryblokAPIBase   string
	MaxHistory         int
	DefaultSearchLimit int
	RequestTimeoutSecs int
	NLUWorkers         int
	CORSOrigins        string
	NatsURL            string
	NatsToken          string
	DatabaseURL        string
	StaticDir          string
}

func Load() Config {
	return Config{
		Port:               envInt("STORYSCOUT_PORT", 8000),
		LogLevel:           envStr("LOG_LEVEL", "info"),
		Debug:              envBool("STORYSCOUT_DEBUG", false),
		AWSRegion:          envStr("AWS_REGION", "us-east-1"),
		BedrockModelID:     envStr("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20240620-v1:0"),
		StoryblokToken:     envStr("STORYBLOK_TOKEN", ""),
		StoryblokSpaceID:   envStr("STORYBLOK_SPACE_ID", ""),
		StoryblokAPIBase:   envStr("STORYBLOK_API_BASE", "https://api-staging-d1.storyblok.com"),
		MaxHistory:         envInt("MAX_CONVERSATION_HISTORY", 10),
		DefaultSearchLimit: envInt("DEFAULT_SEARCH_LIMIT", 10),
		RequestTimeoutSecs: envInt("REQUEST_TIMEOUT", 30),
		NLUWorkers:         envInt("NLU_WORKERS", 10),
		CORSOrigins:        envStr("CORS_ORIGINS", "http://localhost:8000,http://127.0.0.1:8000"),
		NatsURL:            envStr("NATS_URL", ""),
		NatsToken:          envStr("NATS_TOKEN", ""),
		DatabaseURL:        envStr("DATABASE_URL", ""),
		StaticDir:          envStr("STATIC_DIR", ""),
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
