package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	CORSAllowedOrigins []string

	// Lead store (Postgres). When empty the in-memory repository is used.
	DatabaseURL string

	// Session/flow document store (Redis). When empty the in-process store is used.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Conversation flow
	FlowCacheTTL      time.Duration
	FlexibleThreshold int

	// Generative AI (Gemini)
	GeminiAPIKey   string
	GeminiModelID  string
	AISystemPrompt string
	AITimeout      time.Duration
	AICooldown     time.Duration

	// WhatsApp bridge (Baileys bot container)
	WhatsAppBotURL      string
	WhatsAppSendTimeout time.Duration
	FirmWhatsAppNumber  string

	// Lawyer directory, JSON array of {name, phone, specialties}.
	LawyersJSON string

	NotifyMaxRetries int
	NotifyRetryDelay time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		FlowCacheTTL:      getEnvAsDuration("FLOW_CACHE_TTL", 5*time.Minute),
		FlexibleThreshold: getEnvAsInt("FLEXIBLE_VALIDATION_THRESHOLD", 3),

		GeminiAPIKey:   getEnvFirst([]string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}, ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		AISystemPrompt: getEnv("AI_SYSTEM_PROMPT", ""),
		AITimeout:      getEnvAsDuration("AI_TIMEOUT", 15*time.Second),
		AICooldown:     getEnvAsDuration("AI_COOLDOWN", 5*time.Minute),

		WhatsAppBotURL:      getEnv("WHATSAPP_BOT_URL", "http://whatsapp_bot:3000"),
		WhatsAppSendTimeout: getEnvAsDuration("WHATSAPP_SEND_TIMEOUT", 10*time.Second),
		FirmWhatsAppNumber:  getEnv("WHATSAPP_PHONE_NUMBER", "5511918368812"),

		LawyersJSON: getEnv("LAWYERS_JSON", ""),

		NotifyMaxRetries: getEnvAsInt("NOTIFY_MAX_RETRIES", 3),
		NotifyRetryDelay: getEnvAsDuration("NOTIFY_RETRY_DELAY", 2*time.Second),
	}
}

// getEnv reads a string environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty variable in keys.
func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvAsInt reads an integer environment variable with a fallback default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool reads a boolean environment variable with a fallback default
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration reads a duration environment variable with a fallback default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice reads a comma-separated environment variable with a fallback default
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
