package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfiguration marks a missing or malformed setting that prevents a
// backend-calling operation from starting.
var ErrConfiguration = errors.New("config: configuration error")

// LLM provider identifiers accepted by LLM_PROVIDER and LLM_FALLBACK_PROVIDER.
const (
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Patient store identifiers accepted by PATIENT_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreRedis    = "redis"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// Language model backends
	LLMProvider         string
	LLMFallbackProvider string
	LLMTimeout          time.Duration
	GeminiAPIKey        string
	GeminiChatModel     string
	GeminiReportModel   string
	OpenAIAPIKey        string
	OpenAIChatModel     string
	OpenAIReportModel   string
	BedrockModelID      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Patient records
	PatientStore  string
	PatientsTable string
	RecordKeyHex  string
	RosterFile    string

	// Audit and downstream fan-out
	AuditSink     string
	AuditQueueURL string
	ArchiveBucket string
	RabbitMQURL   string

	// Clinic notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	ClinicNotifyEmail string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	MessageMaxChars    int
	// MessagesPerMinute throttles message submission per client; 0 disables it.
	MessagesPerMinute int
	MessageBurst      int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ProviderGemini))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiChatModel:     getEnv("GEMINI_CHAT_MODEL", "gemini-3-pro-preview"),
		GeminiReportModel:   getEnv("GEMINI_REPORT_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel:     getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		OpenAIReportModel:   getEnv("OPENAI_MODEL_REPORT", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		PatientStore:  strings.ToLower(strings.TrimSpace(getEnv("PATIENT_STORE", StoreMemory))),
		PatientsTable: getEnv("PATIENTS_TABLE", "carefront_patients"),
		RecordKeyHex:  getEnv("RECORD_KEY", ""),
		RosterFile:    getEnv("ROSTER_FILE", ""),

		AuditSink:     strings.ToLower(strings.TrimSpace(getEnv("AUDIT_SINK", "log"))),
		AuditQueueURL: getEnv("AUDIT_QUEUE_URL", ""),
		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
		RabbitMQURL:   getEnv("RABBITMQ_URL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CareFront Intake"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		ClinicNotifyEmail: getEnv("CLINIC_NOTIFY_EMAIL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MessageMaxChars:    getEnvAsInt("MESSAGE_MAX_CHARS", 1000),
		MessagesPerMinute:  getEnvAsInt("MESSAGES_PER_MINUTE", 20),
		MessageBurst:       getEnvAsInt("MESSAGE_BURST", 5),
	}
}

// ValidateBackend checks that the credentials for the configured language
// model providers are present. The returned error wraps ErrConfiguration.
func (c *Config) ValidateBackend() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrConfiguration)
	}
	if err := c.validateProvider(c.LLMProvider); err != nil {
		return err
	}
	if c.LLMFallbackProvider != "" {
		if c.LLMFallbackProvider == c.LLMProvider {
			return fmt.Errorf("%w: fallback provider %q duplicates primary", ErrConfiguration, c.LLMFallbackProvider)
		}
		if err := c.validateProvider(c.LLMFallbackProvider); err != nil {
			return err
		}
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("%w: LLM_TIMEOUT must be positive", ErrConfiguration)
	}
	return nil
}

func (c *Config) validateProvider(provider string) error {
	switch provider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for provider gemini", ErrConfiguration)
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider openai", ErrConfiguration)
		}
	case ProviderBedrock:
		if strings.TrimSpace(c.BedrockModelID) == "" {
			return fmt.Errorf("%w: BEDROCK_MODEL_ID is required for provider bedrock", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrConfiguration, provider)
	}
	return nil
}

// RecordKey decodes RECORD_KEY. Durable patient stores refuse to start
// without a 32-byte key.
func (c *Config) RecordKey() ([]byte, error) {
	raw := strings.TrimSpace(c.RecordKeyHex)
	if raw == "" {
		return nil, fmt.Errorf("%w: RECORD_KEY is required for patient store %q", ErrConfiguration, c.PatientStore)
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: RECORD_KEY is not valid hex: %v", ErrConfiguration, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: RECORD_KEY must decode to 32 bytes, got %d", ErrConfiguration, len(key))
	}
	return key, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
