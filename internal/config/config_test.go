package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "LLM_PROVIDER", "LLM_TIMEOUT", "PATIENT_STORE", "SESSION_TTL", "MESSAGE_MAX_CHARS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != ProviderGemini {
		t.Fatalf("expected gemini provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Fatalf("expected 45s llm timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.PatientStore != StoreMemory {
		t.Fatalf("expected memory patient store, got %s", cfg.PatientStore)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.MessageMaxChars != 1000 {
		t.Fatalf("expected 1000 message chars, got %d", cfg.MessageMaxChars)
	}
	if cfg.GeminiReportModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected report model %s", cfg.GeminiReportModel)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("LLM_TIMEOUT", "10s")
	t.Setenv("PATIENT_STORE", "postgres")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MESSAGE_MAX_CHARS", "500")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTimeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.PatientStore != StorePostgres {
		t.Fatalf("expected postgres store, got %s", cfg.PatientStore)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.MessageMaxChars != 500 {
		t.Fatalf("expected 500 chars, got %d", cfg.MessageMaxChars)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "soon")
	t.Setenv("MESSAGE_MAX_CHARS", "many")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.LLMTimeout != 45*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.MessageMaxChars != 1000 {
		t.Fatalf("expected default chars, got %d", cfg.MessageMaxChars)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls disabled")
	}
}

func TestValidateBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "gemini without key",
			cfg:     Config{LLMProvider: ProviderGemini, LLMTimeout: time.Second},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name: "gemini with key",
			cfg:  Config{LLMProvider: ProviderGemini, GeminiAPIKey: "k", LLMTimeout: time.Second},
		},
		{
			name:    "openai fallback without key",
			cfg:     Config{LLMProvider: ProviderGemini, GeminiAPIKey: "k", LLMFallbackProvider: ProviderOpenAI, LLMTimeout: time.Second},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "fallback duplicates primary",
			cfg:     Config{LLMProvider: ProviderGemini, GeminiAPIKey: "k", LLMFallbackProvider: ProviderGemini, LLMTimeout: time.Second},
			wantErr: "duplicates primary",
		},
		{
			name: "bedrock with model",
			cfg:  Config{LLMProvider: ProviderBedrock, BedrockModelID: "anthropic.claude", LLMTimeout: time.Second},
		},
		{
			name:    "unknown provider",
			cfg:     Config{LLMProvider: "llama", LLMTimeout: time.Second},
			wantErr: "unknown llm provider",
		},
		{
			name:    "zero timeout",
			cfg:     Config{LLMProvider: ProviderOpenAI, OpenAIAPIKey: "k"},
			wantErr: "LLM_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateBackend()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in %v", tt.wantErr, err)
			}
		})
	}
}

func TestRecordKey(t *testing.T) {
	cfg := &Config{PatientStore: StorePostgres}
	if _, err := cfg.RecordKey(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for missing key, got %v", err)
	}

	cfg.RecordKeyHex = "zz"
	if _, err := cfg.RecordKey(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for bad hex, got %v", err)
	}

	cfg.RecordKeyHex = "abcd"
	if _, err := cfg.RecordKey(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for short key, got %v", err)
	}

	cfg.RecordKeyHex = strings.Repeat("ab", 32)
	key, err := cfg.RecordKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32 byte key, got %d", len(key))
	}
}
