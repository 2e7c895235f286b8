package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/conversation"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// LLMClients holds one backend chain for the interview and one for report
// extraction. Both honor LLM_TIMEOUT and fall back when configured.
type LLMClients struct {
	Chat   conversation.LLMClient
	Report conversation.LLMClient
}

type llmRole int

const (
	roleChat llmRole = iota
	roleReport
)

// BuildLLMClients wires the configured provider and optional fallback.
// awsCfg is only consulted for the bedrock provider.
func BuildLLMClients(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*LLMClients, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}

	chat, err := buildChain(ctx, cfg, awsCfg, roleChat, logger)
	if err != nil {
		return nil, err
	}
	rep, err := buildChain(ctx, cfg, awsCfg, roleReport, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("llm backends configured",
		"provider", cfg.LLMProvider,
		"fallback", cfg.LLMFallbackProvider,
		"timeout", cfg.LLMTimeout.String(),
	)
	return &LLMClients{Chat: chat, Report: rep}, nil
}

func buildChain(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, role llmRole, logger *logging.Logger) (conversation.LLMClient, error) {
	primary, err := buildProvider(ctx, cfg, awsCfg, cfg.LLMProvider, role)
	if err != nil {
		return nil, err
	}
	primary = conversation.NewTimeoutLLMClient(primary, cfg.LLMTimeout)
	if cfg.LLMFallbackProvider == "" {
		return primary, nil
	}
	fallback, err := buildProvider(ctx, cfg, awsCfg, cfg.LLMFallbackProvider, role)
	if err != nil {
		return nil, err
	}
	fallback = conversation.NewTimeoutLLMClient(fallback, cfg.LLMTimeout)
	return conversation.NewFallbackLLMClient(primary, fallback, logger.WithComponent("llm")), nil
}

func buildProvider(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, provider string, role llmRole) (conversation.LLMClient, error) {
	switch provider {
	case appconfig.ProviderGemini:
		model := cfg.GeminiChatModel
		if role == roleReport {
			model = cfg.GeminiReportModel
		}
		return conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, model)
	case appconfig.ProviderOpenAI:
		model := cfg.OpenAIChatModel
		if role == roleReport && cfg.OpenAIReportModel != "" {
			model = cfg.OpenAIReportModel
		}
		return conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, model)
	case appconfig.ProviderBedrock:
		if awsCfg == nil {
			return nil, fmt.Errorf("%w: bedrock provider requires aws configuration", appconfig.ErrConfiguration)
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), nil
	}
	return nil, fmt.Errorf("%w: unknown llm provider %q", appconfig.ErrConfiguration, provider)
}
