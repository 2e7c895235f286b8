package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with a fallback provider.
// If the primary fails, it automatically retries with the fallback.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a new fallback-enabled LLM client.
// If fallback is nil, the client will only use the primary provider.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Complete sends a completion request to the primary LLM.
// If it fails and a fallback is configured, retries with the fallback.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// TimeoutLLMClient bounds every call with a client-side deadline. A call
// that runs out of time fails with an error wrapping context.DeadlineExceeded.
type TimeoutLLMClient struct {
	inner   LLMClient
	timeout time.Duration
}

func NewTimeoutLLMClient(inner LLMClient, timeout time.Duration) *TimeoutLLMClient {
	if inner == nil {
		panic("conversation: llm client cannot be nil")
	}
	return &TimeoutLLMClient{inner: inner, timeout: timeout}
}

func (c *TimeoutLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if c.timeout <= 0 {
		return c.inner.Complete(ctx, req)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.inner.Complete(callCtx, req)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return LLMResponse{}, fmt.Errorf("conversation: llm call exceeded %s: %w", c.timeout, context.DeadlineExceeded)
	}
	return resp, err
}
