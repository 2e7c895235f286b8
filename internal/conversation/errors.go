package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("conversation: validation failed")
	// ErrBackendUnavailable matches backend failures other than rate limiting, timeouts included.
	ErrBackendUnavailable = errors.New("conversation: backend unavailable")
	// ErrRateLimited matches quota and rate-limit responses from a backend.
	ErrRateLimited = errors.New("conversation: backend rate limited")
	// ErrSessionState is returned when an operation is not valid in the session's current state.
	ErrSessionState = errors.New("conversation: invalid session state")
	// ErrMissingCredentials is returned by client constructors when an API key or model is absent.
	ErrMissingCredentials = errors.New("conversation: backend credentials missing")
)

// User-facing degraded-service messages.
const (
	QuotaExceededMessage   = "⚠️ System Traffic High (Quota Exceeded). Please wait 1 minute and try again."
	ConnectionErrorMessage = "Connection error. Please try again."
	StartFailureMessage    = "System Error. Please refresh."
)

// ValidationError is an input rejection shown to the user verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackendErrorKind classifies a failed model call.
type BackendErrorKind string

const (
	BackendRateLimited BackendErrorKind = "rate_limited"
	BackendTimeout     BackendErrorKind = "timeout"
	BackendUnavailable BackendErrorKind = "unavailable"
)

// BackendError wraps a model backend failure with its classification.
type BackendError struct {
	Kind BackendErrorKind
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("conversation: backend %s: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == BackendRateLimited
	case ErrBackendUnavailable:
		return e.Kind != BackendRateLimited
	}
	return false
}

// Retryable reports whether the same request may succeed if repeated later.
func (e *BackendError) Retryable() bool {
	return e.Kind == BackendRateLimited || e.Kind == BackendTimeout
}

// UserMessage is the degraded-service text for this failure.
func (e *BackendError) UserMessage() string {
	if e.Kind == BackendRateLimited {
		return QuotaExceededMessage
	}
	return ConnectionErrorMessage
}

var quotaMarkers = []string{"429", "RESOURCE_EXHAUSTED", "ResourceExhausted", "quota"}

// ClassifyBackendError maps a raw backend error to a *BackendError. It
// returns nil for a nil error and passes an existing *BackendError through.
func ClassifyBackendError(err error) *BackendError {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendError{Kind: BackendTimeout, Err: err}
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == 429 {
		return &BackendError{Kind: BackendRateLimited, Err: err}
	}
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) && oaErr.HTTPStatusCode == 429 {
		return &BackendError{Kind: BackendRateLimited, Err: err}
	}
	var oaReqErr *openai.RequestError
	if errors.As(err, &oaReqErr) && oaReqErr.HTTPStatusCode == 429 {
		return &BackendError{Kind: BackendRateLimited, Err: err}
	}
	var throttled *brtypes.ThrottlingException
	if errors.As(err, &throttled) {
		return &BackendError{Kind: BackendRateLimited, Err: err}
	}
	var quota *brtypes.ServiceQuotaExceededException
	if errors.As(err, &quota) {
		return &BackendError{Kind: BackendRateLimited, Err: err}
	}

	msg := err.Error()
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return &BackendError{Kind: BackendRateLimited, Err: err}
		}
	}
	return &BackendError{Kind: BackendUnavailable, Err: err}
}
