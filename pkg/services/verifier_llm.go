package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/llm"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/retry"
)

const redactionSystemMessage = `You review mandate documents for a commodity trade platform.
Identify every fragment that names or identifies a principal (people, companies acting as principal buyer or seller).
Respond with only a JSON object of this exact shape:
{"principal_info": "<the identifying fragments, joined with '; '>", "redacted_text": "<the full document with each fragment replaced by [PRINCIPAL NAME REDACTED]>"}`

// llmRedactionResult is the JSON shape the model is instructed to return.
type llmRedactionResult struct {
	PrincipalInfo string `json:"principal_info"`
	RedactedText  string `json:"redacted_text"`
}

// LLMVerifier asks a language model to detect and redact
// principal-identifying content in mandate documents.
type LLMVerifier struct {
	client      llm.Client
	encryptor   *crypto.Encryptor
	retryConfig *retry.Config
	logger      *zap.Logger
}

// LLMVerifierOption configures an LLMVerifier.
type LLMVerifierOption func(*LLMVerifier)

// WithRetryConfig overrides the backoff policy for client calls.
func WithRetryConfig(cfg *retry.Config) LLMVerifierOption {
	return func(v *LLMVerifier) {
		v.retryConfig = cfg
	}
}

// NewLLMVerifier creates an LLM-backed verifier. Transient client failures
// are retried with backoff before the document is left pending.
func NewLLMVerifier(client llm.Client, encryptor *crypto.Encryptor, logger *zap.Logger, opts ...LLMVerifierOption) *LLMVerifier {
	v := &LLMVerifier{
		client:      client,
		encryptor:   encryptor,
		retryConfig: retry.DefaultConfig(),
		logger:      logger.Named("llm-verifier"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ Verifier = (*LLMVerifier)(nil)

// Verify implements Verifier.
func (v *LLMVerifier) Verify(ctx context.Context, req VerificationRequest) (VerificationOutcome, error) {
	plaintext, err := v.encryptor.Open(req.Content)
	if err != nil {
		return VerificationOutcome{}, fmt.Errorf("failed to open document content: %w", err)
	}

	response, err := retry.DoWithResult(ctx, v.retryConfig, func() (string, error) {
		return v.client.GenerateResponse(ctx, string(plaintext), redactionSystemMessage, 0)
	})
	if err != nil {
		return VerificationOutcome{}, fmt.Errorf("redaction request failed: %w", err)
	}

	result, err := parseRedactionResponse(response)
	if err != nil {
		return VerificationOutcome{}, err
	}

	outcome := VerificationOutcome{Status: models.VerificationRedacted}

	// Seal each artifact independently; one failing must not drop the other.
	if result.RedactedText != "" {
		if env, err := v.encryptor.Seal([]byte(result.RedactedText)); err == nil {
			outcome.RedactedContent = env
		} else {
			v.logger.Error("Failed to seal redacted content", zap.Error(err))
		}
	}
	if result.PrincipalInfo != "" {
		if env, err := v.encryptor.Seal([]byte(result.PrincipalInfo)); err == nil {
			outcome.OriginalPrincipalInfo = env
		} else {
			v.logger.Error("Failed to seal principal info", zap.Error(err))
		}
	}

	return outcome, nil
}

// parseRedactionResponse extracts the JSON object from a model response,
// tolerating surrounding prose or code fences.
func parseRedactionResponse(response string) (*llmRedactionResult, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in redaction response")
	}

	var result llmRedactionResult
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse redaction response: %w", err)
	}
	return &result, nil
}
