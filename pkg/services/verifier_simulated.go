package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// principalNamePattern matches capitalized first-last name pairs, the shape
// of principal identifiers in mandate documents.
var principalNamePattern = regexp.MustCompile(`[A-Z][a-z]+ [A-Z][a-z]+`)

const principalMask = "[PRINCIPAL NAME REDACTED]"

// SimulatedVerifier is the stand-in verification collaborator: it waits a
// configured delay, masks principal-identifying name patterns in the
// document, and seals the detected fragments for audit recovery. Production
// deployments swap in an LLM-backed verifier.
type SimulatedVerifier struct {
	encryptor *crypto.Encryptor
	delay     time.Duration
	logger    *zap.Logger
}

// NewSimulatedVerifier creates a simulated verifier.
func NewSimulatedVerifier(encryptor *crypto.Encryptor, delay time.Duration, logger *zap.Logger) *SimulatedVerifier {
	return &SimulatedVerifier{
		encryptor: encryptor,
		delay:     delay,
		logger:    logger.Named("simulated-verifier"),
	}
}

var _ Verifier = (*SimulatedVerifier)(nil)

// Verify implements Verifier.
func (v *SimulatedVerifier) Verify(ctx context.Context, req VerificationRequest) (VerificationOutcome, error) {
	if v.delay > 0 {
		select {
		case <-time.After(v.delay):
		case <-ctx.Done():
			return VerificationOutcome{}, ctx.Err()
		}
	}

	plaintext, err := v.encryptor.Open(req.Content)
	if err != nil {
		return VerificationOutcome{}, fmt.Errorf("failed to open document content: %w", err)
	}

	text := string(plaintext)
	detected := principalNamePattern.FindAllString(text, -1)
	masked := principalNamePattern.ReplaceAllString(text, principalMask)

	principalInfo := "no principal identifiers detected"
	if len(detected) > 0 {
		principalInfo = strings.Join(detected, "; ")
	}

	redacted, err := v.encryptor.Seal([]byte(masked))
	if err != nil {
		return VerificationOutcome{}, fmt.Errorf("failed to seal redacted content: %w", err)
	}
	original, err := v.encryptor.Seal([]byte(principalInfo))
	if err != nil {
		return VerificationOutcome{}, fmt.Errorf("failed to seal principal info: %w", err)
	}

	v.logger.Debug("Simulated verification done",
		zap.String("document_id", req.DocumentID.String()),
		zap.Int("principals_detected", len(detected)))

	return VerificationOutcome{
		Status:                models.VerificationRedacted,
		RedactedContent:       redacted,
		OriginalPrincipalInfo: original,
	}, nil
}
