package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

// VerificationRequest is handed to the verification collaborator when a
// mandate document is attached. Content is the sealed document payload; the
// collaborator never receives plaintext it did not open itself.
type VerificationRequest struct {
	DealID     uuid.UUID
	DocumentID uuid.UUID
	Content    crypto.Envelope
}

// VerificationOutcome is the collaborator's result. Status must be a
// terminal verification state. For redacted outcomes, RedactedContent holds
// the sealed masked rendering and OriginalPrincipalInfo the sealed fragment
// that was removed; either may be absent, and each is applied independently.
type VerificationOutcome struct {
	Status                models.VerificationStatus
	RedactedContent       crypto.Envelope
	OriginalPrincipalInfo crypto.Envelope
}

// Verifier inspects a document and produces a terminal verification
// outcome. Implementations own their timeout and retry policy; the document
// service tolerates a verifier that never returns (the document simply
// stays pending).
type Verifier interface {
	Verify(ctx context.Context, req VerificationRequest) (VerificationOutcome, error)
}
