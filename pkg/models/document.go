package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
)

// DocumentCategory classifies a supporting document.
type DocumentCategory string

const (
	CategoryMandate      DocumentCategory = "mandate"
	CategoryContract     DocumentCategory = "contract"
	CategoryCertificate  DocumentCategory = "certificate"
	CategoryProofOfFunds DocumentCategory = "proof_of_funds"
	CategoryOther        DocumentCategory = "other"
)

// ValidCategories contains all valid document categories.
var ValidCategories = []DocumentCategory{
	CategoryMandate, CategoryContract, CategoryCertificate, CategoryProofOfFunds, CategoryOther,
}

// IsValidCategory checks if the given category is valid. The empty category
// is allowed; it means uncategorized.
func IsValidCategory(c DocumentCategory) bool {
	if c == "" {
		return true
	}
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

// VerificationStatus is the state of a document in the verification state
// machine. Every document starts pending; the other three states are
// terminal and never regress.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
	VerificationRedacted VerificationStatus = "redacted"
)

// IsTerminal reports whether the status is a terminal verification state.
func (s VerificationStatus) IsTerminal() bool {
	switch s {
	case VerificationVerified, VerificationRejected, VerificationRedacted:
		return true
	}
	return false
}

// Document is a sensitive supporting document owned by exactly one deal.
// Content is held only as a sealed envelope. When verification redacts the
// document, RedactedContent holds the masked rendering and
// OriginalPrincipalInfo independently seals the removed fragment so it can
// be recovered under audit.
type Document struct {
	ID                    uuid.UUID          `json:"id"`
	Name                  string             `json:"name"`
	Type                  string             `json:"type"`
	Category              DocumentCategory   `json:"category,omitempty"`
	UploadedAt            time.Time          `json:"uploaded_at"`
	UploadedBy            string             `json:"uploaded_by"`
	Content               crypto.Envelope    `json:"content,omitempty"`
	VerificationStatus    VerificationStatus `json:"verification_status"`
	RedactedContent       crypto.Envelope    `json:"redacted_content,omitempty"`
	OriginalPrincipalInfo crypto.Envelope    `json:"original_principal_info,omitempty"`
}
