package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite is a single-use registration invite bound to an email address and a
// profile role, optionally scoped to one deal. Distinct from a deal's
// shareable invite link: redeeming an Invite is one-shot and creates a user
// account, while deal invite links gate chain joining and stay valid for the
// deal's lifetime.
type Invite struct {
	ID              uuid.UUID   `json:"id"`
	Email           string      `json:"email"`
	Role            ProfileType `json:"role"`
	InvitedBy       string      `json:"invited_by"`
	InvitedByName   string      `json:"invited_by_name"`
	DealID          string      `json:"deal_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Used            bool        `json:"used"`
	ExclusiveAccess bool        `json:"exclusive_access"`
}
