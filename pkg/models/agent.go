// Package models contains domain types for tradeline-engine.
package models

import "github.com/google/uuid"

// Agent represents a registered deal participant identity. Agents form a
// forest via ParentAgentID and are referenced, never owned, by deal chains.
// They are immutable once registered.
type Agent struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ParentAgentID string    `json:"parent_agent_id,omitempty"`
}
