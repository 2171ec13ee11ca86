// Package audit provides security audit logging for SIEM consumption.
// It logs custody-relevant events in structured JSON format so access to
// sealed deal details and redacted principal identities stays traceable.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventDetailsRevealed is logged when a deal's sealed details are opened.
	EventDetailsRevealed SecurityEventType = "deal_details_revealed"
	// EventPrincipalInfoRevealed is logged when the audit copy of redacted
	// principal identity is opened.
	EventPrincipalInfoRevealed SecurityEventType = "principal_info_revealed"
)

// SecurityEvent represents an auditable security event with all relevant
// context for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  SecurityEventType `json:"event_type"`
	DealID     uuid.UUID         `json:"deal_id"`
	DocumentID uuid.UUID         `json:"document_id,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Severity   string            `json:"severity"` // info, warning, critical
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor. The logger gets a
// "security_audit" namespace for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogDetailsRevealed records that a deal's sealed details were opened.
// The user id comes from JWT claims in the context when present.
func (a *SecurityAuditor) LogDetailsRevealed(ctx context.Context, dealID uuid.UUID, clientIP string) {
	a.log(ctx, SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventDetailsRevealed,
		DealID:    dealID,
		ClientIP:  clientIP,
		Severity:  "info",
	}, "Deal details revealed")
}

// LogPrincipalInfoRevealed records that a redacted document's original
// principal identity was opened. Logged at warning severity; this is the
// operation redaction exists to gate.
func (a *SecurityAuditor) LogPrincipalInfoRevealed(ctx context.Context, dealID, documentID uuid.UUID, clientIP string) {
	a.log(ctx, SecurityEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  EventPrincipalInfoRevealed,
		DealID:     dealID,
		DocumentID: documentID,
		ClientIP:   clientIP,
		Severity:   "warning",
	}, "Original principal info revealed")
}

func (a *SecurityAuditor) log(ctx context.Context, event SecurityEvent, message string) {
	if claims, ok := auth.GetClaims(ctx); ok {
		event.UserID = claims.Subject
	}

	// Serialized once so SIEM pipelines can ingest the event as a unit.
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.String("deal_id", event.DealID.String()),
		zap.String("user_id", event.UserID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	}
	if event.DocumentID != uuid.Nil {
		fields = append(fields, zap.String("document_id", event.DocumentID.String()))
	}

	if event.Severity == "info" {
		a.logger.Info(message, fields...)
		return
	}
	a.logger.Warn(message, fields...)
}
