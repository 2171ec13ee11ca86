package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tradeline-io/tradeline-engine/pkg/auth"
)

func observedAuditor() (*SecurityAuditor, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewSecurityAuditor(zap.New(core)), logs
}

func authedContext(userID string) context.Context {
	claims := &auth.Claims{}
	claims.RegisteredClaims = jwt.RegisteredClaims{Subject: userID}
	return context.WithValue(context.Background(), auth.ClaimsKey, claims)
}

func TestLogDetailsRevealed(t *testing.T) {
	auditor, logs := observedAuditor()
	dealID := uuid.New()

	auditor.LogDetailsRevealed(authedContext("user-1"), dealID, "10.0.0.1:1234")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != string(EventDetailsRevealed) {
		t.Errorf("expected event type %q, got %v", EventDetailsRevealed, fields["event_type"])
	}
	if fields["user_id"] != "user-1" {
		t.Errorf("expected user id from claims, got %v", fields["user_id"])
	}
	if fields["severity"] != "info" {
		t.Errorf("expected info severity, got %v", fields["severity"])
	}

	var event SecurityEvent
	if err := json.Unmarshal([]byte(fields["event_json"].(string)), &event); err != nil {
		t.Fatalf("event_json is not valid JSON: %v", err)
	}
	if event.DealID != dealID {
		t.Errorf("expected deal id %s in event, got %s", dealID, event.DealID)
	}
}

func TestLogPrincipalInfoRevealed(t *testing.T) {
	auditor, logs := observedAuditor()
	dealID, docID := uuid.New(), uuid.New()

	auditor.LogPrincipalInfoRevealed(context.Background(), dealID, docID, "10.0.0.1:1234")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zap.WarnLevel {
		t.Errorf("expected warn level, got %v", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["document_id"] != docID.String() {
		t.Errorf("expected document id field, got %v", fields["document_id"])
	}
	// Unauthenticated context leaves the user id empty.
	if fields["user_id"] != "" {
		t.Errorf("expected empty user id, got %v", fields["user_id"])
	}
}
