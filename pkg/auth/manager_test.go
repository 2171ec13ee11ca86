package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

func testUser() *models.User {
	return &models.User{
		ID:          uuid.New(),
		Name:        "Ana",
		Email:       "ana@example.com",
		ProfileType: models.ProfileBroker,
	}
}

func TestManagerIssueAndVerify(t *testing.T) {
	m := NewManager("test-signing-key", time.Hour)
	user := testUser()

	token, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("expected subject %q, got %q", user.ID.String(), claims.Subject)
	}
	if claims.Name != "Ana" {
		t.Errorf("expected name 'Ana', got %q", claims.Name)
	}
	if claims.Email != "ana@example.com" {
		t.Errorf("expected email 'ana@example.com', got %q", claims.Email)
	}
	if claims.ProfileType != models.ProfileBroker {
		t.Errorf("expected profile type broker, got %q", claims.ProfileType)
	}
}

func TestManagerVerifyWrongKey(t *testing.T) {
	issuer := NewManager("key-one", time.Hour)
	verifier := NewManager("key-two", time.Hour)

	token, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestManagerVerifyExpired(t *testing.T) {
	m := NewManager("test-signing-key", time.Minute)

	issued := time.Now()
	m.now = func() time.Time { return issued }

	token, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestManagerVerifyGarbage(t *testing.T) {
	m := NewManager("test-signing-key", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
