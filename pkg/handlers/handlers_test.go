package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/audit"
	"github.com/tradeline-io/tradeline-engine/pkg/auth"
	"github.com/tradeline-io/tradeline-engine/pkg/config"
	"github.com/tradeline-io/tradeline-engine/pkg/crypto"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/repositories"
	"github.com/tradeline-io/tradeline-engine/pkg/services"
)

// testAPI wires the full handler stack against in-memory repositories.
type testAPI struct {
	mux     *http.ServeMux
	manager *auth.Manager

	agents  services.AgentService
	deals   services.DealService
	docs    services.DocumentService
	users   services.UserService
	invites services.InviteService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	enc, err := crypto.NewEncryptor("test-passphrase")
	require.NoError(t, err)

	dealRepo := repositories.NewMemoryDealRepository()
	agentSvc := services.NewAgentService(repositories.NewMemoryAgentRepository(), logger)
	dealSvc := services.NewDealService(dealRepo, enc, "https://app.example.com", logger)
	verifier := services.NewSimulatedVerifier(enc, 0, logger)
	docSvc := services.NewDocumentService(dealRepo, enc, verifier, logger)
	userSvc := services.NewUserService(repositories.NewMemoryUserRepository(), logger)
	inviteSvc := services.NewInviteService(repositories.NewMemoryInviteRepository(), userSvc, logger)

	manager := auth.NewManager("test-signing-key", time.Hour)
	middleware := auth.NewMiddleware(manager, logger)

	cfg := &config.Config{Env: "local", Version: "test"}

	mux := http.NewServeMux()
	NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	NewAgentsHandler(agentSvc, logger).RegisterRoutes(mux, middleware)
	NewDealsHandler(dealSvc, docSvc, agentSvc, audit.NewSecurityAuditor(logger), logger).RegisterRoutes(mux, middleware)
	NewAuthHandler(userSvc, manager, logger).RegisterRoutes(mux, middleware)
	NewInvitesHandler(inviteSvc, manager, logger).RegisterRoutes(mux, middleware)

	return &testAPI{
		mux:     mux,
		manager: manager,
		agents:  agentSvc,
		deals:   dealSvc,
		docs:    docSvc,
		users:   userSvc,
		invites: inviteSvc,
	}
}

// registerUser creates an account and returns the user with a bearer token.
func (a *testAPI) registerUser(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	user, err := a.users.Register(context.Background(), name, email, "secret-pass")
	require.NoError(t, err)
	token, err := a.manager.Issue(user)
	require.NoError(t, err)
	return user, token
}

// do executes a request against the mux, marshalling body as JSON when set.
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func dealInput() services.CreateDealInput {
	return services.CreateDealInput{
		Title:       "Gold Dore Bars",
		Commodity:   models.CommodityGold,
		Exclusivity: models.ExclusivityExclusive,
		QuantityKg:  250,
		PricePerKg:  64500,
		Location:    "Dubai, UAE",
		Details:     "FOB terms, principal is Maria Santos",
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
