package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

func createDealRequest(participants ...string) CreateDealRequest {
	return CreateDealRequest{
		Title:        "Gold Dore Bars",
		Commodity:    models.CommodityGold,
		Exclusivity:  models.ExclusivityExclusive,
		QuantityKg:   250,
		PricePerKg:   64500,
		Location:     "Dubai, UAE",
		Details:      "FOB terms, principal is Maria Santos",
		Participants: participants,
	}
}

func TestDealsCreate(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	agent, err := api.agents.Register(context.Background(), "Alpha Trading", "")
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/api/deals", token, createDealRequest(agent.ID.String()))
	require.Equal(t, http.StatusCreated, rec.Code)

	deal := decodeBody[models.Deal](t, rec)
	assert.Equal(t, models.StatusInitiated, deal.Status)
	assert.Equal(t, []string{agent.ID.String()}, deal.Chain)
	assert.Contains(t, deal.InviteLink, "/join-deal/")
	// The raw token never appears in API responses.
	assert.Empty(t, deal.InviteToken)
}

func TestDealsCreateUnknownChainAgent(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	rec := api.do(t, http.MethodPost, "/api/deals", token, createDealRequest("not-a-registered-agent"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDealsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/deals", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/deals", "", createDealRequest())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDealsGetAndList(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	created, err := api.deals.Create(context.Background(), dealInput(), "ana")
	require.NoError(t, err)

	rec := api.do(t, http.MethodGet, "/api/deals/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deal := decodeBody[models.Deal](t, rec)
	assert.Equal(t, created.ID, deal.ID)

	rec = api.do(t, http.MethodGet, "/api/deals", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deals := decodeBody[[]models.Deal](t, rec)
	assert.Len(t, deals, 1)

	rec = api.do(t, http.MethodGet, "/api/deals/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/deals/00000000-0000-0000-0000-000000000001", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDealsUpdateStatus(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	created, err := api.deals.Create(context.Background(), dealInput(), "ana")
	require.NoError(t, err)

	rec := api.do(t, http.MethodPatch, "/api/deals/"+created.ID.String()+"/status", token,
		UpdateStatusRequest{Status: models.StatusKYC})
	require.Equal(t, http.StatusOK, rec.Code)

	deal := decodeBody[models.Deal](t, rec)
	assert.Equal(t, models.StatusKYC, deal.Status)
	assert.Len(t, deal.History, 2)

	rec = api.do(t, http.MethodPatch, "/api/deals/"+created.ID.String()+"/status", token,
		UpdateStatusRequest{Status: "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDealsRevealDetails(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	created, err := api.deals.Create(context.Background(), dealInput(), "ana")
	require.NoError(t, err)

	rec := api.do(t, http.MethodGet, "/api/deals/"+created.ID.String()+"/details", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "FOB terms, principal is Maria Santos", body["details"])
}

func TestDealsAttachDocumentAndRedaction(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	created, err := api.deals.Create(context.Background(), dealInput(), "ana")
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, "/api/deals/"+created.ID.String()+"/documents", token,
		AttachDocumentRequest{
			Name:     "mandate.pdf",
			Type:     "application/pdf",
			Category: models.CategoryMandate,
			Content:  "mandate issued to Robert Hughes",
		})
	require.Equal(t, http.StatusCreated, rec.Code)

	deal := decodeBody[models.Deal](t, rec)
	require.Len(t, deal.Documents, 1)
	docID := deal.Documents[0].ID

	require.Eventually(t, func() bool {
		got, err := api.deals.Get(context.Background(), created.ID)
		if err != nil {
			return false
		}
		doc := got.FindDocument(docID)
		return doc != nil && doc.VerificationStatus == models.VerificationRedacted
	}, 2*time.Second, 10*time.Millisecond)

	rec = api.do(t, http.MethodGet,
		"/api/deals/"+created.ID.String()+"/documents/"+docID.String()+"/principal-info", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "Robert Hughes", body["original_principal_info"])
}

func TestDealsInviteResolveAndJoin(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	agent, err := api.agents.Register(context.Background(), "Beta Brokers", "")
	require.NoError(t, err)
	created, err := api.deals.Create(context.Background(), dealInput(), "ana")
	require.NoError(t, err)

	// Resolution is public.
	rec := api.do(t, http.MethodGet, "/api/deals/invite/"+created.InviteToken, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deal := decodeBody[models.Deal](t, rec)
	assert.Equal(t, created.ID, deal.ID)

	// Joining requires auth and a registered agent.
	rec = api.do(t, http.MethodPost, "/api/deals/invite/"+created.InviteToken+"/join", "",
		JoinDealRequest{AgentID: agent.ID.String()})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/deals/invite/"+created.InviteToken+"/join", token,
		JoinDealRequest{AgentID: "unregistered"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/deals/invite/"+created.InviteToken+"/join", token,
		JoinDealRequest{AgentID: agent.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	deal = decodeBody[models.Deal](t, rec)
	assert.Contains(t, deal.Chain, agent.ID.String())

	rec = api.do(t, http.MethodGet, "/api/deals/invite/ffffffffffffffffffffffffffffffff", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
