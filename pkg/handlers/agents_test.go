package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeline-io/tradeline-engine/pkg/models"
)

func TestAgentsCreateAndGet(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	rec := api.do(t, http.MethodPost, "/api/agents", token,
		CreateAgentRequest{Name: "Alpha Trading"})
	require.Equal(t, http.StatusCreated, rec.Code)
	agent := decodeBody[models.Agent](t, rec)
	assert.Equal(t, "Alpha Trading", agent.Name)

	rec = api.do(t, http.MethodPost, "/api/agents", token,
		CreateAgentRequest{Name: "Alpha Sub-Agent", ParentAgentID: agent.ID.String()})
	require.Equal(t, http.StatusCreated, rec.Code)
	child := decodeBody[models.Agent](t, rec)
	assert.Equal(t, agent.ID.String(), child.ParentAgentID)

	rec = api.do(t, http.MethodGet, "/api/agents/"+agent.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/agents", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	agents := decodeBody[[]models.Agent](t, rec)
	assert.Len(t, agents, 2)
}

func TestAgentsValidation(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.registerUser(t, "Ana", "ana@example.com")

	rec := api.do(t, http.MethodPost, "/api/agents", token, CreateAgentRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/agents/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/agents/00000000-0000-0000-0000-000000000001", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/agents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
