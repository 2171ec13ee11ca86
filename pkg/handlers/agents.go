package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/auth"
	"github.com/tradeline-io/tradeline-engine/pkg/services"
)

// CreateAgentRequest is the request body for agent registration.
type CreateAgentRequest struct {
	Name          string `json:"name"`
	ParentAgentID string `json:"parent_agent_id,omitempty"`
}

// AgentsHandler handles agent registry HTTP requests.
type AgentsHandler struct {
	agentService services.AgentService
	logger       *zap.Logger
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(agentService services.AgentService, logger *zap.Logger) *AgentsHandler {
	return &AgentsHandler{
		agentService: agentService,
		logger:       logger,
	}
}

// RegisterRoutes registers the agents handler's routes on the given mux.
func (h *AgentsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/agents", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/agents", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/agents/{id}", authMiddleware.RequireAuth(h.Get))
}

// Create handles POST /api/agents.
func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	agent, err := h.agentService.Register(r.Context(), req.Name, req.ParentAgentID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_agent", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, agent); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/agents.
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agentService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list agents", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list agents"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, agents); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/agents/{id}.
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid agent ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	agent, err := h.agentService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Agent not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get agent",
			zap.String("agent_id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get agent"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, agent); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
