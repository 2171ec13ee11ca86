package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/audit"
	"github.com/tradeline-io/tradeline-engine/pkg/auth"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/services"
)

// CreateDealRequest is the request body for deal creation.
type CreateDealRequest struct {
	Title        string             `json:"title"`
	Commodity    models.Commodity   `json:"commodity"`
	Exclusivity  models.Exclusivity `json:"exclusivity"`
	QuantityKg   float64            `json:"quantity_kg"`
	PricePerKg   float64            `json:"price_per_kg"`
	Location     string             `json:"location"`
	Details      string             `json:"details,omitempty"`
	Participants []string           `json:"participants,omitempty"`
}

// UpdateStatusRequest is the request body for a deal status change.
type UpdateStatusRequest struct {
	Status models.DealStatus `json:"status"`
}

// AttachDocumentRequest is the request body for attaching a document.
type AttachDocumentRequest struct {
	Name     string                  `json:"name"`
	Type     string                  `json:"type"`
	Category models.DocumentCategory `json:"category,omitempty"`
	Content  string                  `json:"content"`
}

// JoinDealRequest is the request body for joining a deal chain.
type JoinDealRequest struct {
	AgentID string `json:"agent_id"`
}

// DealsHandler handles deal lifecycle and document custody HTTP requests.
type DealsHandler struct {
	dealService     services.DealService
	documentService services.DocumentService
	agentService    services.AgentService
	auditor         *audit.SecurityAuditor
	logger          *zap.Logger
}

// NewDealsHandler creates a new deals handler.
func NewDealsHandler(
	dealService services.DealService,
	documentService services.DocumentService,
	agentService services.AgentService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *DealsHandler {
	return &DealsHandler{
		dealService:     dealService,
		documentService: documentService,
		agentService:    agentService,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the deals handler's routes on the given mux.
// Invite resolution stays unauthenticated so an invitee can preview a deal
// before signing in; everything else requires a bearer token.
func (h *DealsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/deals", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/deals", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/deals/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PATCH /api/deals/{id}/status", authMiddleware.RequireAuth(h.UpdateStatus))
	mux.HandleFunc("GET /api/deals/{id}/details", authMiddleware.RequireAuth(h.RevealDetails))
	mux.HandleFunc("POST /api/deals/{id}/documents", authMiddleware.RequireAuth(h.AttachDocument))
	mux.HandleFunc("GET /api/deals/{id}/documents/{docID}/principal-info",
		authMiddleware.RequireAuth(h.RevealPrincipalInfo))
	mux.HandleFunc("GET /api/deals/invite/{token}", h.ResolveInvite)
	mux.HandleFunc("POST /api/deals/invite/{token}/join", authMiddleware.RequireAuth(h.Join))
}

// Create handles POST /api/deals.
// Every participant in the initial chain must exist in the agent registry.
func (h *DealsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	for _, agentID := range req.Participants {
		if !h.agentExists(r, agentID) {
			if err := ErrorResponse(w, http.StatusBadRequest, "unknown_agent", "Unknown agent in chain: "+agentID); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	claims, _ := auth.GetClaims(r.Context())
	deal, err := h.dealService.Create(r.Context(), services.CreateDealInput{
		Title:        req.Title,
		Commodity:    req.Commodity,
		Exclusivity:  req.Exclusivity,
		QuantityKg:   req.QuantityKg,
		PricePerKg:   req.PricePerKg,
		Location:     req.Location,
		Details:      req.Details,
		Participants: req.Participants,
	}, claims.Subject)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_deal", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, deal); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/deals.
func (h *DealsHandler) List(w http.ResponseWriter, r *http.Request) {
	deals, err := h.dealService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list deals", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list deals"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, deals); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/deals/{id}.
func (h *DealsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.dealID(w, r)
	if !ok {
		return
	}

	deal, err := h.dealService.Get(r.Context(), id)
	if err != nil {
		h.writeDealError(w, id, err, "Failed to get deal")
		return
	}

	if err := WriteJSON(w, http.StatusOK, deal); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateStatus handles PATCH /api/deals/{id}/status.
func (h *DealsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.dealID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	deal, err := h.dealService.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		var tErr *services.ErrTransitionNotAllowed
		if errors.As(err, &tErr) {
			if err := ErrorResponse(w, http.StatusConflict, "transition_not_allowed", tErr.Error()); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeDealError(w, id, err, "Failed to update deal status")
			return
		}
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_status", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, deal); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RevealDetails handles GET /api/deals/{id}/details.
func (h *DealsHandler) RevealDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := h.dealID(w, r)
	if !ok {
		return
	}

	details, err := h.dealService.RevealDetails(r.Context(), id)
	if err != nil {
		h.writeDealError(w, id, err, "Failed to reveal deal details")
		return
	}

	h.auditor.LogDetailsRevealed(r.Context(), id, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, map[string]string{"details": details}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AttachDocument handles POST /api/deals/{id}/documents.
func (h *DealsHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.dealID(w, r)
	if !ok {
		return
	}

	var req AttachDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	deal, err := h.documentService.Attach(r.Context(), id, services.AttachDocumentInput{
		Name:       req.Name,
		Type:       req.Type,
		Category:   req.Category,
		Content:    []byte(req.Content),
		UploadedBy: claims.Subject,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeDealError(w, id, err, "Failed to attach document")
			return
		}
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_document", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, deal); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RevealPrincipalInfo handles GET /api/deals/{id}/documents/{docID}/principal-info.
func (h *DealsHandler) RevealPrincipalInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.dealID(w, r)
	if !ok {
		return
	}

	docID, err := uuid.Parse(r.PathValue("docID"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid document ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	info, err := h.documentService.RevealOriginalPrincipalInfo(r.Context(), id, docID)
	if err != nil {
		h.writeDealError(w, id, err, "Failed to reveal principal info")
		return
	}

	h.auditor.LogPrincipalInfoRevealed(r.Context(), id, docID, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, map[string]string{"original_principal_info": info}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ResolveInvite handles GET /api/deals/invite/{token}.
func (h *DealsHandler) ResolveInvite(w http.ResponseWriter, r *http.Request) {
	deal, err := h.dealService.ResolveByInviteToken(r.Context(), r.PathValue("token"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Invite not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to resolve invite", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to resolve invite"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, deal); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Join handles POST /api/deals/invite/{token}/join.
// The joining agent must exist in the agent registry.
func (h *DealsHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !h.agentExists(r, req.AgentID) {
		if err := ErrorResponse(w, http.StatusBadRequest, "unknown_agent", "Unknown agent: "+req.AgentID); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	deal, err := h.dealService.JoinByInviteToken(r.Context(), r.PathValue("token"), req.AgentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Invite not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to join deal", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to join deal"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, deal); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// dealID parses the {id} path segment, writing the error response itself.
func (h *DealsHandler) dealID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid deal ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// agentExists checks the registry for the agent id. A malformed id counts
// as unknown.
func (h *DealsHandler) agentExists(r *http.Request, agentID string) bool {
	id, err := uuid.Parse(agentID)
	if err != nil {
		return false
	}
	_, err = h.agentService.Get(r.Context(), id)
	return err == nil
}

// writeDealError maps a service error for a deal-scoped endpoint.
func (h *DealsHandler) writeDealError(w http.ResponseWriter, id uuid.UUID, err error, logMsg string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Deal not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.logger.Error(logMsg,
		zap.String("deal_id", id.String()),
		zap.Error(err))
	if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", logMsg); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
