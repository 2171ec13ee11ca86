package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeline-io/tradeline-engine/pkg/apperrors"
	"github.com/tradeline-io/tradeline-engine/pkg/auth"
	"github.com/tradeline-io/tradeline-engine/pkg/models"
	"github.com/tradeline-io/tradeline-engine/pkg/services"
)

// CreateInviteRequest is the request body for creating a registration invite.
type CreateInviteRequest struct {
	Email           string             `json:"email"`
	Role            models.ProfileType `json:"role"`
	DealID          string             `json:"deal_id,omitempty"`
	ExclusiveAccess bool               `json:"exclusive_access,omitempty"`
}

// RedeemInviteRequest is the request body for redeeming an invite.
type RedeemInviteRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// InvitesHandler handles registration invite HTTP requests.
type InvitesHandler struct {
	inviteService services.InviteService
	manager       *auth.Manager
	logger        *zap.Logger
}

// NewInvitesHandler creates a new invites handler.
func NewInvitesHandler(inviteService services.InviteService, manager *auth.Manager, logger *zap.Logger) *InvitesHandler {
	return &InvitesHandler{
		inviteService: inviteService,
		manager:       manager,
		logger:        logger,
	}
}

// RegisterRoutes registers the invites handler's routes on the given mux.
// Lookup and redemption stay unauthenticated; the invitee has no account yet.
func (h *InvitesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/invites", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/invites", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/invites/{token}", h.Get)
	mux.HandleFunc("POST /api/invites/{token}/redeem", h.Redeem)
}

// Create handles POST /api/invites.
func (h *InvitesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	invite, err := h.inviteService.Create(r.Context(), services.CreateInviteInput{
		Email:           req.Email,
		Role:            req.Role,
		InvitedBy:       claims.Subject,
		InvitedByName:   claims.Name,
		DealID:          req.DealID,
		ExclusiveAccess: req.ExclusiveAccess,
	})
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_invite", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, invite); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/invites.
func (h *InvitesHandler) List(w http.ResponseWriter, r *http.Request) {
	invites, err := h.inviteService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list invites", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list invites"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, invites); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/invites/{token}.
func (h *InvitesHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := h.inviteToken(w, r)
	if !ok {
		return
	}

	invite, err := h.inviteService.GetByToken(r.Context(), token)
	if err != nil {
		h.writeInviteError(w, err, "Failed to get invite")
		return
	}

	if err := WriteJSON(w, http.StatusOK, invite); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Redeem handles POST /api/invites/{token}/redeem.
// Registers the invited user and returns a bearer token for the new account.
func (h *InvitesHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	token, ok := h.inviteToken(w, r)
	if !ok {
		return
	}

	var req RedeemInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.inviteService.Redeem(r.Context(), token, req.Name, req.Email, req.Password)
	if err != nil {
		if isInviteSentinel(err) {
			h.writeInviteError(w, err, "Failed to redeem invite")
			return
		}
		// Anything else is a registration validation failure.
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_registration", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	bearerToken, err := h.manager.Issue(user)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to issue token"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, TokenResponse{Token: bearerToken, User: user}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// inviteToken parses the {token} path segment, writing the error response
// itself.
func (h *InvitesHandler) inviteToken(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token, err := uuid.Parse(r.PathValue("token"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_token", "Invalid invite token format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return token, true
}

// isInviteSentinel reports whether the error has a dedicated HTTP mapping.
func isInviteSentinel(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrInviteUsed) ||
		errors.Is(err, apperrors.ErrInviteEmailMismatch) ||
		errors.Is(err, apperrors.ErrConflict)
}

// writeInviteError maps invite service errors onto HTTP statuses.
func (h *InvitesHandler) writeInviteError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		err = ErrorResponse(w, http.StatusNotFound, "not_found", "Invite not found")
	case errors.Is(err, apperrors.ErrInviteUsed):
		err = ErrorResponse(w, http.StatusGone, "invite_used", "Invite has already been redeemed")
	case errors.Is(err, apperrors.ErrInviteEmailMismatch):
		err = ErrorResponse(w, http.StatusForbidden, "email_mismatch", "Invite was issued for a different email address")
	case errors.Is(err, apperrors.ErrConflict):
		err = ErrorResponse(w, http.StatusConflict, "conflict", "Email already registered")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		err = ErrorResponse(w, http.StatusInternalServerError, "internal_error", logMsg)
	}
	if err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
