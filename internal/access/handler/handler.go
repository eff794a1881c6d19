package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"namemint/internal/access/models"
	"namemint/internal/transport/http/shared"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

// Service defines the access operations the handler exposes.
type Service interface {
	Initialize(ctx context.Context, caller domain.Principal) (models.Role, error)
	AssignRole(ctx context.Context, caller, target domain.Principal, role models.Role) error
}

// Handler handles access-control endpoints.
type Handler struct {
	logger *slog.Logger
	access Service
}

func New(access Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, access: access}
}

// Register registers the access routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/access/initialize", h.handleInitialize)
	r.Post("/access/roles", h.handleAssignRole)
}

type roleResponse struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

// handleInitialize records the caller on first contact and returns its role.
// The first principal ever seen becomes admin.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)

	role, err := h.access.Initialize(ctx, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to initialize caller",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, roleResponse{Principal: caller.String(), Role: role.String()})
}

type assignRoleRequest struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

// handleAssignRole overwrites a principal's role. Admin-only.
func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	target, err := domain.ParsePrincipal(req.Principal)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.access.AssignRole(ctx, requestcontext.Caller(ctx), target, role); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, roleResponse{Principal: target.String(), Role: role.String()})
}
