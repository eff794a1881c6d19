package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"namemint/internal/registration/models"
	"namemint/internal/registration/service"
	"namemint/internal/transport/http/shared"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

// Service defines the registration operations the handler exposes.
type Service interface {
	Register(ctx context.Context, caller domain.Principal, req service.RegisterRequest) (*models.NameRecord, error)
	GetNameRecord(ctx context.Context, name string) (*models.NameRecord, error)
	GetNameByOwner(ctx context.Context, owner domain.Principal) (*models.NameRecord, error)
	ListNamesBySeason(ctx context.Context, id domain.SeasonID) ([]*models.NameRecord, error)
	ListPayments(ctx context.Context, caller domain.Principal) ([]*models.VerifiedPayment, error)
}

// Handler handles registration endpoints.
type Handler struct {
	logger   *slog.Logger
	registry Service
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/names", h.handleRegister)
	r.Get("/names/{name}", h.handleGetName)
	r.Get("/owners/{principal}/name", h.handleGetByOwner)
	r.Get("/seasons/{id}/names", h.handleListBySeason)
	r.Get("/admin/payments", h.handleListPayments)
}

// handleRegister is the one write path of the registry.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid registration request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.registry.Register(ctx, requestcontext.Caller(ctx), req)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) {
			h.logger.ErrorContext(ctx, "registration failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGetName(w http.ResponseWriter, r *http.Request) {
	record, err := h.registry.GetNameRecord(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleGetByOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	record, err := h.registry.GetNameByOwner(r.Context(), owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListBySeason(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "invalid season id %q", raw))
		return
	}
	records, err := h.registry.ListNamesBySeason(r.Context(), domain.SeasonID(id))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.registry.ListPayments(r.Context(), requestcontext.Caller(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, payments)
}
