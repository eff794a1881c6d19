package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"namemint/internal/migration/models"
	"namemint/internal/transport/http/shared"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

// Service defines the migration operations the handler exposes.
type Service interface {
	Version() models.Version
	Migrate(ctx context.Context, caller domain.Principal, to models.Version) (models.MigrationInfo, error)
	EmergencyRollback(ctx context.Context, caller domain.Principal, target models.Version) (models.MigrationInfo, error)
	History(ctx context.Context, caller domain.Principal) ([]models.MigrationInfo, error)
}

// Handler handles migration endpoints. Migrate and rollback are admin-gated
// by the service.
type Handler struct {
	logger     *slog.Logger
	migrations Service
}

func New(migrations Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, migrations: migrations}
}

// Register registers the migration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/version", h.handleVersion)
	r.Post("/admin/migrate", h.handleMigrate)
	r.Post("/admin/rollback", h.handleRollback)
	r.Get("/admin/migrations", h.handleHistory)
}

type versionResponse struct {
	Version string `json:"version"`
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, versionResponse{Version: h.migrations.Version().String()})
}

type migrateRequest struct {
	TargetVersion string `json:"target_version"`
}

func (h *Handler) handleMigrate(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.migrations.Migrate)
}

func (h *Handler) handleRollback(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.migrations.EmergencyRollback)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.Principal, models.Version) (models.MigrationInfo, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	target, err := models.ParseVersion(req.TargetVersion)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	info, err := op(ctx, requestcontext.Caller(ctx), target)
	if err != nil {
		h.logger.WarnContext(ctx, "version transition rejected",
			"request_id", requestID,
			"target", target.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.migrations.History(r.Context(), requestcontext.Caller(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, history)
}
