package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"namemint/internal/season/models"
	"namemint/internal/season/service"
	"namemint/internal/transport/http/shared"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

// Service defines the season operations the handler exposes.
type Service interface {
	CreateSeason(ctx context.Context, caller domain.Principal, req service.CreateSeasonRequest) (*models.Season, error)
	Activate(ctx context.Context, caller domain.Principal, id domain.SeasonID) (*models.Season, error)
	End(ctx context.Context, caller domain.Principal, id domain.SeasonID) (*models.Season, error)
	Cancel(ctx context.Context, caller domain.Principal, id domain.SeasonID) (*models.Season, error)
	GetSeason(ctx context.Context, id domain.SeasonID) (*models.Season, error)
	ListSeasons(ctx context.Context) ([]*models.Season, error)
	GetActiveSeasonInfo(ctx context.Context) (*models.ActiveSeasonInfo, error)
}

// Handler handles season lifecycle endpoints.
type Handler struct {
	logger  *slog.Logger
	seasons Service
}

func New(seasons Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, seasons: seasons}
}

// Register registers the season routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/seasons", h.handleCreate)
	r.Get("/seasons", h.handleList)
	r.Get("/seasons/active", h.handleActiveInfo)
	r.Get("/seasons/{id}", h.handleGet)
	r.Post("/seasons/{id}/activate", h.transition(h.seasons.Activate))
	r.Post("/seasons/{id}/end", h.transition(h.seasons.End))
	r.Post("/seasons/{id}/cancel", h.transition(h.seasons.Cancel))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateSeasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create season request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	season, err := h.seasons.CreateSeason(ctx, requestcontext.Caller(ctx), req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, season)
}

// transition builds a handler for one admin-gated lifecycle transition.
func (h *Handler) transition(op func(context.Context, domain.Principal, domain.SeasonID) (*models.Season, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := seasonID(r)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		season, err := op(ctx, requestcontext.Caller(ctx), id)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, season)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := seasonID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	season, err := h.seasons.GetSeason(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, season)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.seasons.ListSeasons(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, seasons)
}

func (h *Handler) handleActiveInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.seasons.GetActiveSeasonInfo(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, info)
}

func seasonID(r *http.Request) (domain.SeasonID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "invalid season id %q", raw)
	}
	return domain.SeasonID(id), nil
}
