package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"namemint/internal/content/models"
	"namemint/internal/transport/http/shared"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

// Service defines the content operations the handler exposes.
type Service interface {
	GetEntry(ctx context.Context, name string) (*models.Entry, error)
	SetMetadata(ctx context.Context, caller domain.Principal, name string, metadata map[string]string) error
	SetMarkdown(ctx context.Context, caller domain.Principal, name, markdown string) error
	SetFileHash(ctx context.Context, caller domain.Principal, name, filename, hash string) error
}

// Handler handles per-name content endpoints.
type Handler struct {
	logger  *slog.Logger
	content Service
}

func New(content Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, content: content}
}

// Register registers the content routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/names/{name}/content", h.handleGetEntry)
	r.Put("/names/{name}/metadata", h.handlePutMetadata)
	r.Get("/names/{name}/metadata", h.handleGetMetadata)
	r.Put("/names/{name}/markdown", h.handlePutMarkdown)
	r.Get("/names/{name}/markdown", h.handleGetMarkdown)
	r.Put("/names/{name}/files", h.handlePutFile)
	r.Get("/names/{name}/files", h.handleGetFiles)
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.content.GetEntry(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) handlePutMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var metadata map[string]string
	if err := json.NewDecoder(r.Body).Decode(&metadata); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.content.SetMetadata(ctx, requestcontext.Caller(ctx), chi.URLParam(r, "name"), metadata); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	entry, err := h.content.GetEntry(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	shared.WriteJSON(w, http.StatusOK, metadata)
}

type markdownBody struct {
	Markdown string `json:"markdown"`
}

func (h *Handler) handlePutMarkdown(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body markdownBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.content.SetMarkdown(ctx, requestcontext.Caller(ctx), chi.URLParam(r, "name"), body.Markdown); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetMarkdown(w http.ResponseWriter, r *http.Request) {
	entry, err := h.content.GetEntry(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, markdownBody{Markdown: entry.Markdown})
}

type fileBody struct {
	Filename string `json:"filename"`
	Hash     string `json:"hash"`
}

func (h *Handler) handlePutFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body fileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.content.SetFileHash(ctx, requestcontext.Caller(ctx), chi.URLParam(r, "name"), body.Filename, body.Hash); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetFiles(w http.ResponseWriter, r *http.Request) {
	entry, err := h.content.GetEntry(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	files := entry.Files
	if files == nil {
		files = map[string]string{}
	}
	shared.WriteJSON(w, http.StatusOK, files)
}
