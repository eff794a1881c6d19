package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"namemint/internal/transport/http/shared"
	"namemint/internal/treasury/service"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	"namemint/pkg/requestcontext"
)

// Service defines the treasury operations the handler exposes.
type Service interface {
	GetBalance(ctx context.Context, caller domain.Principal) (uint64, error)
	Withdraw(ctx context.Context, caller domain.Principal, req service.WithdrawRequest) (domain.BlockIndex, error)
}

// Handler handles treasury endpoints. All of them are admin-gated by the
// service.
type Handler struct {
	logger   *slog.Logger
	treasury Service
}

func New(treasury Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, treasury: treasury}
}

// Register registers the treasury routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/treasury/balance", h.handleBalance)
	r.Post("/admin/treasury/withdraw", h.handleWithdraw)
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	balance, err := h.treasury.GetBalance(ctx, requestcontext.Caller(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

type withdrawResponse struct {
	BlockIndex domain.BlockIndex `json:"block_index"`
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	blockIndex, err := h.treasury.Withdraw(ctx, requestcontext.Caller(ctx), req)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnavailable) {
			h.logger.ErrorContext(ctx, "withdrawal aborted",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, withdrawResponse{BlockIndex: blockIndex})
}
