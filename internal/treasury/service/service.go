// Package service implements treasury operations over the ledger oracle.
// The registry never holds funds itself; registration payments accumulate in
// the treasury account on the external ledger and leave it only through
// admin-initiated withdrawal.
package service

import (
	"context"
	"fmt"
	"log/slog"

	accessmodels "namemint/internal/access/models"
	"namemint/internal/ledger"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	audit "namemint/pkg/platform/audit"
	"namemint/pkg/requestcontext"
)

// AccessGate enforces role requirements. Implemented by the access service.
type AccessGate interface {
	RequireRole(ctx context.Context, caller domain.Principal, required accessmodels.Role) error
}

// AuditPublisher fans out audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns treasury balance reads and withdrawal.
type Service struct {
	oracle         ledger.Oracle
	access         AccessGate
	account        string
	fee            uint64
	retries        int
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

// New builds the treasury service. account is the ledger account that holds
// registration revenue, fee the ledger's per-transfer fee, retries the
// balance-query retry budget.
func New(oracle ledger.Oracle, access AccessGate, account string, fee uint64, retries int, opts ...Option) *Service {
	s := &Service{
		oracle:  oracle,
		access:  access,
		account: account,
		fee:     fee,
		retries: retries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetBalance returns the treasury balance. Admin-only. An unreachable oracle
// is reported as unavailable, never as a zero balance.
func (s *Service) GetBalance(ctx context.Context, caller domain.Principal) (uint64, error) {
	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return 0, err
	}
	balance := ledger.QueryBalance(ctx, s.oracle, s.account, s.retries)
	if !balance.Known {
		return 0, dErrors.New(dErrors.CodeUnavailable, "treasury balance unknown")
	}
	return balance.Amount, nil
}

// WithdrawRequest carries the admin-supplied withdrawal parameters.
type WithdrawRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Withdraw moves funds from the treasury to an external account and returns
// the block index of the resulting ledger entry. Admin-only.
//
// The balance check distinguishes "unknown" from "confirmed insufficient": an
// unreachable oracle aborts the withdrawal as unavailable and never produces
// an insufficient-funds rejection.
func (s *Service) Withdraw(ctx context.Context, caller domain.Principal, req WithdrawRequest) (domain.BlockIndex, error) {
	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return 0, err
	}
	if req.To == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "destination account cannot be empty")
	}
	if req.Amount == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "withdrawal amount must be positive")
	}

	balance := ledger.QueryBalance(ctx, s.oracle, s.account, s.retries)
	if !balance.Known {
		return 0, dErrors.New(dErrors.CodeUnavailable, "treasury balance unknown, withdrawal aborted")
	}
	// Subtract rather than add so an absurd amount cannot wrap uint64 past
	// the balance.
	if balance.Amount < s.fee || req.Amount > balance.Amount-s.fee {
		return 0, dErrors.Newf(dErrors.CodeConflict,
			"insufficient funds: balance %d, requested %d plus fee %d",
			balance.Amount, req.Amount, s.fee)
	}

	blockIndex, err := s.oracle.Transfer(ctx, req.To, req.Amount, s.fee)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger transfer failed")
	}

	s.emit(ctx, caller, audit.EventWithdrawalExecuted,
		fmt.Sprintf("account:%s", req.To),
		fmt.Sprintf("amount:%d block:%d", req.Amount, blockIndex))
	return blockIndex, nil
}

func (s *Service) emit(ctx context.Context, caller domain.Principal, action audit.Action, subject, reason string) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action),
			"principal", caller.String(),
			"subject", subject,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Principal: caller,
		Action:    string(action),
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
