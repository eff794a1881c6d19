// Package service implements payment-verified name registration.
//
// Register is the one write path. Its shape is dictated by the oracle round
// trip in the middle: every precondition is checked up front to fail fast and
// cheap, then the ledger is consulted, then the store re-validates all of the
// same invariants atomically at commit time. Anything that changed during the
// round trip surfaces as a precise rejection and leaves state untouched.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	accessmodels "namemint/internal/access/models"
	"namemint/internal/ledger"
	"namemint/internal/platform/metrics"
	"namemint/internal/registration/models"
	"namemint/internal/registration/store"
	seasonmodels "namemint/internal/season/models"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	audit "namemint/pkg/platform/audit"
	"namemint/pkg/platform/sentinel"
	"namemint/pkg/requestcontext"
)

var tracer = otel.Tracer("namemint/registration")

// Rejection reason labels, shared by metrics and audit events.
const (
	reasonNoActiveSeason  = "no_active_season"
	reasonSeasonNotActive = "season_not_active"
	reasonSeasonClosed    = "season_closed"
	reasonInvalidName     = "invalid_name"
	reasonNameTaken       = "name_taken"
	reasonOwnerHasName    = "owner_has_name"
	reasonPaymentReplayed = "payment_replayed"
	reasonNoTransfer      = "transfer_not_found"
	reasonWrongRecipient  = "wrong_recipient"
	reasonUnderpaid       = "underpaid"
	reasonCapacity        = "capacity_reached"
)

// RegistryStore persists names and verified payments and owns the atomic
// commit of both.
type RegistryStore interface {
	FindName(ctx context.Context, name string) (*models.NameRecord, error)
	FindByOwner(ctx context.Context, owner domain.Principal) (*models.NameRecord, error)
	PaymentByBlockIndex(ctx context.Context, blockIndex domain.BlockIndex) (*models.VerifiedPayment, error)
	CountBySeason(ctx context.Context, id domain.SeasonID) (int, error)
	ListBySeason(ctx context.Context, id domain.SeasonID) ([]*models.NameRecord, error)
	ListPayments(ctx context.Context) ([]*models.VerifiedPayment, error)
	CommitRegistration(ctx context.Context, payment *models.VerifiedPayment, record *models.NameRecord, maxNames int) error
}

// SeasonSource resolves the currently active season. Implemented by the
// season service.
type SeasonSource interface {
	GetActiveSeason(ctx context.Context) (*seasonmodels.Season, error)
}

// AccessGate enforces role requirements. Implemented by the access service.
type AccessGate interface {
	RequireRole(ctx context.Context, caller domain.Principal, required accessmodels.Role) error
}

// AuditPublisher fans out audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CacheInvalidator drops the cached active-season read model; registration
// changes its remaining capacity.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service owns the registration write path and registry queries.
type Service struct {
	registry       RegistryStore
	seasons        SeasonSource
	access         AccessGate
	oracle         ledger.Oracle
	treasury       string
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	cache          CacheInvalidator
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(s *Service) { s.cache = c }
}

// New builds the registration service. treasury is the ledger account that
// registration payments must credit.
func New(registry RegistryStore, seasons SeasonSource, access AccessGate, oracle ledger.Oracle, treasury string, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		seasons:  seasons,
		access:   access,
		oracle:   oracle,
		treasury: treasury,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries the caller-supplied registration parameters.
// BlockIndex identifies the ledger transfer that pays for the name. SeasonID
// is optional; zero means the currently active season, and a non-zero value
// that does not name the active season is rejected.
type RegisterRequest struct {
	Name       string            `json:"name"`
	Target     string            `json:"target"`
	TargetType string            `json:"target_type"`
	SeasonID   domain.SeasonID   `json:"season_id,omitempty"`
	BlockIndex domain.BlockIndex `json:"block_index"`
}

// Register binds a name to the caller, paid for by the transfer at
// req.BlockIndex. The block index is the idempotency key: a transfer pays for
// at most one registration, ever, and a replayed index is rejected without
// touching state.
func (s *Service) Register(ctx context.Context, caller domain.Principal, req RegisterRequest) (*models.NameRecord, error) {
	ctx, span := tracer.Start(ctx, "registration.Register")
	defer span.End()
	span.SetAttributes(
		attribute.String("registration.name", req.Name),
		attribute.Int64("registration.block_index", int64(req.BlockIndex)),
	)

	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleUser); err != nil {
		return nil, err
	}

	season, err := s.seasons.GetActiveSeason(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, s.reject(ctx, caller, req, reasonNoActiveSeason,
				dErrors.New(dErrors.CodeConflict, "no active season"))
		}
		return nil, err
	}
	if !req.SeasonID.IsNil() && req.SeasonID != season.ID {
		return nil, s.reject(ctx, caller, req, reasonSeasonNotActive,
			dErrors.Newf(dErrors.CodeConflict, "season %d is not the active season", req.SeasonID))
	}
	now := requestcontext.Now(ctx)
	if !season.IsOpenAt(now) {
		return nil, s.reject(ctx, caller, req, reasonSeasonClosed,
			dErrors.New(dErrors.CodeConflict, "season is not open for registration"))
	}

	name, err := models.NormalizeName(req.Name)
	if err != nil {
		return nil, s.reject(ctx, caller, req, reasonInvalidName, err)
	}
	if len(name) < season.MinNameLength || len(name) > season.MaxNameLength {
		return nil, s.reject(ctx, caller, req, reasonInvalidName,
			dErrors.Newf(dErrors.CodeValidation, "name length must be between %d and %d characters",
				season.MinNameLength, season.MaxNameLength))
	}
	targetType, err := models.ParseAddressType(req.TargetType)
	if err != nil {
		return nil, s.reject(ctx, caller, req, reasonInvalidName, err)
	}
	if req.Target == "" {
		return nil, s.reject(ctx, caller, req, reasonInvalidName,
			dErrors.New(dErrors.CodeValidation, "target address cannot be empty"))
	}

	// Cheap prechecks before the oracle round trip. All of these are
	// re-validated at commit time.
	if _, err := s.registry.FindName(ctx, name); err == nil {
		return nil, s.reject(ctx, caller, req, reasonNameTaken,
			dErrors.New(dErrors.CodeConflict, "name already registered"))
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check name")
	}
	if _, err := s.registry.FindByOwner(ctx, caller); err == nil {
		return nil, s.reject(ctx, caller, req, reasonOwnerHasName,
			dErrors.New(dErrors.CodeConflict, "caller already owns a name"))
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check owner")
	}
	if _, err := s.registry.PaymentByBlockIndex(ctx, req.BlockIndex); err == nil {
		return nil, s.rejectReplay(ctx, caller, req)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check payment")
	}

	transfer, err := s.confirmTransfer(ctx, req.BlockIndex)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.reject(ctx, caller, req, reasonNoTransfer,
				dErrors.Newf(dErrors.CodeInvalidInput, "no transfer found at block index %d", req.BlockIndex))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger oracle unavailable")
	}
	if transfer.To != s.treasury {
		return nil, s.reject(ctx, caller, req, reasonWrongRecipient,
			dErrors.New(dErrors.CodeValidation, "transfer does not pay the treasury account"))
	}
	if transfer.Amount < season.Price {
		return nil, s.reject(ctx, caller, req, reasonUnderpaid,
			dErrors.Newf(dErrors.CodeValidation, "transfer amount %d is below the season price %d",
				transfer.Amount, season.Price))
	}

	used, err := s.registry.CountBySeason(ctx, season.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count names")
	}
	if used >= season.MaxNames {
		return nil, s.reject(ctx, caller, req, reasonCapacity,
			dErrors.New(dErrors.CodeConflict, "season capacity reached"))
	}

	payment := &models.VerifiedPayment{
		ID:               domain.NewPaymentID(),
		Payer:            caller,
		Amount:           transfer.Amount,
		BlockIndex:       req.BlockIndex,
		TxHash:           transfer.TxHash,
		VerifiedAt:       now,
		RegistrationName: name,
	}
	record := &models.NameRecord{
		Name:       name,
		Target:     req.Target,
		TargetType: targetType,
		Owner:      caller,
		SeasonID:   season.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Commit-time recheck: the store re-validates everything under its own
	// exclusion, so a race during the oracle round trip loses cleanly here.
	if err := s.registry.CommitRegistration(ctx, payment, record, season.MaxNames); err != nil {
		switch {
		case errors.Is(err, store.ErrNameTaken):
			return nil, s.reject(ctx, caller, req, reasonNameTaken,
				dErrors.New(dErrors.CodeConflict, "name already registered"))
		case errors.Is(err, store.ErrOwnerHasName):
			return nil, s.reject(ctx, caller, req, reasonOwnerHasName,
				dErrors.New(dErrors.CodeConflict, "caller already owns a name"))
		case errors.Is(err, store.ErrPaymentConsumed):
			return nil, s.rejectReplay(ctx, caller, req)
		case errors.Is(err, store.ErrSeasonFull):
			return nil, s.reject(ctx, caller, req, reasonCapacity,
				dErrors.New(dErrors.CodeConflict, "season capacity reached"))
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit registration")
		}
	}

	if s.metrics != nil {
		s.metrics.PaymentsVerified.Inc()
		s.metrics.NamesRegistered.Inc()
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx)
	}
	s.emit(ctx, caller, audit.EventNameRegistered, "name:"+name, "")
	return record, nil
}

func (s *Service) confirmTransfer(ctx context.Context, blockIndex domain.BlockIndex) (ledger.Transfer, error) {
	start := time.Now()
	transfer, err := s.oracle.ConfirmTransfer(ctx, blockIndex)
	if s.metrics != nil {
		s.metrics.ObserveOracleConfirm(time.Since(start))
	}
	return transfer, err
}

// GetNameRecord resolves a registered name. Lookup is case-insensitive.
func (s *Service) GetNameRecord(ctx context.Context, name string) (*models.NameRecord, error) {
	normalized, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	record, err := s.registry.FindName(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "name not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load name record")
	}
	return record, nil
}

// GetNameByOwner returns the name held by a principal, if any.
func (s *Service) GetNameByOwner(ctx context.Context, owner domain.Principal) (*models.NameRecord, error) {
	record, err := s.registry.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "owner holds no name")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load name record")
	}
	return record, nil
}

// ListNamesBySeason returns a season's registrations ordered by creation time.
func (s *Service) ListNamesBySeason(ctx context.Context, id domain.SeasonID) ([]*models.NameRecord, error) {
	records, err := s.registry.ListBySeason(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list names")
	}
	return records, nil
}

// ListPayments returns the full verified-payment audit trail. Admin-only.
func (s *Service) ListPayments(ctx context.Context, caller domain.Principal) ([]*models.VerifiedPayment, error) {
	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return nil, err
	}
	payments, err := s.registry.ListPayments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

func (s *Service) rejectReplay(ctx context.Context, caller domain.Principal, req RegisterRequest) error {
	if s.metrics != nil {
		s.metrics.PaymentReplaysRejected.Inc()
	}
	s.emit(ctx, caller, audit.EventPaymentReplayRejected,
		fmt.Sprintf("block:%d", req.BlockIndex), "payment already consumed")
	return s.reject(ctx, caller, req, reasonPaymentReplayed,
		dErrors.New(dErrors.CodeConflict, "payment already consumed"))
}

func (s *Service) reject(ctx context.Context, caller domain.Principal, req RegisterRequest, reason string, err error) error {
	if s.metrics != nil {
		s.metrics.RegistrationsRejected.WithLabelValues(reason).Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "registration rejected",
			"principal", caller.String(),
			"name", req.Name,
			"block_index", uint64(req.BlockIndex),
			"reason", reason,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return err
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
