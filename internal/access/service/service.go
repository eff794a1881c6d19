package service

import (
	"context"
	"errors"
	"log/slog"

	"namemint/internal/access/models"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	audit "namemint/pkg/platform/audit"
	"namemint/pkg/platform/sentinel"
	"namemint/pkg/requestcontext"
)

// RoleStore persists the principal -> role mapping and the bootstrap flag.
type RoleStore interface {
	Get(ctx context.Context, p domain.Principal) (models.Role, error)
	RegisterIfAbsent(ctx context.Context, p domain.Principal) (models.Role, bool, error)
	Assign(ctx context.Context, p domain.Principal, role models.Role) error
}

// AuditPublisher fans out audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the access-control ledger: it owns role resolution and gates
// every mutating operation in the other services.
type Service struct {
	roles          RoleStore
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

func New(roles RoleStore, opts ...Option) *Service {
	s := &Service{roles: roles}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize records a caller on first contact. Anonymous callers are a
// no-op. The first principal ever seen becomes admin; later principals
// become users. Idempotent: re-initializing an already-recorded caller
// changes nothing and returns the existing role.
func (s *Service) Initialize(ctx context.Context, caller domain.Principal) (models.Role, error) {
	if caller.IsAnonymous() {
		return models.RoleGuest, nil
	}

	role, created, err := s.roles.RegisterIfAbsent(ctx, caller)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to register caller")
	}
	if created {
		action := audit.EventCallerRegistered
		if role == models.RoleAdmin {
			action = audit.EventAdminBootstrapped
		}
		s.emit(ctx, caller, action, caller.String(), "")
	}
	return role, nil
}

// GetRole resolves a principal's role. Anonymous callers are always guests,
// without a lookup. Asking for the role of a non-anonymous principal that
// was never initialized is a programmer error, not a business outcome, and
// fails with an internal error.
func (s *Service) GetRole(ctx context.Context, p domain.Principal) (models.Role, error) {
	if p.IsAnonymous() {
		return models.RoleGuest, nil
	}
	role, err := s.roles.Get(ctx, p)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeInternal, "caller not registered")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role")
	}
	return role, nil
}

// AssignRole unconditionally overwrites the target's role, including
// demoting or promoting admins. Admin-only. There is no cap on the number of
// admins.
func (s *Service) AssignRole(ctx context.Context, caller, target domain.Principal, role models.Role) error {
	if err := s.RequireRole(ctx, caller, models.RoleAdmin); err != nil {
		return err
	}
	if target.IsAnonymous() {
		return dErrors.New(dErrors.CodeValidation, "cannot assign a role to the anonymous principal")
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return dErrors.New(dErrors.CodeValidation, "only admin and user roles can be assigned")
	}

	if err := s.roles.Assign(ctx, target, role); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign role")
	}
	s.emit(ctx, caller, audit.EventRoleAssigned, target.String(), role.String())
	return nil
}

// HasPermission reports whether the caller meets the required role. Unseen
// non-anonymous callers are registered on first contact, exactly as
// Initialize would.
func (s *Service) HasPermission(ctx context.Context, caller domain.Principal, required models.Role) (bool, error) {
	role, err := s.resolve(ctx, caller)
	if err != nil {
		return false, err
	}
	return role.Satisfies(required), nil
}

// RequireRole is HasPermission with fail-fast semantics: an unsatisfied
// requirement is a fatal authorization error, not a business outcome.
func (s *Service) RequireRole(ctx context.Context, caller domain.Principal, required models.Role) error {
	ok, err := s.HasPermission(ctx, caller, required)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeForbidden, "%s role required", required)
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, caller domain.Principal) (models.Role, error) {
	if caller.IsAnonymous() {
		return models.RoleGuest, nil
	}
	role, _, err := s.roles.RegisterIfAbsent(ctx, caller)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve role")
	}
	return role, nil
}

func (s *Service) emit(ctx context.Context, caller domain.Principal, action audit.Action, subject, decision string) {
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
		Decision:  decision,
		RequestID: requestcontext.RequestID(ctx),
	})
}
