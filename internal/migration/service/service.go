// Package service implements the migration manager. Migrations operate over
// a snapshot of the full aggregate state (access + seasons + registry) at a
// defined upgrade boundary, never interleaved with normal traffic; the
// manager's lock serializes attempts. Every attempt, win or lose, appends one
// immutable history record.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	accessmodels "namemint/internal/access/models"
	"namemint/internal/migration/models"
	"namemint/internal/platform/metrics"
	regmodels "namemint/internal/registration/models"
	seasonmodels "namemint/internal/season/models"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	audit "namemint/pkg/platform/audit"
	"namemint/pkg/requestcontext"
)

// AccessState exports and replaces access-control state. Implemented by the
// access store.
type AccessState interface {
	Export(ctx context.Context) (accessmodels.State, error)
	Replace(ctx context.Context, st accessmodels.State) error
}

// SeasonState exports and replaces season state. Implemented by the season
// store.
type SeasonState interface {
	Export(ctx context.Context) ([]*seasonmodels.Season, error)
	Replace(ctx context.Context, seasons []*seasonmodels.Season) error
}

// RegistryState exports and replaces registry state. Implemented by the
// registration store.
type RegistryState interface {
	Export(ctx context.Context) (regmodels.State, error)
	Replace(ctx context.Context, st regmodels.State) error
}

// AccessGate enforces role requirements. Implemented by the access service.
type AccessGate interface {
	RequireRole(ctx context.Context, caller domain.Principal, required accessmodels.Role) error
}

// AuditPublisher fans out audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the migration manager. It owns the current schema version, the
// registered steps, the append-only history and the restore points that
// power emergency rollback.
type Service struct {
	access   AccessState
	seasons  SeasonState
	registry RegistryState
	gate     AccessGate

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	mu            sync.Mutex
	version       models.Version
	steps         map[string]models.Step
	history       []models.MigrationInfo
	restorePoints map[string]models.Snapshot
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

// New builds the migration manager starting at the given schema version.
func New(access AccessState, seasons SeasonState, registry RegistryState, gate AccessGate, version models.Version, opts ...Option) *Service {
	s := &Service{
		access:        access,
		seasons:       seasons,
		registry:      registry,
		gate:          gate,
		version:       version,
		steps:         make(map[string]models.Step),
		restorePoints: make(map[string]models.Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterStep binds a transformer to a target version. Migrating to a
// version with no registered step is a version bump over unchanged state.
func (s *Service) RegisterStep(to models.Version, step models.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[to.String()] = step
}

// Version returns the current schema version.
func (s *Service) Version() models.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// History returns a copy of the full attempt history, oldest first.
// Admin-only.
func (s *Service) History(ctx context.Context, caller domain.Principal) ([]models.MigrationInfo, error) {
	if err := s.gate.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MigrationInfo, 0, len(s.history))
	for _, info := range s.history {
		out = append(out, info.Clone())
	}
	return out, nil
}

// Migrate upgrades the aggregate state to the target version. The registered
// step's transformer runs on a deep copy; its result is accepted only if the
// step's validator accepts it. On any failure the stores are untouched and a
// failed history record is appended. Admin-only.
func (s *Service) Migrate(ctx context.Context, caller domain.Principal, to models.Version) (models.MigrationInfo, error) {
	if err := s.gate.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return models.MigrationInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.version
	logs := []string{fmt.Sprintf("migrate %s -> %s requested", from, to)}

	if err := models.ValidateUpgrade(from, to); err != nil {
		return s.fail(ctx, caller, from, to, false, logs, err)
	}

	snapshot, err := s.export(ctx)
	if err != nil {
		return s.fail(ctx, caller, from, to, false, logs,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to export state"))
	}
	working := snapshot.Clone()

	step, ok := s.steps[to.String()]
	if ok {
		logs = append(logs, fmt.Sprintf("applying step %q", step.Name))
		if step.Transform != nil {
			working, err = step.Transform(working)
			if err != nil {
				return s.fail(ctx, caller, from, to, false, logs,
					dErrors.Wrap(err, dErrors.CodeValidation, "migration step failed"))
			}
		}
		if step.Validate != nil {
			if err := step.Validate(working); err != nil {
				logs = append(logs, "step validator rejected result")
				return s.fail(ctx, caller, from, to, false, logs,
					dErrors.Wrap(err, dErrors.CodeValidation, "migration step rejected by validator"))
			}
		}
	} else {
		logs = append(logs, "no step registered, version bump only")
	}

	checksum, err := models.Checksum(working)
	if err != nil {
		return s.fail(ctx, caller, from, to, false, logs,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to checksum state"))
	}
	logs = append(logs, "checksum "+checksum)

	if err := s.replace(ctx, working); err != nil {
		return s.fail(ctx, caller, from, to, false, logs,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist migrated state"))
	}

	// The pre-migration snapshot becomes the restore point for its version.
	s.restorePoints[from.String()] = snapshot
	s.version = to

	info := s.record(ctx, from, to, true, false, logs, checksum)
	if s.metrics != nil {
		s.metrics.MigrationsApplied.Inc()
	}
	s.emit(ctx, caller, audit.EventMigrationApplied, "version:"+to.String(), "")
	return info, nil
}

// EmergencyRollback restores the aggregate state recorded before the
// migration out of the target version and appends its own history record;
// prior records are never rewritten. Admin-only.
func (s *Service) EmergencyRollback(ctx context.Context, caller domain.Principal, target models.Version) (models.MigrationInfo, error) {
	if err := s.gate.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return models.MigrationInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.version
	logs := []string{fmt.Sprintf("emergency rollback %s -> %s requested", from, target)}

	if target.Compare(from) >= 0 {
		return s.fail(ctx, caller, from, target, true, logs,
			dErrors.New(dErrors.CodeValidation, "rollback target must precede the current version"))
	}
	snapshot, ok := s.restorePoints[target.String()]
	if !ok {
		return s.fail(ctx, caller, from, target, true, logs,
			dErrors.Newf(dErrors.CodeConflict, "no restore point for version %s", target))
	}

	checksum, err := models.Checksum(snapshot)
	if err != nil {
		return s.fail(ctx, caller, from, target, true, logs,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to checksum restore point"))
	}
	if err := s.replace(ctx, snapshot.Clone()); err != nil {
		return s.fail(ctx, caller, from, target, true, logs,
			dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore state"))
	}

	logs = append(logs, "restored snapshot with checksum "+checksum)
	s.version = target

	info := s.record(ctx, from, target, true, true, logs, checksum)
	s.emit(ctx, caller, audit.EventRollbackExecuted, "version:"+target.String(), "")
	return info, nil
}

func (s *Service) export(ctx context.Context) (models.Snapshot, error) {
	accessState, err := s.access.Export(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("export access state: %w", err)
	}
	seasons, err := s.seasons.Export(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("export seasons: %w", err)
	}
	registry, err := s.registry.Export(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("export registry: %w", err)
	}
	return models.Snapshot{Access: accessState, Seasons: seasons, Registry: registry}, nil
}

func (s *Service) replace(ctx context.Context, snapshot models.Snapshot) error {
	if err := s.access.Replace(ctx, snapshot.Access); err != nil {
		return fmt.Errorf("replace access state: %w", err)
	}
	if err := s.seasons.Replace(ctx, snapshot.Seasons); err != nil {
		return fmt.Errorf("replace seasons: %w", err)
	}
	if err := s.registry.Replace(ctx, snapshot.Registry); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// fail appends a failed history record and returns the causing error. Caller
// holds the lock.
func (s *Service) fail(ctx context.Context, caller domain.Principal, from, to models.Version, rollback bool, logs []string, err error) (models.MigrationInfo, error) {
	logs = append(logs, "failed: "+err.Error())
	info := s.record(ctx, from, to, false, rollback, logs, "")
	if s.metrics != nil {
		s.metrics.MigrationsFailed.Inc()
	}
	s.emit(ctx, caller, audit.EventMigrationRejected, "version:"+to.String(), err.Error())
	return info, err
}

// record appends one immutable history entry. Caller holds the lock.
func (s *Service) record(ctx context.Context, from, to models.Version, success, rollback bool, logs []string, checksum string) models.MigrationInfo {
	info := models.MigrationInfo{
		FromVersion: from,
		ToVersion:   to,
		Timestamp:   requestcontext.Now(ctx),
		Success:     success,
		Rollback:    rollback,
		Log:         logs,
		Checksum:    checksum,
	}
	s.history = append(s.history, info)
	return info.Clone()
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
