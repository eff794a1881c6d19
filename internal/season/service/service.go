package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	accessmodels "namemint/internal/access/models"
	"namemint/internal/platform/metrics"
	"namemint/internal/season/models"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	audit "namemint/pkg/platform/audit"
	"namemint/pkg/platform/sentinel"
	"namemint/pkg/requestcontext"
)

// SeasonStore persists seasons and owns the single-active-season exclusion.
type SeasonStore interface {
	Create(ctx context.Context, season *models.Season) error
	FindByID(ctx context.Context, id domain.SeasonID) (*models.Season, error)
	List(ctx context.Context) ([]*models.Season, error)
	FindActive(ctx context.Context) (*models.Season, error)
	ActivateExclusive(ctx context.Context, id domain.SeasonID, now time.Time) (*models.Season, error)
	Execute(ctx context.Context, id domain.SeasonID, validate func(*models.Season) error, apply func(*models.Season)) (*models.Season, error)
}

// NameCounter reports how many names are bound to a season. Implemented by
// the registration store.
type NameCounter interface {
	CountBySeason(ctx context.Context, id domain.SeasonID) (int, error)
}

// AccessGate enforces role requirements. Implemented by the access service.
type AccessGate interface {
	RequireRole(ctx context.Context, caller domain.Principal, required accessmodels.Role) error
}

// AuditPublisher fans out audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// InfoCache caches the active-season read model.
type InfoCache interface {
	Get(ctx context.Context) (*models.ActiveSeasonInfo, error)
	Set(ctx context.Context, info *models.ActiveSeasonInfo) error
	Invalidate(ctx context.Context) error
}

// Service owns the season lifecycle state machine.
type Service struct {
	seasons        SeasonStore
	names          NameCounter
	access         AccessGate
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	cache          InfoCache
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

func WithInfoCache(c InfoCache) Option {
	return func(s *Service) { s.cache = c }
}

func New(seasons SeasonStore, names NameCounter, access AccessGate, opts ...Option) *Service {
	s := &Service{seasons: seasons, names: names, access: access}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSeasonRequest carries the admin-supplied season parameters.
type CreateSeasonRequest struct {
	Name          string    `json:"name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	MaxNames      int       `json:"max_names"`
	MinNameLength int       `json:"min_name_length"`
	MaxNameLength int       `json:"max_name_length"`
	Price         uint64    `json:"price"`
}

// CreateSeason creates a draft season. Admin-only.
func (s *Service) CreateSeason(ctx context.Context, caller domain.Principal, req CreateSeasonRequest) (*models.Season, error) {
	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return nil, err
	}

	season, err := models.NewSeason(req.Name, req.StartTime, req.EndTime,
		req.MaxNames, req.MinNameLength, req.MaxNameLength, req.Price,
		requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.seasons.Create(ctx, season); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create season")
	}
	s.invalidateCache(ctx)
	s.emit(ctx, caller, audit.EventSeasonCreated, fmt.Sprintf("season:%d", season.ID), "")
	return season, nil
}

// Activate transitions a draft season to active. Fails unless the target is
// draft and no other season is currently active. Admin-only.
func (s *Service) Activate(ctx context.Context, caller domain.Principal, id domain.SeasonID) (*models.Season, error) {
	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return nil, err
	}

	season, err := s.seasons.ActivateExclusive(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "season not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "only draft seasons can be activated")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "another season is already active")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate season")
		}
	}

	s.invalidateCache(ctx)
	if s.metrics != nil {
		s.metrics.SeasonsActivated.Inc()
	}
	s.emit(ctx, caller, audit.EventSeasonActivated, fmt.Sprintf("season:%d", season.ID), "")
	return season, nil
}

// End transitions an active season to ended. Admin-only.
func (s *Service) End(ctx context.Context, caller domain.Principal, id domain.SeasonID) (*models.Season, error) {
	return s.transition(ctx, caller, id, audit.EventSeasonEnded,
		(*models.Season).CanEnd, (*models.Season).ApplyEnd)
}

// Cancel transitions a draft or active season to cancelled. Admin-only.
func (s *Service) Cancel(ctx context.Context, caller domain.Principal, id domain.SeasonID) (*models.Season, error) {
	return s.transition(ctx, caller, id, audit.EventSeasonCancelled,
		(*models.Season).CanCancel, (*models.Season).ApplyCancel)
}

func (s *Service) transition(ctx context.Context, caller domain.Principal, id domain.SeasonID, action audit.Action, can func(*models.Season) error, apply func(*models.Season, time.Time)) (*models.Season, error) {
	if err := s.access.RequireRole(ctx, caller, accessmodels.RoleAdmin); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	season, err := s.seasons.Execute(ctx, id,
		func(season *models.Season) error { return can(season) },
		func(season *models.Season) { apply(season, now) },
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "season not found")
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
			return nil, dErrors.New(dErrors.CodeConflict, err.Error())
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update season")
		}
	}

	s.invalidateCache(ctx)
	s.emit(ctx, caller, action, fmt.Sprintf("season:%d", season.ID), "")
	return season, nil
}

// GetSeason returns a season by ID.
func (s *Service) GetSeason(ctx context.Context, id domain.SeasonID) (*models.Season, error) {
	season, err := s.seasons.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "season not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load season")
	}
	return season, nil
}

// ListSeasons returns all seasons ordered by ID.
func (s *Service) ListSeasons(ctx context.Context) ([]*models.Season, error) {
	seasons, err := s.seasons.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list seasons")
	}
	return seasons, nil
}

// GetActiveSeason returns the single active season; fails when none is.
func (s *Service) GetActiveSeason(ctx context.Context) (*models.Season, error) {
	season, err := s.seasons.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active season")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active season")
	}
	return season, nil
}

// GetActiveSeasonInfo returns the active season with remaining capacity and
// price, read through the cache when one is configured.
func (s *Service) GetActiveSeasonInfo(ctx context.Context) (*models.ActiveSeasonInfo, error) {
	if s.cache != nil {
		if info, err := s.cache.Get(ctx); err == nil && info != nil {
			return info, nil
		}
	}

	season, err := s.GetActiveSeason(ctx)
	if err != nil {
		return nil, err
	}
	used, err := s.names.CountBySeason(ctx, season.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count names")
	}

	info := &models.ActiveSeasonInfo{
		Season:            season,
		RemainingCapacity: season.MaxNames - used,
		Price:             season.Price,
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, info)
	}
	return info, nil
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx)
	}
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
