// Package service implements content association for registered names.
// Writes are gated on ownership: the referenced name must exist and the
// caller must own it. Reads are public.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	contentmodels "namemint/internal/content/models"
	regmodels "namemint/internal/registration/models"
	"namemint/pkg/domain"
	dErrors "namemint/pkg/domain-errors"
	audit "namemint/pkg/platform/audit"
	"namemint/pkg/platform/sentinel"
	"namemint/pkg/requestcontext"
)

// ContentStore persists per-name content entries.
type ContentStore interface {
	Get(ctx context.Context, name string) (*contentmodels.Entry, error)
	PutMetadata(ctx context.Context, name string, metadata map[string]string, now time.Time) error
	PutMarkdown(ctx context.Context, name, markdown string, now time.Time) error
	PutFile(ctx context.Context, name, filename, hash string, now time.Time) error
}

// NameResolver resolves registered names. Implemented by the registration
// service; this is the only contract content has with the core.
type NameResolver interface {
	GetNameRecord(ctx context.Context, name string) (*regmodels.NameRecord, error)
}

// AuditPublisher fans out audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns content reads and ownership-gated writes.
type Service struct {
	content        ContentStore
	names          NameResolver
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

func New(content ContentStore, names NameResolver, opts ...Option) *Service {
	s := &Service{content: content, names: names}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetEntry returns all content bound to a name. A registered name with no
// content yet yields an empty entry, not a not-found error.
func (s *Service) GetEntry(ctx context.Context, name string) (*contentmodels.Entry, error) {
	record, err := s.names.GetNameRecord(ctx, name)
	if err != nil {
		return nil, err
	}
	entry, err := s.content.Get(ctx, record.Name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &contentmodels.Entry{Name: record.Name}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load content")
	}
	return entry, nil
}

// SetMetadata replaces the metadata map for a name the caller owns.
func (s *Service) SetMetadata(ctx context.Context, caller domain.Principal, name string, metadata map[string]string) error {
	record, err := s.authorize(ctx, caller, name)
	if err != nil {
		return err
	}
	if err := s.content.PutMetadata(ctx, record.Name, metadata, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store metadata")
	}
	s.emit(ctx, caller, record.Name, "metadata")
	return nil
}

// SetMarkdown replaces the markdown document for a name the caller owns.
func (s *Service) SetMarkdown(ctx context.Context, caller domain.Principal, name, markdown string) error {
	record, err := s.authorize(ctx, caller, name)
	if err != nil {
		return err
	}
	if err := s.content.PutMarkdown(ctx, record.Name, markdown, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store markdown")
	}
	s.emit(ctx, caller, record.Name, "markdown")
	return nil
}

// SetFileHash records a filename -> hash binding for a name the caller owns.
func (s *Service) SetFileHash(ctx context.Context, caller domain.Principal, name, filename, hash string) error {
	if filename == "" || hash == "" {
		return dErrors.New(dErrors.CodeValidation, "filename and hash cannot be empty")
	}
	record, err := s.authorize(ctx, caller, name)
	if err != nil {
		return err
	}
	if err := s.content.PutFile(ctx, record.Name, filename, hash, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store file hash")
	}
	s.emit(ctx, caller, record.Name, "file:"+filename)
	return nil
}

// authorize resolves the name and checks the caller owns it.
func (s *Service) authorize(ctx context.Context, caller domain.Principal, name string) (*regmodels.NameRecord, error) {
	record, err := s.names.GetNameRecord(ctx, name)
	if err != nil {
		return nil, err
	}
	if record.Owner != caller {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the name owner can update its content")
	}
	return record, nil
}

func (s *Service) emit(ctx context.Context, caller domain.Principal, name, what string) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(audit.EventContentUpdated),
			"principal", caller.String(),
			"subject", "name:"+name,
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
		Action:    string(audit.EventContentUpdated),
		Subject:   "name:" + name,
		Reason:    what,
		RequestID: requestcontext.RequestID(ctx),
	})
}
