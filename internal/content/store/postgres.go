package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"namemint/internal/content/models"
	"namemint/pkg/platform/sentinel"
)

// Postgres is the production content store.
//
// Schema:
//
//	CREATE TABLE content_entries (
//	    name       TEXT PRIMARY KEY,
//	    metadata   JSONB NOT NULL DEFAULT '{}',
//	    markdown   TEXT NOT NULL DEFAULT '',
//	    files      JSONB NOT NULL DEFAULT '{}',
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Get(ctx context.Context, name string) (*models.Entry, error) {
	var (
		entry    models.Entry
		metadata []byte
		files    []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, metadata, markdown, files, updated_at FROM content_entries WHERE name = $1`,
		name).Scan(&entry.Name, &metadata, &entry.Markdown, &files, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content entry: %w", err)
	}
	if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if err := json.Unmarshal(files, &entry.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return &entry, nil
}

func (s *Postgres) PutMetadata(ctx context.Context, name string, metadata map[string]string, now time.Time) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_entries (name, metadata, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at`,
		name, raw, now)
	if err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}
	return nil
}

func (s *Postgres) PutMarkdown(ctx context.Context, name, markdown string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_entries (name, markdown, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET markdown = EXCLUDED.markdown, updated_at = EXCLUDED.updated_at`,
		name, markdown, now)
	if err != nil {
		return fmt.Errorf("put markdown: %w", err)
	}
	return nil
}

func (s *Postgres) PutFile(ctx context.Context, name, filename, hash string, now time.Time) error {
	patch, err := json.Marshal(map[string]string{filename: hash})
	if err != nil {
		return fmt.Errorf("encode file hash: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_entries (name, files, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET files = content_entries.files || EXCLUDED.files, updated_at = EXCLUDED.updated_at`,
		name, patch, now)
	if err != nil {
		return fmt.Errorf("put file hash: %w", err)
	}
	return nil
}
