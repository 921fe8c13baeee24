// Package store persists curated folders in Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityadav/marketwatch/internal/search"
)

const schema = `
CREATE TABLE IF NOT EXISTS curation_folders (
	owner      TEXT NOT NULL,
	name       TEXT NOT NULL,
	position   BIGSERIAL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (owner, name)
);

CREATE TABLE IF NOT EXISTS curated_records (
	owner        TEXT NOT NULL,
	link         TEXT NOT NULL,
	folder       TEXT NOT NULL,
	type         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	keyword      TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	position     BIGSERIAL,
	curated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (owner, link)
);

CREATE INDEX IF NOT EXISTS curated_records_owner_folder_idx ON curated_records (owner, folder);
`

// PostgresStore implements curation.Backend.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// EnsureSchema creates the curation tables when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateFolder records a folder for the owner; existing folders are left alone.
func (s *PostgresStore) CreateFolder(ctx context.Context, owner, folder string) error {
	query := `
		INSERT INTO curation_folders (owner, name)
		VALUES ($1, $2)
		ON CONFLICT (owner, name) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, owner, folder); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// SaveRecords upserts records by (owner, link). A record moving to another
// folder takes a fresh position so it sorts last there.
func (s *PostgresStore) SaveRecords(ctx context.Context, owner string, records []search.ResultRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO curated_records (owner, link, folder, type, title, source, keyword, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner, link) DO UPDATE SET
			position = CASE WHEN curated_records.folder <> EXCLUDED.folder
				THEN EXCLUDED.position ELSE curated_records.position END,
			folder = EXCLUDED.folder,
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			keyword = EXCLUDED.keyword,
			published_at = EXCLUDED.published_at,
			curated_at = NOW()
	`
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, owner, r.Link, r.Folder, string(r.Type), r.Title, r.Source, r.Keyword, nullableTime(r.PublishedAt))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return tx.Commit(ctx)
}

// PurgeFolder deletes the folder's records but keeps the folder.
func (s *PostgresStore) PurgeFolder(ctx context.Context, owner, folder string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM curated_records WHERE owner = $1 AND folder = $2`, owner, folder)
	if err != nil {
		return fmt.Errorf("failed to purge folder: %w", err)
	}
	return nil
}

// Load returns the owner's folders and records in their original order.
func (s *PostgresStore) Load(ctx context.Context, owner string) ([]string, []search.ResultRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM curation_folders WHERE owner = $1 ORDER BY position`, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load folders: %w", err)
	}
	folders, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan folders: %w", err)
	}

	query := `
		SELECT link, folder, type, title, source, keyword, published_at
		FROM curated_records
		WHERE owner = $1
		ORDER BY position
	`
	rows, err = s.db.Query(ctx, query, owner)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	var records []search.ResultRecord
	for rows.Next() {
		var (
			r         search.ResultRecord
			typ       string
			published *time.Time
		)
		if err := rows.Scan(&r.Link, &r.Folder, &typ, &r.Title, &r.Source, &r.Keyword, &published); err != nil {
			return nil, nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Type = search.RecordType(typ)
		if published != nil {
			r.PublishedAt = *published
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return folders, records, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
