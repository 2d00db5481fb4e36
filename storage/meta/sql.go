package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/indieinfra/clipvault/config"
	storageutil "github.com/indieinfra/clipvault/storage/util"
	"github.com/indieinfra/clipvault/vault"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// SQLStore implements Store on database/sql. Postgres, MySQL and SQLite are
// supported; timestamps are stored as RFC 3339 UTC strings so the schema and
// the cutoff comparison behave identically across drivers.
type SQLStore struct {
	db           *sql.DB
	driver       string
	ownersTable  string
	uploadsTable string
	placeholder  placeholderStyle
}

func NewSQLStore(cfg *config.SQLMetadataStrategy, tablePrefix *string) (*SQLStore, error) {
	store, err := newSQLStoreWithDB(cfg, tablePrefix, nil)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	store.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func newSQLStoreWithDB(cfg *config.SQLMetadataStrategy, tablePrefix *string, db *sql.DB) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("metadata sql config is nil")
	}

	prefix := "clipvault"
	if tablePrefix != nil {
		prefix = *tablePrefix
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:           db,
		driver:       strings.ToLower(cfg.Driver),
		ownersTable:  storageutil.DeriveTableName(prefix, "owners"),
		uploadsTable: storageutil.DeriveTableName(prefix, "uploads"),
		placeholder:  placeholder,
	}, nil
}

func detectPlaceholderStyle(driver string) (placeholderStyle, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return placeholderQuestion, err
	}

	if driverName == "pgx" {
		return placeholderDollar, nil
	}

	return placeholderQuestion, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, query := range []string{s.ownersSchemaQuery(), s.uploadsSchemaQuery()} {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLStore) ownersSchemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
owner_id VARCHAR(64) PRIMARY KEY,
storage_prefix TEXT NOT NULL,
upload_limit INTEGER NOT NULL DEFAULT 0
)`, s.ownersTable)
}

func (s *SQLStore) uploadsSchemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id %s,
owner_id VARCHAR(64) NOT NULL,
storage_prefix TEXT NOT NULL,
name VARCHAR(255) NOT NULL,
object_key TEXT NOT NULL,
created_at VARCHAR(35) NOT NULL,
title TEXT NOT NULL DEFAULT ''
)`, s.uploadsTable, s.idColumn())
}

// idColumn returns the driver-specific auto-assigned id definition.
func (s *SQLStore) idColumn() string {
	switch s.driver {
	case "postgres":
		return "BIGSERIAL PRIMARY KEY"
	case "sqlite":
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return "BIGINT PRIMARY KEY AUTO_INCREMENT"
	}
}

func (s *SQLStore) GetOwner(ctx context.Context, ownerID string) (*vault.OwnerConfig, error) {
	cfg := &vault.OwnerConfig{OwnerID: ownerID}
	err := s.db.QueryRowContext(ctx, s.getOwnerQuery(), ownerID).Scan(&cfg.StoragePrefix, &cfg.UploadLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (s *SQLStore) getOwnerQuery() string {
	return fmt.Sprintf(
		"SELECT storage_prefix, upload_limit FROM %s WHERE owner_id = %s",
		s.ownersTable, s.placeholderFor(1),
	)
}

func (s *SQLStore) SaveOwner(ctx context.Context, cfg *vault.OwnerConfig) error {
	_, err := s.db.ExecContext(ctx, s.saveOwnerQuery(), cfg.OwnerID, cfg.StoragePrefix, cfg.UploadLimit)
	return err
}

func (s *SQLStore) saveOwnerQuery() string {
	if s.placeholder == placeholderDollar {
		return fmt.Sprintf(
			`INSERT INTO %s (owner_id, storage_prefix, upload_limit) VALUES ($1, $2, $3)
ON CONFLICT (owner_id) DO UPDATE SET storage_prefix = EXCLUDED.storage_prefix, upload_limit = EXCLUDED.upload_limit`,
			s.ownersTable,
		)
	}

	// REPLACE INTO is understood by both MySQL and SQLite.
	return fmt.Sprintf("REPLACE INTO %s (owner_id, storage_prefix, upload_limit) VALUES (?, ?, ?)", s.ownersTable)
}

func (s *SQLStore) InsertUpload(ctx context.Context, rec *vault.UploadRecord) error {
	createdAt := rec.CreatedAt.UTC().Format(time.RFC3339)

	if s.placeholder == placeholderDollar {
		query := s.insertUploadQuery() + " RETURNING id"
		return s.db.QueryRowContext(ctx, query,
			rec.OwnerID, rec.StoragePrefix, rec.Name, rec.ObjectKey, createdAt, rec.Title,
		).Scan(&rec.ID)
	}

	res, err := s.db.ExecContext(ctx, s.insertUploadQuery(),
		rec.OwnerID, rec.StoragePrefix, rec.Name, rec.ObjectKey, createdAt, rec.Title,
	)
	if err != nil {
		return err
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}

	return nil
}

func (s *SQLStore) insertUploadQuery() string {
	return fmt.Sprintf(
		"INSERT INTO %s (owner_id, storage_prefix, name, object_key, created_at, title) VALUES (%s, %s, %s, %s, %s, %s)",
		s.uploadsTable,
		s.placeholderFor(1),
		s.placeholderFor(2),
		s.placeholderFor(3),
		s.placeholderFor(4),
		s.placeholderFor(5),
		s.placeholderFor(6),
	)
}

func (s *SQLStore) ListByOwner(ctx context.Context, ownerID string) ([]vault.UploadRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.listByOwnerQuery(), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUploadRows(rows)
}

func (s *SQLStore) listByOwnerQuery() string {
	return fmt.Sprintf(
		"SELECT id, owner_id, storage_prefix, name, object_key, created_at, title FROM %s WHERE owner_id = %s ORDER BY created_at DESC, id DESC",
		s.uploadsTable, s.placeholderFor(1),
	)
}

func (s *SQLStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.countByOwnerQuery(), ownerID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (s *SQLStore) countByOwnerQuery() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE owner_id = %s", s.uploadsTable, s.placeholderFor(1))
}

func (s *SQLStore) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.countAllQuery()).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (s *SQLStore) countAllQuery() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", s.uploadsTable)
}

func (s *SQLStore) DeleteByOwnerAndName(ctx context.Context, ownerID, name string) error {
	_, err := s.db.ExecContext(ctx, s.deleteQuery(), ownerID, name)
	return err
}

func (s *SQLStore) deleteQuery() string {
	return fmt.Sprintf(
		"DELETE FROM %s WHERE owner_id = %s AND name = %s",
		s.uploadsTable, s.placeholderFor(1), s.placeholderFor(2),
	)
}

func (s *SQLStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]vault.UploadRecord, error) {
	// RFC 3339 UTC strings order lexicographically, so string comparison
	// matches time comparison here.
	rows, err := s.db.QueryContext(ctx, s.listOlderThanQuery(), cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanUploadRows(rows)
}

func (s *SQLStore) listOlderThanQuery() string {
	return fmt.Sprintf(
		"SELECT id, owner_id, storage_prefix, name, object_key, created_at, title FROM %s WHERE created_at < %s ORDER BY created_at ASC",
		s.uploadsTable, s.placeholderFor(1),
	)
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *SQLStore) placeholderFor(index int) string {
	if s.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}

func scanUploadRows(rows *sql.Rows) ([]vault.UploadRecord, error) {
	var result []vault.UploadRecord

	for rows.Next() {
		var rec vault.UploadRecord
		var createdAt string

		err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.StoragePrefix, &rec.Name, &rec.ObjectKey, &createdAt, &rec.Title)
		if err != nil {
			return nil, err
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
		}

		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
