package meta

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflare "github.com/cloudflare/cloudflare-go/v6"
	cfd1 "github.com/cloudflare/cloudflare-go/v6/d1"
	"github.com/cloudflare/cloudflare-go/v6/option"

	"github.com/indieinfra/clipvault/config"
	storageutil "github.com/indieinfra/clipvault/storage/util"
	"github.com/indieinfra/clipvault/vault"
)

// D1Store implements Store using Cloudflare D1 via the HTTP API. It mirrors
// the schema of SQLStore (D1 speaks the SQLite dialect) to keep parity
// across backends.
type D1Store struct {
	cfg          *config.D1MetadataStrategy
	client       *cloudflare.Client
	ownersTable  string
	uploadsTable string
}

// NewD1Store builds a store and ensures the schema exists.
func NewD1Store(cfg *config.D1MetadataStrategy, tablePrefix *string) (*D1Store, error) {
	return newD1StoreWithClient(cfg, tablePrefix, nil)
}

// newD1StoreWithClient creates a D1 store with a custom HTTP client, used by
// tests to inject a fake API.
func newD1StoreWithClient(cfg *config.D1MetadataStrategy, tablePrefix *string, httpClient *http.Client) (*D1Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("metadata d1 config is nil")
	}

	prefix := "clipvault"
	if tablePrefix != nil {
		prefix = *tablePrefix
	}

	store := &D1Store{
		cfg:          cfg,
		client:       buildD1Client(cfg, httpClient),
		ownersTable:  storageutil.DeriveTableName(prefix, "owners"),
		uploadsTable: storageutil.DeriveTableName(prefix, "uploads"),
	}

	if err := store.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return store, nil
}

// buildD1Client creates a Cloudflare client configured with API token and
// optional custom endpoint. The httpClient parameter is for testing; pass
// nil for production use.
func buildD1Client(cfg *config.D1MetadataStrategy, httpClient *http.Client) *cloudflare.Client {
	opts := []option.RequestOption{option.WithAPIToken(strings.TrimSpace(cfg.APIToken))}

	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	return cloudflare.NewClient(opts...)
}

// initSchema ensures both tables exist. This doubles as a health check for
// account_id, database_id and api_token.
func (s *D1Store) initSchema(ctx context.Context) error {
	for _, query := range []string{s.ownersSchemaQuery(), s.uploadsSchemaQuery()} {
		if _, err := s.executeQuery(ctx, query, nil); err != nil {
			return fmt.Errorf("d1 initialization failed (check account_id, database_id, and api_token): %w", err)
		}
	}

	return nil
}

func (s *D1Store) ownersSchemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
owner_id TEXT PRIMARY KEY,
storage_prefix TEXT NOT NULL,
upload_limit INTEGER NOT NULL DEFAULT 0
)`, s.ownersTable)
}

func (s *D1Store) uploadsSchemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
id INTEGER PRIMARY KEY AUTOINCREMENT,
owner_id TEXT NOT NULL,
storage_prefix TEXT NOT NULL,
name TEXT NOT NULL,
object_key TEXT NOT NULL,
created_at TEXT NOT NULL,
title TEXT NOT NULL DEFAULT ''
)`, s.uploadsTable)
}

func (s *D1Store) GetOwner(ctx context.Context, ownerID string) (*vault.OwnerConfig, error) {
	query := fmt.Sprintf("SELECT storage_prefix, upload_limit FROM %s WHERE owner_id = ? LIMIT 1", s.ownersTable)

	rows, err := s.executeQuery(ctx, query, []any{ownerID})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return &vault.OwnerConfig{
		OwnerID:       ownerID,
		StoragePrefix: rowString(rows[0], "storage_prefix"),
		UploadLimit:   int(rowInt64(rows[0], "upload_limit")),
	}, nil
}

func (s *D1Store) SaveOwner(ctx context.Context, cfg *vault.OwnerConfig) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (owner_id, storage_prefix, upload_limit) VALUES (?, ?, ?)
ON CONFLICT (owner_id) DO UPDATE SET storage_prefix = excluded.storage_prefix, upload_limit = excluded.upload_limit`,
		s.ownersTable,
	)

	_, err := s.executeQuery(ctx, query, []any{cfg.OwnerID, cfg.StoragePrefix, cfg.UploadLimit})
	return err
}

func (s *D1Store) InsertUpload(ctx context.Context, rec *vault.UploadRecord) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (owner_id, storage_prefix, name, object_key, created_at, title) VALUES (?, ?, ?, ?, ?, ?) RETURNING id",
		s.uploadsTable,
	)

	rows, err := s.executeQuery(ctx, query, []any{
		rec.OwnerID, rec.StoragePrefix, rec.Name, rec.ObjectKey,
		rec.CreatedAt.UTC().Format(time.RFC3339), rec.Title,
	})
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		rec.ID = rowInt64(rows[0], "id")
	}

	return nil
}

func (s *D1Store) ListByOwner(ctx context.Context, ownerID string) ([]vault.UploadRecord, error) {
	query := fmt.Sprintf(
		"SELECT id, owner_id, storage_prefix, name, object_key, created_at, title FROM %s WHERE owner_id = ? ORDER BY created_at DESC, id DESC",
		s.uploadsTable,
	)

	rows, err := s.executeQuery(ctx, query, []any{ownerID})
	if err != nil {
		return nil, err
	}

	return decodeUploadRows(rows)
}

func (s *D1Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s WHERE owner_id = ?", s.uploadsTable)

	rows, err := s.executeQuery(ctx, query, []any{ownerID})
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		return 0, nil
	}

	return int(rowInt64(rows[0], "n")), nil
}

func (s *D1Store) CountAll(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", s.uploadsTable)

	rows, err := s.executeQuery(ctx, query, nil)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 {
		return 0, nil
	}

	return int(rowInt64(rows[0], "n")), nil
}

func (s *D1Store) DeleteByOwnerAndName(ctx context.Context, ownerID, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE owner_id = ? AND name = ?", s.uploadsTable)

	_, err := s.executeQuery(ctx, query, []any{ownerID, name})
	return err
}

func (s *D1Store) ListOlderThan(ctx context.Context, cutoff time.Time) ([]vault.UploadRecord, error) {
	query := fmt.Sprintf(
		"SELECT id, owner_id, storage_prefix, name, object_key, created_at, title FROM %s WHERE created_at < ? ORDER BY created_at ASC",
		s.uploadsTable,
	)

	rows, err := s.executeQuery(ctx, query, []any{cutoff.UTC().Format(time.RFC3339)})
	if err != nil {
		return nil, err
	}

	return decodeUploadRows(rows)
}

func (s *D1Store) Close() error { return nil }

// executeQuery sends a SQL query to the D1 database and returns the result
// rows. Returns nil rows (no error) when the query succeeds but produces no
// results.
func (s *D1Store) executeQuery(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	body := cfd1.DatabaseQueryParamsBodyD1SingleQuery{Sql: cloudflare.F(sql)}
	if len(params) > 0 {
		body.Params = cloudflare.F(convertParams(params))
	}

	resp, err := s.client.D1.Database.Query(ctx, s.cfg.DatabaseID, cfd1.DatabaseQueryParams{
		AccountID: cloudflare.F(strings.TrimSpace(s.cfg.AccountID)),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Result) == 0 {
		return nil, nil
	}

	result := resp.Result[0]
	if !result.Success {
		return nil, fmt.Errorf("d1 query execution failed")
	}

	rows := make([]map[string]any, 0, len(result.Results))
	for _, r := range result.Results {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, m)
	}

	return rows, nil
}

// convertParams converts query parameters to D1's string-based parameter
// format. Booleans become "1"/"0"; all other types use Sprint.
func convertParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}

	out := make([]string, 0, len(params))
	for _, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
		default:
			out = append(out, fmt.Sprint(p))
		}
	}

	return out
}

func decodeUploadRows(rows []map[string]any) ([]vault.UploadRecord, error) {
	var result []vault.UploadRecord

	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339, rowString(row, "created_at"))
		if err != nil {
			return nil, fmt.Errorf("bad created_at in d1 row: %w", err)
		}

		result = append(result, vault.UploadRecord{
			ID:            rowInt64(row, "id"),
			OwnerID:       rowString(row, "owner_id"),
			StoragePrefix: rowString(row, "storage_prefix"),
			Name:          rowString(row, "name"),
			ObjectKey:     rowString(row, "object_key"),
			CreatedAt:     createdAt,
			Title:         rowString(row, "title"),
		})
	}

	return result, nil
}

func rowString(row map[string]any, column string) string {
	if v, ok := row[column].(string); ok {
		return v
	}

	return ""
}

// rowInt64 reads a numeric column; D1 rows arrive as JSON, so numbers decode
// as float64.
func rowInt64(row map[string]any, column string) int64 {
	switch v := row[column].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
