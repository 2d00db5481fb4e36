package meta

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/vault"
)

type d1Expectation struct {
	contains string
	rows     []map[string]any
	status   int
	success  bool
}

func newD1TestStore(t *testing.T, expectations []d1Expectation) *D1Store {
	t.Helper()

	idx := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}

		if !strings.HasSuffix(r.URL.Path, "/query") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			SQL    string   `json:"sql"`
			Params []string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}

		if idx >= len(expectations) {
			t.Fatalf("unexpected request for sql: %s", req.SQL)
		}

		exp := expectations[idx]
		idx++

		if !strings.Contains(req.SQL, exp.contains) {
			t.Fatalf("expected sql containing %q, got %q", exp.contains, req.SQL)
		}

		status := exp.status
		if status == 0 {
			status = http.StatusOK
		}

		w.WriteHeader(status)
		if !exp.success {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "errors": []map[string]any{{"message": "fail"}}})
			return
		}

		result := map[string]any{"success": true}
		if exp.rows != nil {
			result["results"] = exp.rows
		}

		resp := map[string]any{
			"success": true,
			"result":  []map[string]any{result},
		}

		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.D1MetadataStrategy{
		AccountID:  "acc",
		DatabaseID: "db",
		APIToken:   "token",
		Endpoint:   srv.URL,
	}

	store, err := newD1StoreWithClient(cfg, nil, srv.Client())
	if err != nil {
		t.Fatalf("store init: %v", err)
	}

	return store
}

func schemaExpectations() []d1Expectation {
	return []d1Expectation{
		{contains: "CREATE TABLE", success: true},
		{contains: "CREATE TABLE", success: true},
	}
}

func TestD1Store_OwnerRoundTrip(t *testing.T) {
	store := newD1TestStore(t, append(schemaExpectations(),
		d1Expectation{contains: "INSERT INTO", success: true},
		d1Expectation{contains: "SELECT storage_prefix", success: true, rows: []map[string]any{
			{"storage_prefix": "alice", "upload_limit": float64(5)},
		}},
	))

	ctx := context.Background()

	if err := store.SaveOwner(ctx, &vault.OwnerConfig{OwnerID: "owner-1", StoragePrefix: "alice", UploadLimit: 5}); err != nil {
		t.Fatalf("save owner failed: %v", err)
	}

	cfg, err := store.GetOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("get owner failed: %v", err)
	}

	if cfg.StoragePrefix != "alice" || cfg.UploadLimit != 5 {
		t.Fatalf("unexpected owner config: %+v", cfg)
	}
}

func TestD1Store_GetOwner_NotFound(t *testing.T) {
	store := newD1TestStore(t, append(schemaExpectations(),
		d1Expectation{contains: "SELECT storage_prefix", success: true, rows: []map[string]any{}},
	))

	if _, err := store.GetOwner(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestD1Store_InsertUpload_AssignsID(t *testing.T) {
	store := newD1TestStore(t, append(schemaExpectations(),
		d1Expectation{contains: "RETURNING id", success: true, rows: []map[string]any{{"id": float64(11)}}},
	))

	rec := &vault.UploadRecord{
		OwnerID:       "owner-1",
		StoragePrefix: "alice",
		Name:          "clip",
		ObjectKey:     "alice/clip.mp4",
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := store.InsertUpload(context.Background(), rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if rec.ID != 11 {
		t.Fatalf("expected assigned id 11, got %d", rec.ID)
	}
}

func TestD1Store_ListByOwner_DecodesRows(t *testing.T) {
	store := newD1TestStore(t, append(schemaExpectations(),
		d1Expectation{contains: "ORDER BY created_at DESC", success: true, rows: []map[string]any{
			{
				"id": float64(2), "owner_id": "owner-1", "storage_prefix": "alice",
				"name": "newer", "object_key": "alice/newer.mp4",
				"created_at": "2026-03-02T09:00:00Z", "title": "Second",
			},
			{
				"id": float64(1), "owner_id": "owner-1", "storage_prefix": "alice",
				"name": "older", "object_key": "alice/older.mp4",
				"created_at": "2026-03-01T09:00:00Z", "title": "",
			},
		}},
	))

	uploads, err := store.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(uploads) != 2 || uploads[0].Name != "newer" || uploads[0].ID != 2 {
		t.Fatalf("unexpected uploads: %+v", uploads)
	}

	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !uploads[0].CreatedAt.Equal(want) {
		t.Fatalf("unexpected created_at: %v", uploads[0].CreatedAt)
	}
}

func TestD1Store_CountAndDelete(t *testing.T) {
	store := newD1TestStore(t, append(schemaExpectations(),
		d1Expectation{contains: "SELECT COUNT(*)", success: true, rows: []map[string]any{{"n": float64(3)}}},
		d1Expectation{contains: "DELETE FROM", success: true},
	))

	ctx := context.Background()

	count, err := store.CountAll(ctx)
	if err != nil || count != 3 {
		t.Fatalf("count all: got %d, %v", count, err)
	}

	if err := store.DeleteByOwnerAndName(ctx, "owner-1", "gone"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestD1Store_SchemaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "errors": []map[string]any{{"code": 100, "message": "bad"}}})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.D1MetadataStrategy{
		AccountID:  "acc",
		DatabaseID: "db",
		APIToken:   "token",
		Endpoint:   srv.URL,
	}

	if _, err := newD1StoreWithClient(cfg, nil, srv.Client()); err == nil {
		t.Fatalf("expected schema failure due to api error")
	}
}
