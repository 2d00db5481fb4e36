package factory

import (
	"context"
	"testing"
	"time"

	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/storage/meta"
	"github.com/indieinfra/clipvault/vault"
)

type fakeMetaStore struct{}

func (fakeMetaStore) GetOwner(context.Context, string) (*vault.OwnerConfig, error) {
	return nil, meta.ErrNotFound
}
func (fakeMetaStore) SaveOwner(context.Context, *vault.OwnerConfig) error     { return nil }
func (fakeMetaStore) InsertUpload(context.Context, *vault.UploadRecord) error { return nil }
func (fakeMetaStore) ListByOwner(context.Context, string) ([]vault.UploadRecord, error) {
	return nil, nil
}
func (fakeMetaStore) CountByOwner(context.Context, string) (int, error) { return 0, nil }
func (fakeMetaStore) CountAll(context.Context) (int, error)             { return 0, nil }
func (fakeMetaStore) DeleteByOwnerAndName(context.Context, string, string) error {
	return nil
}
func (fakeMetaStore) ListOlderThan(context.Context, time.Time) ([]vault.UploadRecord, error) {
	return nil, nil
}
func (fakeMetaStore) Close() error { return nil }

func TestRegisterAndGet(t *testing.T) {
	Register("fake", func(cfg *config.Metadata) (meta.Store, error) {
		return fakeMetaStore{}, nil
	})

	factory, ok := Get("fake")
	if !ok {
		t.Fatalf("expected factory to be registered")
	}

	store, err := factory(&config.Metadata{})
	if err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if _, ok := store.(fakeMetaStore); !ok {
		t.Fatalf("unexpected store type: %T", store)
	}
}

func TestCreateUnknownStrategy(t *testing.T) {
	cfg := &config.Metadata{Strategy: "missing"}
	if _, err := Create(cfg); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestBuiltinStrategiesRegistered(t *testing.T) {
	for _, strategy := range []string{"sql", "d1"} {
		if _, ok := Get(strategy); !ok {
			t.Fatalf("expected %q strategy to be registered", strategy)
		}
	}
}
