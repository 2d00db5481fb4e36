package meta

import (
	"context"
	"errors"
	"time"

	"github.com/indieinfra/clipvault/vault"
)

// ErrNotFound indicates that a requested row does not exist.
var ErrNotFound = errors.New("metadata not found")

// Store is the durable keyed record store for owner configuration and upload
// history. Implementations must be safe for concurrent use.
type Store interface {
	// GetOwner returns the configuration for an owner, or ErrNotFound.
	GetOwner(ctx context.Context, ownerID string) (*vault.OwnerConfig, error)

	// SaveOwner inserts or overwrites an owner configuration (last writer wins).
	SaveOwner(ctx context.Context, cfg *vault.OwnerConfig) error

	// InsertUpload appends a completed upload to the history and fills in the
	// store-assigned record id when the backend reports one.
	InsertUpload(ctx context.Context, rec *vault.UploadRecord) error

	// ListByOwner returns an owner's uploads, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]vault.UploadRecord, error)

	// CountByOwner returns the number of active uploads an owner holds.
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// CountAll returns the number of active uploads across all owners.
	CountAll(ctx context.Context) (int, error)

	// DeleteByOwnerAndName removes one upload record. Deleting a record that
	// is already gone is a no-op, not an error.
	DeleteByOwnerAndName(ctx context.Context, ownerID, name string) error

	// ListOlderThan returns every upload created strictly before the cutoff,
	// across all owners, in a single batch read.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]vault.UploadRecord, error)

	Close() error
}
