// Package vault holds the domain model shared by the upload pipeline, the
// entry browser and the retention sweeper, along with the error taxonomy
// those components report through.
package vault

import "time"

// Extension is appended to every stored object; uploads are normalized to an
// MP4 container before they reach the object store.
const Extension = ".mp4"

// OwnerConfig is the per-owner storage configuration. At most one exists per
// owner; it is created lazily on first upload and mutated by admin
// reconfiguration, never deleted.
type OwnerConfig struct {
	OwnerID       string
	StoragePrefix string
	UploadLimit   int
}

// Unlimited reports whether the owner has no upload cap of their own. The
// effective limit then falls back to the configured default.
func (c *OwnerConfig) Unlimited() bool {
	return c.UploadLimit <= 0
}

// UploadRecord describes one stored artifact. StoragePrefix is a snapshot
// taken at creation time; ObjectKey never changes afterwards.
type UploadRecord struct {
	ID            int64
	OwnerID       string
	StoragePrefix string
	Name          string
	ObjectKey     string
	CreatedAt     time.Time
	Title         string
}

// DisplayName returns the title when one was captured, otherwise the name.
func (r *UploadRecord) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}

	return r.Name
}

// FileName returns the owner-facing file name including the extension.
func (r *UploadRecord) FileName() string {
	return r.Name + Extension
}

// ObjectKeyFor derives the object-store location for a named upload under a
// storage prefix.
func ObjectKeyFor(storagePrefix, name string) string {
	return storagePrefix + "/" + name + Extension
}
