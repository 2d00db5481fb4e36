// Package upload orchestrates one upload request end-to-end: validation,
// quota and duplicate checks, external fetch, encoding normalization, object
// storage and metadata recording.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gosimple/slug"

	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/media"
	"github.com/indieinfra/clipvault/storage/meta"
	"github.com/indieinfra/clipvault/storage/object"
	"github.com/indieinfra/clipvault/vault"
)

// Result is returned on a successful submission.
type Result struct {
	Record     *vault.UploadRecord
	PublicURL  string
	VideoCodec string
	AudioCodec string
}

type Pipeline struct {
	meta         meta.Store
	objects      object.Store
	fetcher      media.Fetcher
	defaultLimit int
	log          logging.Logger
	now          func() time.Time

	// Serializes steps 4–9 per owner so two uploads with the same name
	// cannot both pass the duplicate check.
	ownerMu sync.Mutex
	owners  map[string]*sync.Mutex
}

func NewPipeline(metaStore meta.Store, objects object.Store, fetcher media.Fetcher, defaultLimit int, log logging.Logger) *Pipeline {
	return &Pipeline{
		meta:         metaStore,
		objects:      objects,
		fetcher:      fetcher,
		defaultLimit: defaultLimit,
		log:          log,
		now:          time.Now,
		owners:       make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) lockOwner(ownerID string) *sync.Mutex {
	p.ownerMu.Lock()
	mu, ok := p.owners[ownerID]
	if !ok {
		mu = &sync.Mutex{}
		p.owners[ownerID] = mu
	}
	p.ownerMu.Unlock()

	mu.Lock()
	return mu
}

// Submit turns (owner, source reference, requested name) into a persisted
// upload record. The owner's display name seeds the storage prefix on first
// upload. Temporary files are removed on every exit path.
func (p *Pipeline) Submit(ctx context.Context, ownerID, ownerDisplayName, sourceRef, requestedName string) (*Result, error) {
	if !media.ValidReference(sourceRef) {
		return nil, vault.ErrInvalidReference
	}

	if !media.ValidName(requestedName) {
		return nil, vault.ErrInvalidName
	}

	ref, itemID := media.Canonicalize(sourceRef)
	log := p.log.With("owner", ownerID, "name", requestedName, "item", itemID)

	mu := p.lockOwner(ownerID)
	defer mu.Unlock()

	cfg, err := p.resolveOwner(ctx, ownerID, ownerDisplayName)
	if err != nil {
		return nil, &vault.RecordError{Op: "resolve owner", Key: ownerID, Err: err}
	}

	existing, err := p.meta.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &vault.RecordError{Op: "list uploads", Key: ownerID, Err: err}
	}

	for i := range existing {
		if existing[i].Name == requestedName {
			return nil, vault.ErrDuplicateName
		}
	}

	limit := cfg.UploadLimit
	if cfg.Unlimited() {
		limit = p.defaultLimit
	}
	if limit > 0 && len(existing) >= limit {
		return nil, vault.ErrQuotaExceeded
	}

	fetched, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() {
		if removeErr := os.Remove(fetched.LocalPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			log.Warn(ctx, "temp file cleanup failed", "path", fetched.LocalPath, "error", removeErr)
		}
	}()

	p.normalizeIfNeeded(ctx, log, fetched)

	objectKey := vault.ObjectKeyFor(cfg.StoragePrefix, requestedName)

	if err := p.objects.Put(ctx, fetched.LocalPath, objectKey); err != nil {
		return nil, &vault.StorageError{Op: "put", Key: objectKey, Err: err}
	}

	rec := &vault.UploadRecord{
		OwnerID:       ownerID,
		StoragePrefix: cfg.StoragePrefix,
		Name:          requestedName,
		ObjectKey:     objectKey,
		CreatedAt:     p.now().UTC(),
		Title:         fetched.Title,
	}

	if err := p.meta.InsertUpload(ctx, rec); err != nil {
		// The blob landed but the record did not: orphaned until someone
		// reconciles it by hand.
		log.Error(ctx, "record write failed after successful store", "key", objectKey, "error", err)
		return nil, &vault.RecordError{Op: "insert upload", Key: objectKey, Err: err}
	}

	log.Info(ctx, "upload stored", "key", objectKey, "video_codec", fetched.VideoCodec, "audio_codec", fetched.AudioCodec)

	return &Result{
		Record:     rec,
		PublicURL:  p.objects.PublicURL(objectKey),
		VideoCodec: fetched.VideoCodec,
		AudioCodec: fetched.AudioCodec,
	}, nil
}

// resolveOwner fetches the owner configuration, creating a default one on
// first upload. The storage prefix defaults to the slugified display name.
func (p *Pipeline) resolveOwner(ctx context.Context, ownerID, displayName string) (*vault.OwnerConfig, error) {
	cfg, err := p.meta.GetOwner(ctx, ownerID)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, meta.ErrNotFound) {
		return nil, err
	}

	prefix := slug.Make(displayName)
	if prefix == "" {
		prefix = ownerID
	}

	cfg = &vault.OwnerConfig{
		OwnerID:       ownerID,
		StoragePrefix: prefix,
		UploadLimit:   p.defaultLimit,
	}

	if err := p.meta.SaveOwner(ctx, cfg); err != nil {
		return nil, fmt.Errorf("create owner config: %w", err)
	}

	p.log.Info(ctx, "owner config created", "owner", ownerID, "prefix", prefix)
	return cfg, nil
}

// normalizeIfNeeded re-encodes the fetched file into the target profile,
// replacing it atomically on success. A failed re-encode keeps the original
// file: degraded playback beats a failed upload.
func (p *Pipeline) normalizeIfNeeded(ctx context.Context, log logging.Logger, fetched *media.FetchResult) {
	if !fetched.NeedsNormalization() {
		return
	}

	converted := fetched.LocalPath + ".converted" + vault.Extension

	if err := p.fetcher.Normalize(ctx, fetched.LocalPath, converted); err != nil {
		log.Warn(ctx, "normalization failed, keeping original encoding", "video_codec", fetched.VideoCodec, "error", err)
		return
	}

	if err := os.Rename(converted, fetched.LocalPath); err != nil {
		log.Warn(ctx, "failed to swap in normalized file", "error", err)
		_ = os.Remove(converted)
		return
	}

	fetched.VideoCodec = "h264"
	fetched.AudioCodec = "aac"
}
