// Package browse implements the per-owner interactive session for listing,
// paging through and deleting uploads. A session holds a point-in-time
// snapshot of the owner's records; every successful deletion mutates both
// the backing stores and the snapshot so the two never diverge from a
// browser-initiated mutation.
package browse

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/storage/meta"
	"github.com/indieinfra/clipvault/storage/object"
	"github.com/indieinfra/clipvault/vault"
)

// Mode selects how entries are rendered: a compact multi-entry list or a
// one-entry-per-page detail card.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
)

var (
	// ErrNoEntries is returned when a session would start empty; callers
	// show an empty-state message instead of opening a browser.
	ErrNoEntries = errors.New("no uploads to browse")

	// ErrClosed is returned for any operation on a closed session.
	ErrClosed = errors.New("session is closed")

	// ErrConfirmPending is returned when navigation is attempted while a
	// deletion awaits confirmation.
	ErrConfirmPending = errors.New("a deletion is awaiting confirmation")

	// ErrUnknownEntry is returned when a delete names an entry that is not
	// in the session.
	ErrUnknownEntry = errors.New("no such entry")
)

// Session is the interactive browsing state machine. ViewerID is the only
// identity allowed to operate it; OwnerID is whose entries it shows (they
// differ for admin-scoped browsing).
type Session struct {
	mu sync.Mutex

	id       string
	viewerID string
	ownerID  string

	entries       []vault.UploadRecord
	mode          Mode
	page          int
	pendingDelete string
	closed        bool

	listPageSize int
	lastActive   time.Time
	idleAfter    time.Duration

	meta    meta.Store
	objects object.Store
	log     logging.Logger
	now     func() time.Time
}

// NewSession builds a session over a snapshot of entries, newest first.
// Empty snapshots are rejected with ErrNoEntries.
func NewSession(viewerID, ownerID string, entries []vault.UploadRecord, metaStore meta.Store, objects object.Store, listPageSize int, idleAfter time.Duration, log logging.Logger) (*Session, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	if listPageSize < 1 {
		listPageSize = 1
	}

	id := uuid.New().String()

	s := &Session{
		id:           id,
		viewerID:     viewerID,
		ownerID:      ownerID,
		entries:      entries,
		mode:         ModeList,
		listPageSize: listPageSize,
		idleAfter:    idleAfter,
		meta:         metaStore,
		objects:      objects,
		log:          log.With("session", id, "owner", ownerID),
		now:          time.Now,
	}
	s.lastActive = s.now()

	return s, nil
}

func (s *Session) ID() string { return s.id }

// OwnerID returns the identity whose entries the session shows.
func (s *Session) OwnerID() string { return s.ownerID }

// checkActor enforces that only the session's viewer may operate it. It
// discloses nothing about the entries on mismatch.
func (s *Session) checkActor(actor string) error {
	if s.closed {
		return ErrClosed
	}

	if actor != s.viewerID {
		return vault.ErrPermission
	}

	s.lastActive = s.now()
	return nil
}

func (s *Session) pageSize() int {
	if s.mode == ModeDetail {
		return 1
	}

	return s.listPageSize
}

func (s *Session) totalPages() int {
	pages := (len(s.entries) + s.pageSize() - 1) / s.pageSize()
	if pages < 1 {
		pages = 1
	}

	return pages
}

// SwitchMode toggles between list and detail rendering, keeping the
// currently-viewed entry in view by mapping its absolute position into the
// new mode's page size.
func (s *Session) SwitchMode(actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return err
	}

	if s.pendingDelete != "" {
		return ErrConfirmPending
	}

	absIndex := s.page * s.pageSize()

	if s.mode == ModeList {
		s.mode = ModeDetail
		s.page = absIndex
	} else {
		s.mode = ModeList
		s.page = absIndex / s.listPageSize
	}

	s.clampPage()
	return nil
}

// PageNext advances one page; out-of-bounds requests are no-ops.
func (s *Session) PageNext(actor string) error {
	return s.movePage(actor, 1)
}

// PagePrev goes back one page; out-of-bounds requests are no-ops.
func (s *Session) PagePrev(actor string) error {
	return s.movePage(actor, -1)
}

func (s *Session) movePage(actor string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return err
	}

	if s.pendingDelete != "" {
		return ErrConfirmPending
	}

	next := s.page + delta
	if next < 0 || next >= s.totalPages() {
		return nil
	}

	s.page = next
	return nil
}

// RequestDelete enters the confirmation sub-dialog for the named entry.
// Mode and page are untouched, so a cancel restores the exact prior view.
func (s *Session) RequestDelete(actor, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return err
	}

	if s.indexOf(name) < 0 {
		return ErrUnknownEntry
	}

	s.pendingDelete = name
	return nil
}

// CancelDelete leaves the confirmation sub-dialog with no side effect.
func (s *Session) CancelDelete(actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return err
	}

	s.pendingDelete = ""
	return nil
}

// ConfirmDelete removes the pending entry: blob first, then record. A blob
// deletion failure aborts with the entry intact so the owner can retry; a
// record deletion failure after a successful blob deletion still drops the
// entry from the view so an already-deleted blob is never re-offered.
func (s *Session) ConfirmDelete(ctx context.Context, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return err
	}

	name := s.pendingDelete
	if name == "" {
		return ErrUnknownEntry
	}
	s.pendingDelete = ""

	idx := s.indexOf(name)
	if idx < 0 {
		return ErrUnknownEntry
	}

	entry := s.entries[idx]

	if err := s.objects.Delete(ctx, entry.ObjectKey); err != nil {
		s.log.Error(ctx, "blob deletion failed", "key", entry.ObjectKey, "error", err)
		return &vault.StorageError{Op: "delete", Key: entry.ObjectKey, Err: err}
	}

	var recordErr error
	if err := s.meta.DeleteByOwnerAndName(ctx, s.ownerID, name); err != nil {
		s.log.Error(ctx, "record deletion failed after blob removal", "key", entry.ObjectKey, "error", err)
		recordErr = &vault.RecordError{Op: "delete upload", Key: entry.ObjectKey, Err: err}
	}

	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)

	if len(s.entries) == 0 {
		s.closed = true
		s.log.Info(ctx, "last entry deleted, session closed")
		return recordErr
	}

	s.clampPage()
	s.log.Info(ctx, "entry deleted", "key", entry.ObjectKey)
	return recordErr
}

// CloseBy closes the session on behalf of its viewer.
func (s *Session) CloseBy(actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return err
	}

	s.closed = true
	return nil
}

// Close detaches the session; all further operations fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether the session reached its terminal state.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Expired reports whether the idle timeout elapsed since the last
// interaction.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && now.Sub(s.lastActive) > s.idleAfter
}

func (s *Session) indexOf(name string) int {
	for i := range s.entries {
		if s.entries[i].Name == name {
			return i
		}
	}

	return -1
}

func (s *Session) clampPage() {
	if last := s.totalPages() - 1; s.page > last {
		s.page = last
	}
	if s.page < 0 {
		s.page = 0
	}
}
