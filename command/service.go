// Package command is the transport-facing surface: typed operations carrying
// an acting identity, permission gating, and the mapping from the internal
// error taxonomy to short user-facing messages. A chat or HTTP binding calls
// into Service; nothing in here knows about the transport.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/indieinfra/clipvault/browse"
	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/media"
	"github.com/indieinfra/clipvault/perms"
	"github.com/indieinfra/clipvault/storage/meta"
	"github.com/indieinfra/clipvault/storage/object"
	"github.com/indieinfra/clipvault/upload"
	"github.com/indieinfra/clipvault/vault"
)

// ErrUnknownSession is returned when a session id no longer resolves; the
// caller should tell the user to reopen the browser.
var ErrUnknownSession = errors.New("unknown session")

// Identity is the acting user as reported by the transport. Roles are plain
// role names; the permission checker interprets them.
type Identity struct {
	ID          string
	DisplayName string
	Roles       []string
}

// Stats summarizes vault usage for the admin status view.
type Stats struct {
	TotalUploads int
	OwnUploads   int
}

type Service struct {
	pipeline *upload.Pipeline
	sessions *browse.Registry
	meta     meta.Store
	objects  object.Store
	perms    *perms.Checker

	listPageSize int
	idleAfter    time.Duration
	log          logging.Logger
}

func NewService(pipeline *upload.Pipeline, sessions *browse.Registry, metaStore meta.Store, objects object.Store, checker *perms.Checker, listPageSize int, idleAfter time.Duration, log logging.Logger) *Service {
	return &Service{
		pipeline:     pipeline,
		sessions:     sessions,
		meta:         metaStore,
		objects:      objects,
		perms:        checker,
		listPageSize: listPageSize,
		idleAfter:    idleAfter,
		log:          log,
	}
}

// Submit runs the upload pipeline for the acting user.
func (s *Service) Submit(ctx context.Context, actor Identity, sourceRef, name string) (*upload.Result, error) {
	if !s.perms.IsUploadEligible(actor.Roles) {
		return nil, vault.ErrPermission
	}

	return s.pipeline.Submit(ctx, actor.ID, actor.DisplayName, sourceRef, name)
}

// OpenBrowser starts a browsing session over the actor's own uploads.
// Returns browse.ErrNoEntries when they have none.
func (s *Service) OpenBrowser(ctx context.Context, actor Identity) (*browse.Session, error) {
	if !s.perms.IsUploadEligible(actor.Roles) {
		return nil, vault.ErrPermission
	}

	return s.openSession(ctx, actor.ID, actor.ID)
}

// AdminBrowse starts a browsing session over another owner's uploads. Only
// admins may do this; the session still belongs exclusively to the actor.
func (s *Service) AdminBrowse(ctx context.Context, actor Identity, ownerID string) (*browse.Session, error) {
	if !s.perms.IsAdmin(actor.Roles) {
		return nil, vault.ErrPermission
	}

	return s.openSession(ctx, actor.ID, ownerID)
}

func (s *Service) openSession(ctx context.Context, viewerID, ownerID string) (*browse.Session, error) {
	entries, err := s.meta.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, &vault.RecordError{Op: "list uploads", Key: ownerID, Err: err}
	}

	session, err := browse.NewSession(viewerID, ownerID, entries, s.meta, s.objects, s.listPageSize, s.idleAfter, s.log)
	if err != nil {
		return nil, err
	}

	s.sessions.Add(session)
	s.log.Info(ctx, "browse session opened", "session", session.ID(), "viewer", viewerID, "owner", ownerID)
	return session, nil
}

func (s *Service) session(id string) (*browse.Session, error) {
	session := s.sessions.Get(id)
	if session == nil {
		return nil, ErrUnknownSession
	}

	return session, nil
}

// SwitchMode toggles a session between list and detail rendering.
func (s *Service) SwitchMode(sessionID, actorID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.SwitchMode(actorID)
}

// PageNext advances a session one page.
func (s *Service) PageNext(sessionID, actorID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.PageNext(actorID)
}

// PagePrev moves a session back one page.
func (s *Service) PagePrev(sessionID, actorID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.PagePrev(actorID)
}

// RequestDelete opens the delete confirmation dialog for a named entry.
func (s *Service) RequestDelete(sessionID, actorID, name string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.RequestDelete(actorID, name)
}

// ConfirmDelete performs the pending deletion.
func (s *Service) ConfirmDelete(ctx context.Context, sessionID, actorID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.ConfirmDelete(ctx, actorID)
}

// CancelDelete dismisses the pending deletion.
func (s *Service) CancelDelete(sessionID, actorID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.CancelDelete(actorID)
}

// CloseBrowser ends a session early.
func (s *Service) CloseBrowser(sessionID, actorID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}

	return session.CloseBy(actorID)
}

// SetOwnerLimit sets an owner's personal upload cap. Zero or negative means
// the configured default applies. Creates the owner configuration when the
// owner has never uploaded.
func (s *Service) SetOwnerLimit(ctx context.Context, actor Identity, ownerID string, limit int) error {
	if !s.perms.IsAdmin(actor.Roles) {
		return vault.ErrPermission
	}

	cfg, err := s.ownerConfig(ctx, ownerID)
	if err != nil {
		return err
	}

	cfg.UploadLimit = limit
	if err := s.meta.SaveOwner(ctx, cfg); err != nil {
		return &vault.RecordError{Op: "save owner", Key: ownerID, Err: err}
	}

	s.log.Info(ctx, "owner limit changed", "owner", ownerID, "limit", limit, "admin", actor.ID)
	return nil
}

// SetOwnerPrefix changes where an owner's future uploads land. Existing
// object keys are snapshots and keep their old prefix.
func (s *Service) SetOwnerPrefix(ctx context.Context, actor Identity, ownerID, prefix string) error {
	if !s.perms.IsAdmin(actor.Roles) {
		return vault.ErrPermission
	}

	if !media.ValidName(prefix) {
		return vault.ErrInvalidName
	}

	cfg, err := s.ownerConfig(ctx, ownerID)
	if err != nil {
		return err
	}

	cfg.StoragePrefix = prefix
	if err := s.meta.SaveOwner(ctx, cfg); err != nil {
		return &vault.RecordError{Op: "save owner", Key: ownerID, Err: err}
	}

	s.log.Info(ctx, "owner prefix changed", "owner", ownerID, "prefix", prefix, "admin", actor.ID)
	return nil
}

func (s *Service) ownerConfig(ctx context.Context, ownerID string) (*vault.OwnerConfig, error) {
	cfg, err := s.meta.GetOwner(ctx, ownerID)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, meta.ErrNotFound) {
		return nil, &vault.RecordError{Op: "get owner", Key: ownerID, Err: err}
	}

	return &vault.OwnerConfig{OwnerID: ownerID, StoragePrefix: ownerID}, nil
}

// Stats reports upload counts for the admin status view.
func (s *Service) Stats(ctx context.Context, actor Identity) (*Stats, error) {
	if !s.perms.IsAdmin(actor.Roles) {
		return nil, vault.ErrPermission
	}

	total, err := s.meta.CountAll(ctx)
	if err != nil {
		return nil, &vault.RecordError{Op: "count uploads", Key: "*", Err: err}
	}

	own, err := s.meta.CountByOwner(ctx, actor.ID)
	if err != nil {
		return nil, &vault.RecordError{Op: "count uploads", Key: actor.ID, Err: err}
	}

	return &Stats{TotalUploads: total, OwnUploads: own}, nil
}
