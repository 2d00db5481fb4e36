// Package sweep enforces the maximum retention age: a recurring pass that
// deletes expired uploads from the object store and the metadata store,
// tolerating partial failure.
package sweep

import (
	"context"
	"time"

	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/storage/meta"
	"github.com/indieinfra/clipvault/storage/object"
)

// Failure names one entry the sweep could not remove.
type Failure struct {
	ObjectKey string
	Reason    string
}

// Report aggregates one sweep pass for observability.
type Report struct {
	Found    int
	Deleted  int
	Failed   int
	Failures []Failure
}

type Sweeper struct {
	meta      meta.Store
	objects   object.Store
	retention time.Duration
	log       logging.Logger
}

func NewSweeper(metaStore meta.Store, objects object.Store, retention time.Duration, log logging.Logger) *Sweeper {
	return &Sweeper{
		meta:      metaStore,
		objects:   objects,
		retention: retention,
		log:       log,
	}
}

// Sweep deletes every upload older than the retention period, blob before
// record so a mid-sweep crash never strands a still-referenced blob. A
// failed blob deletion leaves that entry's record intact and the sweep moves
// on. Stateless and safe to invoke concurrently: re-deleting an absent blob
// succeeds and re-deleting an absent record is a no-op.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*Report, error) {
	cutoff := now.Add(-s.retention)

	expired, err := s.meta.ListOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report := &Report{Found: len(expired)}
	s.log.Info(ctx, "sweep started", "cutoff", cutoff, "found", report.Found)

	for i := range expired {
		entry := &expired[i]

		if err := s.objects.Delete(ctx, entry.ObjectKey); err != nil {
			s.log.Error(ctx, "sweep blob deletion failed", "key", entry.ObjectKey, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, Failure{ObjectKey: entry.ObjectKey, Reason: err.Error()})
			continue
		}

		if err := s.meta.DeleteByOwnerAndName(ctx, entry.OwnerID, entry.Name); err != nil {
			s.log.Error(ctx, "sweep record deletion failed", "key", entry.ObjectKey, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, Failure{ObjectKey: entry.ObjectKey, Reason: err.Error()})
			continue
		}

		report.Deleted++
		s.log.Debug(ctx, "sweep deleted entry", "key", entry.ObjectKey)
	}

	s.log.Info(ctx, "sweep finished", "found", report.Found, "deleted", report.Deleted, "failed", report.Failed)
	return report, nil
}
