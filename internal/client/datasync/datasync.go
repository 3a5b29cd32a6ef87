package datasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Gate reports the session phase; cycles run only while it CanSync.
type Gate interface {
	LoggedInStatus(ctx context.Context) (models.LoggedInStatus, error)
}

// Observer is told about every finished cycle.
type Observer interface {
	SyncFinished(ctx context.Context, took time.Duration, err error)
}

type Option func(*DataSync)

func WithLogger(l logging.Logger) Option {
	return func(d *DataSync) { d.logger = l }
}

func WithObserver(o Observer) Option {
	return func(d *DataSync) { d.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(d *DataSync) { d.now = now }
}

// DataSync is the sync orchestrator.
type DataSync struct {
	entities []EntitySync
	gate     Gate
	logger   logging.Logger
	observer Observer
	now      func() time.Time

	group singleflight.Group

	mu  sync.Mutex
	cur *flight
}

// flight is the context shared by the callers of one cycle. It is cancelled
// once every caller has stopped waiting.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New builds an orchestrator over entities, synced in the given order.
func New(gate Gate, entities []EntitySync, opts ...Option) *DataSync {
	d := &DataSync{
		entities: entities,
		gate:     gate,
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	d.logger = d.logger.With("module", "datasync")
	return d
}

// Sync runs one cycle, or waits for the cycle already running and returns
// its result. Cancelling ctx stops the wait. The cycle itself is cancelled
// only when every caller waiting on it has gone, so a joiner is not
// affected by the caller that happened to start the cycle.
func (d *DataSync) Sync(ctx context.Context) error {
	f := d.join(ctx)
	defer d.leave(f)

	for {
		ch := d.group.DoChan("cycle", func() (any, error) {
			return nil, d.runCycle(f.ctx)
		})
		select {
		case res := <-ch:
			// joined a cycle whose callers had all left; run a fresh one
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil && f.ctx.Err() == nil {
				continue
			}
			return res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *DataSync) join(ctx context.Context) *flight {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		d.cur = &flight{ctx: fctx, cancel: cancel}
	}
	d.cur.waiters++
	return d.cur
}

func (d *DataSync) leave(f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if d.cur == f {
		d.cur = nil
	}
}

func (d *DataSync) allowed(ctx context.Context) error {
	status, err := d.gate.LoggedInStatus(ctx)
	if err != nil {
		return fmt.Errorf("read session status: %w", err)
	}
	if !status.CanSync() {
		return fmt.Errorf("%w: %s", common.ErrSyncNotAllowed, status)
	}
	return nil
}

func (d *DataSync) runCycle(ctx context.Context) (err error) {
	ctx = logging.WithFields(ctx, "cycle_id", uuid.NewString())
	start := d.now()
	defer func() {
		took := d.now().Sub(start)
		if err != nil {
			d.logger.Warn(ctx, "sync cycle failed", "took", took, "error", err)
		} else {
			d.logger.Info(ctx, "sync cycle finished", "took", took)
		}
		if d.observer != nil {
			d.observer.SyncFinished(ctx, took, err)
		}
	}()

	if err := d.allowed(ctx); err != nil {
		return err
	}
	d.logger.Info(ctx, "sync cycle started", "entities", len(d.entities))

	var failures []EntityFailure
	fail := func(e EntitySync, stage Stage, err error) {
		d.logger.Error(ctx, "entity sync failed", "entity", e.Name(), "stage", string(stage), "error", err)
		failures = append(failures, EntityFailure{Entity: e.Name(), Stage: stage, Err: err})
	}
	// fatal errors end the cycle for every entity type
	fatal := func(err error) bool {
		return errors.Is(err, common.ErrUnauthorized) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	}

	for _, e := range d.entities {
		if err := e.ResetInFlight(ctx); err != nil {
			fail(e, StageReset, err)
		}
	}
	if len(failures) > 0 {
		return &CycleError{Failures: failures}
	}

	for _, e := range d.entities {
		if err := d.allowed(ctx); err != nil {
			fail(e, StageGate, err)
			break
		}

		if err := e.Push(ctx); err != nil {
			fail(e, StagePush, err)
			if fatal(err) {
				break
			}
			continue
		}

		if err := e.Pull(ctx); err != nil {
			fail(e, StagePull, err)
			if fatal(err) {
				break
			}
		}
	}

	if len(failures) > 0 {
		return &CycleError{Failures: failures}
	}
	return nil
}
