// Package telemetry fans analytics events out to a set of reporters. A
// reporter that fails is logged and skipped; callers never see its error.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/google/uuid"
)

const (
	EventPendingRecordsFound = "pending_records_found_on_logout"
	EventDataCleared         = "data_cleared"
	EventSyncFinished        = "sync_finished"
	EventNetworkCallFailed   = "network_call_failed"
)

type Event struct {
	Name   string         `json:"name"`
	At     time.Time      `json:"at"`
	UserID string         `json:"user_id,omitempty"`
	Props  map[string]any `json:"props,omitempty"`
}

// Reporter delivers events to one sink.
type Reporter interface {
	SetUserID(ctx context.Context, id uuid.UUID) error
	ClearUserID(ctx context.Context) error
	Report(ctx context.Context, e Event) error
}

type Analytics struct {
	logger logging.Logger
	now    func() time.Time

	mu        sync.RWMutex
	reporters []Reporter
}

func New(l logging.Logger, reporters ...Reporter) *Analytics {
	if l == nil {
		l = logging.Nop()
	}
	return &Analytics{logger: l.With("module", "telemetry"), now: time.Now, reporters: reporters}
}

func (a *Analytics) AddReporter(r Reporter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reporters = append(a.reporters, r)
}

func (a *Analytics) ClearReporters() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reporters = nil
}

func (a *Analytics) each(ctx context.Context, op string, fn func(Reporter) error) {
	a.mu.RLock()
	reporters := append([]Reporter(nil), a.reporters...)
	a.mu.RUnlock()

	for _, r := range reporters {
		if err := fn(r); err != nil {
			a.logger.Warn(ctx, "analytics reporter failed", "op", op, "error", err)
		}
	}
}

func (a *Analytics) SetUserID(ctx context.Context, id uuid.UUID) {
	a.each(ctx, "set_user_id", func(r Reporter) error { return r.SetUserID(ctx, id) })
}

func (a *Analytics) ClearUserID(ctx context.Context) {
	a.each(ctx, "clear_user_id", func(r Reporter) error { return r.ClearUserID(ctx) })
}

func (a *Analytics) Report(ctx context.Context, name string, props map[string]any) {
	e := Event{Name: name, At: a.now().UTC(), Props: props}
	a.each(ctx, name, func(r Reporter) error { return r.Report(ctx, e) })
}

func countsProps(counts map[string]int) map[string]any {
	props := make(map[string]any, len(counts))
	for k, v := range counts {
		props[k] = v
	}
	return props
}

// ReportPendingRecordsFound records the unsynced records still on the
// device at logout, per table. Nothing is sent when there are none.
func (a *Analytics) ReportPendingRecordsFound(ctx context.Context, counts map[string]int) {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return
	}
	a.Report(ctx, EventPendingRecordsFound, countsProps(counts))
}

// ReportDataCleared records a local wipe and what it removed.
func (a *Analytics) ReportDataCleared(ctx context.Context, counts map[string]int, reason string) {
	props := countsProps(counts)
	props["reason"] = reason
	a.Report(ctx, EventDataCleared, props)
}

// SyncFinished reports a finished sync cycle.
func (a *Analytics) SyncFinished(ctx context.Context, took time.Duration, err error) {
	props := map[string]any{"took_ms": took.Milliseconds(), "ok": err == nil}
	if err != nil {
		props["error_kind"] = string(common.KindOf(err))
	}
	a.Report(ctx, EventSyncFinished, props)
}

// NetworkCallFailed reports a failed remote call.
func (a *Analytics) NetworkCallFailed(ctx context.Context, method string, err error) {
	a.Report(ctx, EventNetworkCallFailed, map[string]any{
		"method":     method,
		"error_kind": string(common.KindOf(err)),
	})
}

// UpdateUserID tracks the analytics user from the logged in user: set while
// the user works on this device, cleared once the device is unauthorized.
// Users who have not finished logging in leave it untouched.
func (a *Analytics) UpdateUserID(ctx context.Context, u *models.User) {
	if u == nil {
		return
	}
	switch u.LoggedInStatus {
	case models.LoggedInStatusLoggedIn, models.LoggedInStatusResettingPin, models.LoggedInStatusResetPinRequested:
		a.SetUserID(ctx, u.ID)
	case models.LoggedInStatusUnauthorized:
		a.ClearUserID(ctx)
	}
}

// FollowUsers applies UpdateUserID to every user from updates until ctx is
// done or updates is closed.
func (a *Analytics) FollowUsers(ctx context.Context, updates <-chan *models.User) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			a.UpdateUserID(ctx, u)
		}
	}
}
