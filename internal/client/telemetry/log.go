package telemetry

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/google/uuid"
)

// LogReporter writes events to a logger.
type LogReporter struct {
	logger logging.Logger

	mu     sync.Mutex
	userID string
}

func NewLogReporter(l logging.Logger) *LogReporter {
	return &LogReporter{logger: l.With("module", "analytics")}
}

func (r *LogReporter) SetUserID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = id.String()
	return nil
}

func (r *LogReporter) ClearUserID(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = ""
	return nil
}

func (r *LogReporter) Report(ctx context.Context, e Event) error {
	r.mu.Lock()
	userID := r.userID
	r.mu.Unlock()

	keys := make([]string, 0, len(e.Props))
	for k := range e.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []any{"event", e.Name, "user_id", userID}
	for _, k := range keys {
		args = append(args, k, e.Props[k])
	}
	r.logger.Info(ctx, "analytics event", args...)
	return nil
}
