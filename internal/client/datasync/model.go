package datasync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/google/uuid"
)

// Repository is what the orchestrator needs from an entity store.
type Repository[T any] interface {
	RecordsWithSyncStatus(ctx context.Context, status models.SyncStatus) ([]T, error)
	SetSyncStatus(ctx context.Context, from, to models.SyncStatus) error
	SetSyncStatusForIDs(ctx context.Context, ids []uuid.UUID, to models.SyncStatus) error
	MergeWithRemote(ctx context.Context, payloads []T) error
}

// API is the remote side of one entity type.
type API[T any] interface {
	Push(ctx context.Context, records []T) ([]rpc.ValidationError, error)
	Pull(ctx context.Context, limit int, token string) (*rpc.PullResponse[T], error)
}

// TokenStore persists pull resume tokens. Get returns nil for a missing key.
type TokenStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// PullTokenKey is the preference key of the resume token of resource.
func PullTokenKey(resource rpc.Resource) string {
	return "last_" + string(resource) + "_pull_token"
}

// PullTokenKeys lists the resume token keys of every resource.
func PullTokenKeys() []string {
	keys := make([]string, 0, len(rpc.Resources))
	for _, r := range rpc.Resources {
		keys = append(keys, PullTokenKey(r))
	}
	return keys
}

// EntitySync syncs one entity type.
type EntitySync interface {
	Name() string
	// ResetInFlight returns records left IN_FLIGHT to PENDING.
	ResetInFlight(ctx context.Context) error
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

// ModelSync implements EntitySync over a repository and an API.
type ModelSync[T any, P interface {
	*T
	models.Record
}] struct {
	resource  rpc.Resource
	repo      Repository[T]
	api       API[T]
	tokens    TokenStore
	batchSize int
	logger    logging.Logger
}

func NewModelSync[T any, P interface {
	*T
	models.Record
}](resource rpc.Resource, repo Repository[T], api API[T], tokens TokenStore, batchSize int, l logging.Logger) *ModelSync[T, P] {
	if batchSize <= 0 {
		batchSize = DefaultConfig().BatchSize
	}
	if l == nil {
		l = logging.Nop()
	}
	return &ModelSync[T, P]{
		resource:  resource,
		repo:      repo,
		api:       api,
		tokens:    tokens,
		batchSize: batchSize,
		logger:    l.With("entity", string(resource)),
	}
}

func (m *ModelSync[T, P]) Name() string { return string(m.resource) }

func (m *ModelSync[T, P]) ResetInFlight(ctx context.Context) error {
	return m.repo.SetSyncStatus(ctx, models.SyncStatusInFlight, models.SyncStatusPending)
}

// Push claims the PENDING records by moving them IN_FLIGHT, then sends what
// was claimed. An edit landing after the claim makes its record PENDING
// again, so it is left for the next cycle instead of being marked DONE.
func (m *ModelSync[T, P]) Push(ctx context.Context) error {
	if err := m.repo.SetSyncStatus(ctx, models.SyncStatusPending, models.SyncStatusInFlight); err != nil {
		return err
	}
	// the batch must not stay IN_FLIGHT even when ctx is done
	bg := context.WithoutCancel(ctx)

	records, err := m.repo.RecordsWithSyncStatus(ctx, models.SyncStatusInFlight)
	if err != nil {
		if rerr := m.repo.SetSyncStatus(bg, models.SyncStatusInFlight, models.SyncStatusPending); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	if len(records) == 0 {
		return nil
	}

	batch := make(map[uuid.UUID]struct{}, len(records))
	for i := range records {
		batch[P(&records[i]).RecordMeta().ID] = struct{}{}
	}

	verrs, err := m.api.Push(ctx, records)
	if err != nil {
		if rerr := m.repo.SetSyncStatus(bg, models.SyncStatusInFlight, models.SyncStatusPending); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}

	invalid := make([]uuid.UUID, 0, len(verrs))
	if len(verrs) > 0 {
		// only rows still IN_FLIGHT; a rejected row edited since the claim
		// gets another push
		still, err := m.repo.RecordsWithSyncStatus(bg, models.SyncStatusInFlight)
		if err != nil {
			return err
		}
		inFlight := make(map[uuid.UUID]struct{}, len(still))
		for i := range still {
			inFlight[P(&still[i]).RecordMeta().ID] = struct{}{}
		}
		for _, v := range verrs {
			_, claimed := batch[v.ID]
			_, unchanged := inFlight[v.ID]
			if claimed && unchanged {
				invalid = append(invalid, v.ID)
			}
		}
	}
	if len(invalid) > 0 {
		m.logger.Warn(ctx, "server rejected records", "count", len(invalid))
		if err := m.repo.SetSyncStatusForIDs(bg, invalid, models.SyncStatusInvalid); err != nil {
			return err
		}
	}

	// records edited after the claim are PENDING again and keep that status
	if err := m.repo.SetSyncStatus(bg, models.SyncStatusInFlight, models.SyncStatusDone); err != nil {
		return err
	}
	m.logger.Debug(ctx, "pushed", "count", len(records), "invalid", len(invalid))
	return nil
}

func (m *ModelSync[T, P]) Pull(ctx context.Context) error {
	key := PullTokenKey(m.resource)
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := m.tokens.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read pull token: %w", err)
		}

		page, err := m.api.Pull(ctx, m.batchSize, string(raw))
		if err != nil {
			return err
		}

		if err := m.repo.MergeWithRemote(ctx, page.Records); err != nil {
			return err
		}
		if err := m.tokens.Set(ctx, key, []byte(page.ProcessToken)); err != nil {
			return fmt.Errorf("save pull token: %w", err)
		}
		pages++

		if len(page.Records) < m.batchSize {
			m.logger.Debug(ctx, "pulled", "pages", pages)
			return nil
		}
	}
}
