// Package records implements push and pull for the synced resources.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/dmitrijs2005/clinicsync/internal/server/store"
	"github.com/google/uuid"
)

// MaxPullLimit caps the page size a client may ask for.
const MaxPullLimit = 1000

const blank = "can't be blank"

// requiredFields lists the fields a pushed record of each resource must
// carry with a non-empty value.
var requiredFields = map[rpc.Resource][]string{
	rpc.ResourcePatients:         {"full_name"},
	rpc.ResourceBloodPressures:   {"patient_id", "systolic", "diastolic"},
	rpc.ResourcePrescriptions:    {"patient_id", "name"},
	rpc.ResourceAppointments:     {"patient_id", "scheduled_date"},
	rpc.ResourceMedicalHistories: {"patient_id"},
}

type Service struct {
	repo   store.RecordStore
	logger logging.Logger
}

func NewService(repo store.RecordStore, l logging.Logger) *Service {
	if l == nil {
		l = logging.Nop()
	}
	return &Service{repo: repo, logger: l.With("module", "records")}
}

// Push stores the valid records and reports the others. A record already
// stored with a newer updated_at is kept, so pushing twice is harmless.
func (s *Service) Push(ctx context.Context, resource rpc.Resource, raw []json.RawMessage) ([]rpc.ValidationError, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("%w: unknown resource %q", common.ErrValidation, resource)
	}

	var (
		accepted []store.Record
		rejected []rpc.ValidationError
	)
	for _, r := range raw {
		rec, verr := validate(resource, r)
		if verr != nil {
			rejected = append(rejected, *verr)
			continue
		}
		accepted = append(accepted, rec)
	}

	if err := s.repo.Upsert(ctx, resource, accepted); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "records pushed", "resource", string(resource),
		"accepted", len(accepted), "rejected", len(rejected))
	return rejected, nil
}

func validate(resource rpc.Resource, raw json.RawMessage) (store.Record, *rpc.ValidationError) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return store.Record{}, &rpc.ValidationError{Fields: map[string][]string{"record": {"is not an object"}}}
	}

	var env rpc.RecordEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		id, _ := uuid.Parse(fmt.Sprint(fields["id"]))
		return store.Record{}, &rpc.ValidationError{ID: id, Fields: map[string][]string{"record": {err.Error()}}}
	}

	problems := map[string][]string{}
	if env.ID == uuid.Nil {
		problems["id"] = []string{blank}
	}
	if env.UpdatedAt.IsZero() {
		problems["updated_at"] = []string{blank}
	}
	for _, name := range requiredFields[resource] {
		if isBlank(fields[name]) {
			problems[name] = []string{blank}
		}
	}
	if len(problems) > 0 {
		return store.Record{}, &rpc.ValidationError{ID: env.ID, Fields: problems}
	}

	return store.Record{
		ID:        env.ID,
		UpdatedAt: env.UpdatedAt.UTC(),
		DeletedAt: env.DeletedAt,
		Data:      raw,
	}, nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == uuid.Nil.String()
	case float64:
		return t == 0
	}
	return false
}

// Pull returns up to limit records changed after token and the token to
// resume from. An empty page returns the token unchanged.
func (s *Service) Pull(ctx context.Context, resource rpc.Resource, limit int, token string) (*rpc.PullResponse[json.RawMessage], error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("%w: unknown resource %q", common.ErrValidation, resource)
	}

	var after int64
	if token != "" {
		v, err := strconv.ParseInt(token, 10, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: bad process token %q", common.ErrValidation, token)
		}
		after = v
	}
	switch {
	case limit <= 0:
		limit = common.DefaultPullBatchSize
	case limit > MaxPullLimit:
		limit = MaxPullLimit
	}

	recs, err := s.repo.ChangesSince(ctx, resource, after, limit)
	if err != nil {
		return nil, err
	}

	resp := &rpc.PullResponse[json.RawMessage]{
		Records:      make([]json.RawMessage, 0, len(recs)),
		ProcessToken: token,
	}
	for _, r := range recs {
		resp.Records = append(resp.Records, r.Data)
	}
	if n := len(recs); n > 0 {
		resp.ProcessToken = strconv.FormatInt(recs[n-1].Seq, 10)
	}
	return resp, nil
}
