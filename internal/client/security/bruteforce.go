// Package security guards local PIN entry against guessing: after Limit
// failed attempts the device refuses further attempts for BlockDuration.
package security

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/repositories/metadata"
)

const stateKey = "brute_force_state"

type Config struct {
	Limit         int
	BlockDuration time.Duration
}

func DefaultConfig() Config {
	return Config{Limit: 5, BlockDuration: 20 * time.Minute}
}

// State is either allowed, with attempts remaining, or blocked until
// BlockedUntil.
type State struct {
	Blocked           bool
	AttemptsMade      int
	AttemptsRemaining int
	BlockedUntil      time.Time
}

type record struct {
	FailedAttempts int        `json:"failed_attempts"`
	LimitReachedAt *time.Time `json:"limit_reached_at,omitempty"`
}

// BruteForceProtection keeps its counters in the preferences store so they
// survive restarts.
type BruteForceProtection struct {
	store metadata.Repository
	cfg   Config
	now   func() time.Time

	mu sync.Mutex
}

func NewBruteForceProtection(store metadata.Repository, cfg Config, now func() time.Time) *BruteForceProtection {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = def.BlockDuration
	}
	if now == nil {
		now = time.Now
	}
	return &BruteForceProtection{store: store, cfg: cfg, now: now}
}

func (p *BruteForceProtection) load(ctx context.Context) (record, error) {
	var r record
	if _, err := metadata.GetJSON(ctx, p.store, stateKey, &r); err != nil {
		return record{}, fmt.Errorf("load brute force state: %w", err)
	}
	return r, nil
}

func (p *BruteForceProtection) expired(r record) bool {
	return r.LimitReachedAt != nil && !p.now().Before(r.LimitReachedAt.Add(p.cfg.BlockDuration))
}

// IncrementFailedAttempt counts one wrong PIN. Reaching the limit starts the
// block; attempts made while blocked do not extend it.
func (p *BruteForceProtection) IncrementFailedAttempt(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.load(ctx)
	if err != nil {
		return err
	}
	if p.expired(r) {
		r = record{}
	}

	r.FailedAttempts++
	if r.FailedAttempts >= p.cfg.Limit && r.LimitReachedAt == nil {
		at := p.now().UTC()
		r.LimitReachedAt = &at
	}
	if err := metadata.SetJSON(ctx, p.store, stateKey, r); err != nil {
		return fmt.Errorf("save brute force state: %w", err)
	}
	return nil
}

func (p *BruteForceProtection) ResetFailedAttempts(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Delete(ctx, stateKey); err != nil {
		return fmt.Errorf("reset brute force state: %w", err)
	}
	return nil
}

// State reports whether another attempt is allowed. An elapsed block is
// cleared on read.
func (p *BruteForceProtection) State(ctx context.Context) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.load(ctx)
	if err != nil {
		return State{}, err
	}

	if p.expired(r) {
		if err := p.store.Delete(ctx, stateKey); err != nil {
			return State{}, fmt.Errorf("reset brute force state: %w", err)
		}
		r = record{}
	}

	if r.LimitReachedAt != nil {
		return State{
			Blocked:      true,
			AttemptsMade: r.FailedAttempts,
			BlockedUntil: r.LimitReachedAt.Add(p.cfg.BlockDuration),
		}, nil
	}

	return State{
		AttemptsMade:      r.FailedAttempts,
		AttemptsRemaining: max(p.cfg.Limit-r.FailedAttempts, 0),
	}, nil
}
