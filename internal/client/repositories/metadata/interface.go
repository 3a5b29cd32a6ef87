// Package metadata is the durable key-value store behind user preferences:
// the access token, pull resume tokens, in-progress login and registration
// entries, brute-force counters and the onboarding flag.
package metadata

import (
	"context"
)

// Repository is a byte-valued key-value store. Get returns (nil, nil) for a
// missing key; deleting a missing key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
