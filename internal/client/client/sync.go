package client

import (
	"context"

	"github.com/dmitrijs2005/clinicsync/internal/rpc"
)

// SyncAPI pushes and pulls records of one resource.
type SyncAPI[T any] struct {
	client   *GRPCClient
	resource rpc.Resource
}

func NewSyncAPI[T any](c *GRPCClient, resource rpc.Resource) *SyncAPI[T] {
	return &SyncAPI[T]{client: c, resource: resource}
}

func (a *SyncAPI[T]) Resource() rpc.Resource { return a.resource }

// Push sends records in one request. The server deduplicates by id, so a
// retried push is harmless. Records the server refused are returned as
// validation errors; the call itself still succeeds.
func (a *SyncAPI[T]) Push(ctx context.Context, records []T) ([]rpc.ValidationError, error) {
	req := &rpc.PushRequest[T]{Records: records}
	resp, err := call[rpc.PushRequest[T], rpc.PushResponse](ctx, a.client,
		rpc.FullMethod(a.resource.Service(), rpc.MethodPush), req)
	if err != nil {
		return nil, err
	}
	return resp.Errors, nil
}

// Pull fetches up to limit records after token.
func (a *SyncAPI[T]) Pull(ctx context.Context, limit int, token string) (*rpc.PullResponse[T], error) {
	req := &rpc.PullRequest{Limit: limit, ProcessToken: token}
	return call[rpc.PullRequest, rpc.PullResponse[T]](ctx, a.client,
		rpc.FullMethod(a.resource.Service(), rpc.MethodPull), req)
}
