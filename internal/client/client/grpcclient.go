package client

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenSource supplies the access token for outbound calls. An empty token
// means the call goes out unauthenticated.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) AccessToken(ctx context.Context) (string, error) { return f(ctx) }

// FailureObserver is told about every failed call, after mapping.
type FailureObserver func(ctx context.Context, method string, err error)

type Option func(*GRPCClient)

// WithTimeout bounds every call; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *GRPCClient) { c.timeout = d }
}

// WithDialOptions appends dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOpts = append(c.dialOpts, opts...) }
}

func WithFailureObserver(o FailureObserver) Option {
	return func(c *GRPCClient) { c.observer = o }
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	timeout     time.Duration
	dialOpts    []grpc.DialOption
	observer    FailureObserver

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
}

func NewGRPCClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: 30 * time.Second}
	for _, o := range opts {
		o(c)
	}

	dial := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(c.accessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(endpointURL, dial...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// SetTokenSource installs the source of access tokens.
func (c *GRPCClient) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// OnUnauthorized registers fn to run when an authenticated call is
// rejected with Unauthenticated.
func (c *GRPCClient) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	c.mu.RLock()
	tokens, onUnauthorized := c.tokens, c.onUnauthorized
	c.mu.RUnlock()

	var token string
	if tokens != nil {
		t, err := tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		token = t
	}
	if token != "" {
		ctx = withAccessToken(ctx, token)
	}

	err := invoker(ctx, method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	if token != "" && onUnauthorized != nil && status.Code(err) == codes.Unauthenticated {
		onUnauthorized(context.WithoutCancel(ctx))
	}
	return err
}

// call runs one unary method with the client timeout and error mapping.
func call[Req, Resp any](ctx context.Context, c *GRPCClient, method string, req *Req) (*Resp, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := rpc.Call[Req, Resp](ctx, c.conn, method, req)
	if err != nil {
		err = mapError(err)
		if c.observer != nil {
			c.observer(ctx, method, err)
		}
		return nil, err
	}
	return resp, nil
}
