// Package clinic assembles the client engine: local store, transport, sync
// orchestrator, session and telemetry, behind the operations a UI or CLI
// needs.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/client/client"
	"github.com/dmitrijs2005/clinicsync/internal/client/config"
	"github.com/dmitrijs2005/clinicsync/internal/client/datasync"
	"github.com/dmitrijs2005/clinicsync/internal/client/filestorage"
	"github.com/dmitrijs2005/clinicsync/internal/client/models"
	"github.com/dmitrijs2005/clinicsync/internal/client/repositories"
	"github.com/dmitrijs2005/clinicsync/internal/client/security"
	"github.com/dmitrijs2005/clinicsync/internal/client/session"
	"github.com/dmitrijs2005/clinicsync/internal/client/telemetry"
	"github.com/dmitrijs2005/clinicsync/internal/cryptox"
	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"google.golang.org/grpc"
)

type Option func(*options)

type options struct {
	dialOpts  []grpc.DialOption
	reporters []telemetry.Reporter
	hasher    cryptox.PasswordHasher
}

// WithDialOptions is passed through to the gRPC client.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

func WithReporter(r telemetry.Reporter) Option {
	return func(o *options) { o.reporters = append(o.reporters, r) }
}

func WithHasher(h cryptox.PasswordHasher) Option {
	return func(o *options) { o.hasher = h }
}

type App struct {
	cfg    *config.Config
	logger logging.Logger

	Repos     *repositories.Repositories
	Client    *client.GRPCClient
	Sync      *datasync.DataSync
	Session   *session.Session
	Files     *filestorage.Storage
	Analytics *telemetry.Analytics

	s3     *telemetry.S3Reporter
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the local database and wires every component.
func New(ctx context.Context, cfg *config.Config, l logging.Logger, opts ...Option) (*App, error) {
	if l == nil {
		l = logging.Nop()
	}
	o := options{hasher: cryptox.NewBcryptHasher(0)}
	for _, fn := range opts {
		fn(&o)
	}

	a := &App{cfg: cfg, logger: l}
	a.Analytics = telemetry.New(l, append([]telemetry.Reporter{telemetry.NewLogReporter(l)}, o.reporters...)...)

	if cfg.TelemetryBucket != "" {
		s3cfg := telemetry.S3Config{
			Bucket:       cfg.TelemetryBucket,
			Region:       cfg.TelemetryRegion,
			BaseEndpoint: cfg.TelemetryBaseEndpoint,
			AccessKeyID:  cfg.TelemetryAccessKey,
			SecretKey:    cfg.TelemetrySecretKey,
		}
		s3c, err := telemetry.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		a.s3 = telemetry.NewS3Reporter(s3c, s3cfg)
		a.Analytics.AddReporter(a.s3)
	}

	repos, err := repositories.Open(ctx, cfg.DatabasePath, nil)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.Repos = repos

	files, err := filestorage.New(cfg.FilesDir, l)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	a.Files = files

	c, err := client.NewGRPCClient(cfg.ServerAddr,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithFailureObserver(a.Analytics.NetworkCallFailed),
		client.WithDialOptions(o.dialOpts...),
	)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("init grpc client: %w", err)
	}
	a.Client = c

	a.Sync = datasync.New(repos.Users, datasync.Entities(repos, c, cfg.SyncBatchSize, l),
		datasync.WithLogger(l), datasync.WithObserver(a.Analytics))

	guard := security.NewBruteForceProtection(repos.Metadata, security.Config{
		Limit:         cfg.BruteForceLimit,
		BlockDuration: cfg.BruteForceBlockDuration,
	}, nil)

	a.Session = session.New(session.Deps{
		Users:         repos.Users,
		Preferences:   repos.Metadata,
		Store:         repos,
		API:           c,
		Syncer:        a.Sync,
		Hasher:        o.hasher,
		Files:         files,
		BruteForce:    guard,
		Analytics:     a.Analytics,
		PullTokenKeys: datasync.PullTokenKeys(),
	}, session.Config{
		ResetPinSyncRetries: cfg.ResetPinSyncRetries,
		RetryDelay:          cfg.RetryDelay,
	}, session.WithLogger(l))

	c.SetTokenSource(a.Session)
	c.OnUnauthorized(a.Session.MarkUnauthorized)

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Analytics.FollowUsers(bg, a.Session.Subscribe(bg))
	}()

	return a, nil
}

// Close stops background work, flushes telemetry and releases the store and
// the connection.
func (a *App) Close(ctx context.Context) error {
	a.cancel()
	a.wg.Wait()

	var errs []error
	if a.s3 != nil {
		if err := a.s3.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.Analytics.ClearReporters()
	if err := a.Client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Repos.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SyncNow runs one sync cycle, or joins the one in flight.
func (a *App) SyncNow(ctx context.Context) error {
	return a.Sync.Sync(ctx)
}

// RunBackgroundSync syncs every SyncFrequency while the user may sync data.
// It blocks until ctx is done.
func (a *App) RunBackgroundSync(ctx context.Context) {
	datasync.NewScheduler(a.Sync, a.Session.CanSyncData, a.cfg.SyncFrequency, a.logger).Run(ctx)
}

// PendingSyncRecords counts the records not yet pushed, per table.
func (a *App) PendingSyncRecords(ctx context.Context) (map[string]int, error) {
	return a.Repos.PendingSyncRecordCounts(ctx)
}

// LastPulled reports, per resource, when its pull resume token was last
// stored. Resources never pulled are absent.
func (a *App) LastPulled(ctx context.Context) (map[rpc.Resource]time.Time, error) {
	out := make(map[rpc.Resource]time.Time, len(rpc.Resources))
	for _, r := range rpc.Resources {
		t, ok, err := a.Repos.Metadata.UpdatedAt(ctx, datasync.PullTokenKey(r))
		if err != nil {
			return nil, err
		}
		if ok {
			out[r] = t
		}
	}
	return out, nil
}

// AccessTokenExpiry reports when the stored access token expires. ok is false
// when there is no token or it carries no expiry.
func (a *App) AccessTokenExpiry(ctx context.Context) (exp time.Time, ok bool, err error) {
	tok, err := a.Session.AccessToken(ctx)
	if err != nil || tok == "" {
		return time.Time{}, false, err
	}
	exp, ok = client.TokenExpiry(tok)
	return exp, ok, nil
}

// CurrentSessionState streams the logged in user; see session.Subscribe.
func (a *App) CurrentSessionState(ctx context.Context) <-chan *models.User {
	return a.Session.Subscribe(ctx)
}
