package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config points the S3 reporter at a bucket. An empty BaseEndpoint uses
// AWS; set it for MinIO and similar stores.
type S3Config struct {
	Bucket         string
	Prefix         string
	Region         string
	BaseEndpoint   string
	AccessKeyID    string
	SecretKey      string
	FlushThreshold int
}

// PutObjectAPI is the part of *s3.Client the reporter uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds an S3 client from cfg. Static credentials are used
// when given, otherwise the default AWS chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Reporter buffers events and uploads them as one NDJSON object per
// flush. Events stay buffered when an upload fails.
type S3Reporter struct {
	api    PutObjectAPI
	cfg    S3Config
	now    func() time.Time
	newKey func() string

	mu     sync.Mutex
	userID string
	buf    []Event
}

func NewS3Reporter(api PutObjectAPI, cfg S3Config) *S3Reporter {
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = 100
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "analytics"
	}
	return &S3Reporter{api: api, cfg: cfg, now: time.Now, newKey: func() string { return uuid.NewString() }}
}

func (r *S3Reporter) SetUserID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = id.String()
	return nil
}

func (r *S3Reporter) ClearUserID(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userID = ""
	return nil
}

func (r *S3Reporter) Report(ctx context.Context, e Event) error {
	r.mu.Lock()
	e.UserID = r.userID
	r.buf = append(r.buf, e)
	full := len(r.buf) >= r.cfg.FlushThreshold
	r.mu.Unlock()

	if full {
		return r.Flush(ctx)
	}
	return nil
}

// Pending returns the number of buffered events.
func (r *S3Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

func (r *S3Reporter) objectKey() string {
	d := r.now().UTC()
	return path.Join(r.cfg.Prefix, fmt.Sprintf("%d/%02d/%02d", d.Year(), d.Month(), d.Day()), r.newKey()+".ndjson")
}

// Flush uploads the buffered events.
func (r *S3Reporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	events := r.buf
	r.buf = nil
	r.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			r.requeue(events)
			return fmt.Errorf("encode event %s: %w", e.Name, err)
		}
	}

	key := r.objectKey()
	_, err := r.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		r.requeue(events)
		return fmt.Errorf("upload analytics %s: %w", key, err)
	}
	return nil
}

func (r *S3Reporter) requeue(events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(events, r.buf...)
}
