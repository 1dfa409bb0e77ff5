// Package storage holds the object stores behind product images and cached
// invoices.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultEndpoint   = "http://localhost:9000"
	defaultRegion     = "us-east-1"
	defaultPresignTTL = 15 * time.Minute
)

var ErrEmptyKey = errors.New("storage: empty object key")

var (
	_ catalogapp.ObjectStorageService = (*Bucket)(nil)
	_ orderapp.InvoiceStore           = (*Bucket)(nil)
)

// Bucket is one bucket on an S3-compatible service (AWS, MinIO, RustFS).
type Bucket struct {
	name       string
	client     *s3.Client
	presigner  *s3.PresignClient
	presignTTL time.Duration
	logger     *zap.Logger
}

type BucketOption func(*Bucket)

func WithLogger(log *zap.Logger) BucketOption {
	return func(b *Bucket) { b.logger = log }
}

// WithPresignTTL overrides the lifetime of presigned URLs when callers pass
// no expiry of their own.
func WithPresignTTL(d time.Duration) BucketOption {
	return func(b *Bucket) {
		if d > 0 {
			b.presignTTL = d
		}
	}
}

// NewBucket builds a client for cfg.Bucket. It does not contact the
// service; call EnsureBucket for that.
func NewBucket(ctx context.Context, cfg *config.StorageConfig, opts ...BucketOption) (*Bucket, error) {
	if cfg == nil {
		return nil, errors.New("storage: missing configuration")
	}
	if err := validateStorageConfig(cfg); err != nil {
		return nil, err
	}
	endpoint, err := endpointURL(cfg)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.UsePathStyle
		// Self-hosted S3 clones reject the default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	b := &Bucket{
		name:       cfg.Bucket,
		client:     client,
		presigner:  s3.NewPresignClient(client),
		presignTTL: defaultPresignTTL,
		logger:     zap.NewNop(),
	}
	WithPresignTTL(cfg.PresignExpiration)(b)
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("bucket", b.name))
	return b, nil
}

func validateStorageConfig(cfg *config.StorageConfig) error {
	var errs []error
	if cfg.Bucket == "" {
		errs = append(errs, errors.New("storage: bucket is required"))
	}
	if cfg.AccessKey == "" {
		errs = append(errs, errors.New("storage: access key is required"))
	}
	if cfg.SecretKey == "" {
		errs = append(errs, errors.New("storage: secret key is required"))
	}
	return errors.Join(errs...)
}

// endpointURL adds the scheme to bare host:port endpoints
func endpointURL(cfg *config.StorageConfig) (string, error) {
	endpoint := cfg.Endpoint
	switch {
	case endpoint == "":
		endpoint = defaultEndpoint
	case !strings.Contains(endpoint, "://"):
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("storage: endpoint %q: %w", cfg.Endpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("storage: endpoint %q has no host", cfg.Endpoint)
	}
	return endpoint, nil
}

func (b *Bucket) Name() string { return b.name }

// EnsureBucket creates the bucket unless it already exists
func (b *Bucket) EnsureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.name)})
	if err == nil {
		return nil
	}
	if !isMissing(err) {
		return fmt.Errorf("storage: head bucket: %w", err)
	}

	b.logger.Info("Creating bucket")
	_, err = b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.name)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("storage: create bucket: %w", err)
	}
	return nil
}

func (b *Bucket) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	ttl := b.ttl(expiresIn)
	req, err := b.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: presign upload %s: %w", key, err)
	}
	return req.URL, time.Now().Add(ttl), nil
}

func (b *Bucket) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	ttl := b.ttl(expiresIn)
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: presign download %s: %w", key, err)
	}
	return req.URL, time.Now().Add(ttl), nil
}

func (b *Bucket) ttl(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return b.presignTTL
}

// DeleteObject removes key. Deleting a missing key succeeds.
func (b *Bucket) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (b *Bucket) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return true, nil
	case isMissing(err):
		return false, nil
	default:
		return false, fmt.Errorf("storage: head %s: %w", key, err)
	}
}

// Upload writes a whole object. Invoices use it; images are uploaded by
// clients through presigned URLs.
func (b *Bucket) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.name),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

// Download reads a whole object. Missing keys return shared.ErrNotFound.
func (b *Bucket) Download(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// isMissing recognises the typed not-found errors as well as the raw codes
// and 404 statuses some S3 clones send back.
func isMissing(err error) bool {
	var (
		notFound *types.NotFound
		noKey    *types.NoSuchKey
		noBucket *types.NoSuchBucket
	)
	if errors.As(err, &notFound) || errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
