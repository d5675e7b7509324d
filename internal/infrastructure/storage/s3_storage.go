// Package storage persists fetch diagnostics in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	domainsync "github.com/stocksync/backend/internal/domain/sync"
	infraconfig "github.com/stocksync/backend/internal/infrastructure/config"
)

// Ensure FetchArtifactStore implements the domain port
var _ domainsync.ArtifactStore = (*FetchArtifactStore)(nil)

const defaultKeyPrefix = "sync-artifacts"

// FetchArtifactStore keeps failure screenshots from portal fetches in an
// S3-compatible bucket (AWS S3, RustFS, MinIO, etc.) so operators can see
// what the portal looked like when a fetch died.
type FetchArtifactStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	keyPrefix         string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// FetchArtifactStoreOption is a functional option for configuring FetchArtifactStore
type FetchArtifactStoreOption func(*FetchArtifactStore)

// WithLogger sets a custom logger for FetchArtifactStore
func WithLogger(logger *zap.Logger) FetchArtifactStoreOption {
	return func(s *FetchArtifactStore) {
		s.logger = logger
	}
}

// WithPresignExpiration sets how long review URLs stay valid
func WithPresignExpiration(d time.Duration) FetchArtifactStoreOption {
	return func(s *FetchArtifactStore) {
		s.presignExpiration = d
	}
}

// NewFetchArtifactStore creates a FetchArtifactStore from configuration.
// It supports any S3-compatible storage backend (AWS S3, RustFS, MinIO, etc.)
func NewFetchArtifactStore(cfg *infraconfig.StorageConfig, opts ...FetchArtifactStoreOption) (*FetchArtifactStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000" // RustFS default
	}

	// Ensure endpoint has protocol
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}

	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	store := &FetchArtifactStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		keyPrefix:         cfg.KeyPrefix,
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.keyPrefix == "" {
		store.keyPrefix = defaultKeyPrefix
	}
	if store.presignExpiration == 0 {
		store.presignExpiration = 15 * time.Minute
	}

	return store, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup so the first failed fetch has
// somewhere to put its screenshot.
func (s *FetchArtifactStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating artifact bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Another replica may have won the race
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Artifact bucket created", zap.String("bucket", s.bucket))
	return nil
}

// StoreScreenshot uploads a PNG capture and returns its storage key. The
// success log carries a presigned review URL so an operator can open the
// capture straight from the log line.
func (s *FetchArtifactStore) StoreScreenshot(ctx context.Context, source domainsync.Source, name string, png []byte) (string, error) {
	if name == "" {
		return "", errors.New("artifact name is required")
	}
	if len(png) == 0 {
		return "", errors.New("screenshot payload is empty")
	}

	key := s.objectKey(source, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload screenshot: %w", err)
	}

	fields := []zap.Field{
		zap.String("source", source.String()),
		zap.String("key", key),
		zap.Int("bytes", len(png)),
	}
	if reviewURL, expiresAt, err := s.ScreenshotURL(ctx, key); err == nil {
		fields = append(fields,
			zap.String("review_url", reviewURL),
			zap.Time("url_expires_at", expiresAt),
		)
	}
	s.logger.Info("Stored fetch failure screenshot", fields...)

	return key, nil
}

// ScreenshotURL generates a presigned download URL for a stored capture.
func (s *FetchArtifactStore) ScreenshotURL(ctx context.Context, storageKey string) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	presignReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate review URL: %w", err)
	}

	return presignReq.URL, time.Now().Add(s.presignExpiration), nil
}

func (s *FetchArtifactStore) objectKey(source domainsync.Source, name string) string {
	return path.Join(s.keyPrefix, source.String(), name)
}

// GetBucket returns the bucket name
func (s *FetchArtifactStore) GetBucket() string {
	return s.bucket
}
