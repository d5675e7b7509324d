// Package storage persists fetch diagnostics in S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"path"

	"go.uber.org/zap"

	domainsync "github.com/stocksync/backend/internal/domain/sync"
)

// Ensure StubArtifactStore implements the domain port
var _ domainsync.ArtifactStore = (*StubArtifactStore)(nil)

// StubArtifactStore discards captures and hands back synthetic keys. It is
// wired when object storage is disabled so the fetch path stays identical
// in environments without a bucket.
type StubArtifactStore struct {
	logger *zap.Logger
}

// NewStubArtifactStore creates a StubArtifactStore
func NewStubArtifactStore(logger *zap.Logger) *StubArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubArtifactStore{logger: logger}
}

// StoreScreenshot logs the capture it is dropping and returns a stub key
func (s *StubArtifactStore) StoreScreenshot(ctx context.Context, source domainsync.Source, name string, png []byte) (string, error) {
	if name == "" {
		return "", errors.New("artifact name is required")
	}
	if len(png) == 0 {
		return "", errors.New("screenshot payload is empty")
	}

	key := path.Join("stub", source.String(), name)
	s.logger.Debug("Object storage disabled, dropping failure screenshot",
		zap.String("source", source.String()),
		zap.String("key", key),
		zap.Int("bytes", len(png)),
	)
	return key, nil
}
