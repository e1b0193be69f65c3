// Package blob stores problem test files in S3 or a MinIO server.
package blob

import (
	"context"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
	"github.com/BytePitApp/bytepit-api/internal/platform/config"
)

var (
	_ repository.BlobStore = (*S3Store)(nil)
	_ repository.BlobStore = (*MinioStore)(nil)
)

// New picks the backend named by cfg.BlobBackend.
func New(ctx context.Context, cfg *config.Config) (repository.BlobStore, error) {
	switch cfg.BlobBackend {
	case "s3":
		return NewS3Store(ctx, cfg.S3Region, cfg.BlobBucket, cfg.S3Endpoint)
	case "minio":
		return NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.BlobBucket, cfg.MinioUseSSL)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
