package s3

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/indieinfra/clipvault/config"
	storageutil "github.com/indieinfra/clipvault/storage/util"
)

// StoreImpl uploads blobs to S3 or any compatible service (R2, Backblaze,
// MinIO).
type s3Client interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

var newMinioClient = func(endpoint string, opts *minio.Options) (s3Client, error) {
	return minio.New(endpoint, opts)
}

type StoreImpl struct {
	client     s3Client
	bucket     string
	publicBase string
}

func NewS3ObjectStore(cfg *config.Objects) (*StoreImpl, error) {
	if cfg == nil || cfg.S3 == nil {
		return nil, fmt.Errorf("s3 object config is nil")
	}

	s3cfg := cfg.S3
	region := strings.TrimSpace(s3cfg.Region)
	if strings.EqualFold(region, "auto") {
		region = ""
	}

	endpointHost := strings.TrimSpace(s3cfg.Endpoint)
	if endpointHost == "" {
		if region == "" {
			endpointHost = "s3.amazonaws.com"
		} else {
			endpointHost = fmt.Sprintf("s3.%s.amazonaws.com", region)
		}
	} else {
		if parsed, err := url.Parse(endpointHost); err == nil && parsed.Host != "" {
			endpointHost = parsed.Host
		}
	}

	client, err := newMinioClient(endpointHost, &minio.Options{
		Creds:        credentials.NewStaticV4(s3cfg.AccessKeyId, s3cfg.SecretKeyId, ""),
		Secure:       true,
		Region:       region,
		BucketLookup: minio.BucketLookupAuto,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, s3cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to verify s3 bucket %q: %w", s3cfg.Bucket, err)
	}

	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist or is not accessible", s3cfg.Bucket)
	}

	return &StoreImpl{
		client:     client,
		bucket:     s3cfg.Bucket,
		publicBase: storageutil.NormalizeBaseURL(cfg.PublicBaseUrl),
	}, nil
}

func (s *StoreImpl) Put(ctx context.Context, localPath string, key string) error {
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{ContentType: contentType}

	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, opts); err != nil {
		return fmt.Errorf("upload to s3 failed: %w", err)
	}

	return nil
}

func (s *StoreImpl) Delete(ctx context.Context, key string) error {
	// RemoveObject succeeds on an absent key, which matches the Store
	// contract for re-deletion.
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete from s3 failed: %w", err)
	}

	return nil
}

func (s *StoreImpl) PublicURL(key string) string {
	return s.publicBase + key
}
