package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioGateway is an object storage gateway backed by a MinIO (or any
// S3-compatible) bucket.
type MinioGateway struct {
	client *minio.Client
	bucket string
}

// MinioOptions configures a MinioGateway.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioGateway creates a gateway against the configured endpoint.
func NewMinioGateway(opts MinioOptions) (*MinioGateway, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}
	return &MinioGateway{client: client, bucket: opts.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (g *MinioGateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("storage: create bucket: %w", err)
		}
	}
	return nil
}

// HealthCheck verifies the bucket is reachable.
func (g *MinioGateway) HealthCheck(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("storage: bucket %s does not exist", g.bucket)
	}
	return nil
}

// Put stores an object under path.
func (g *MinioGateway) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, g.bucket, path, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", path, err)
	}
	return nil
}

// Get retrieves the object bytes.
func (g *MinioGateway) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// PresignedURL returns a time-limited GET URL for the object.
func (g *MinioGateway) PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	u, err := g.client.PresignedGetObject(ctx, g.bucket, path, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", path, err)
	}
	return u.String(), nil
}
