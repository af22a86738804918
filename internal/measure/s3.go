package measure

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the settings for an S3-compatible image store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3ImageStore implements ImageStore against an S3-compatible bucket via MinIO.
type S3ImageStore struct {
	client *minio.Client
	bucket string
}

// NewS3ImageStore creates a MinIO client and makes sure the bucket exists.
func NewS3ImageStore(ctx context.Context, cfg S3Config) (*S3ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &S3ImageStore{client: client, bucket: cfg.Bucket}, nil
}

// Save uploads an image into the bucket.
func (s *S3ImageStore) Save(ctx context.Context, filename string, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: "image/jpeg"}
	_, err := s.client.PutObject(ctx, s.bucket, filename, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload image object: %w", err)
	}
	return nil
}

// Get fetches image bytes from the bucket.
func (s *S3ImageStore) Get(ctx context.Context, filename string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, filename, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get image object: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("read image object: %w", err)
	}
	return data, nil
}

// Delete removes an image object from the bucket.
func (s *S3ImageStore) Delete(ctx context.Context, filename string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, filename, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete image object: %w", err)
	}
	return nil
}
