package mediaservice

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinURLExpiry and MaxURLExpiry bound the lifetime of a presigned URL. S3 refuses anything
// longer than a week.
const (
	MinURLExpiry = time.Second
	MaxURLExpiry = 7 * 24 * time.Hour
)

type MinioConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	URLExpiry time.Duration
}

// MinioStore signs and stores objects in a single bucket of an S3 compatible service.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	now    func() time.Time
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.URLExpiry < MinURLExpiry || cfg.URLExpiry > MaxURLExpiry {
		return nil, fmt.Errorf("url expiry %s out of range [%s, %s]", cfg.URLExpiry, MinURLExpiry, MaxURLExpiry)
	}

	// With the region set, presigning is computed locally and never asks the server for
	// the bucket location.
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create storage client: %w", err)
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		expiry: cfg.URLExpiry,
		now:    time.Now,
	}, nil
}

// Resolve returns a presigned GET url for key. The object does not have to exist.
func (s *MinioStore) Resolve(ctx context.Context, key string) (string, time.Time, error) {
	issued := s.now()

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: presign %s: %w", ErrStorageUnavailable, key, err)
	}

	return u.String(), issued.Add(s.expiry), nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", ErrStorageUnavailable, key, err)
	}

	return nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrStorageUnavailable, key, err)
	}

	return nil
}

// PresignPut returns a url the client can PUT the object to directly.
func (s *MinioStore) PresignPut(ctx context.Context, key string) (string, time.Time, error) {
	issued := s.now()

	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.expiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: presign put %s: %w", ErrStorageUnavailable, key, err)
	}

	return u.String(), issued.Add(s.expiry), nil
}

func (s *MinioStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: bucket %s does not exist", ErrStorageUnavailable, s.bucket)
	}

	return nil
}

// EnsureBucket creates the bucket on first start.
func (s *MinioStore) EnsureBucket(ctx context.Context, region string) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if ok {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("%w: make bucket %s: %w", ErrStorageUnavailable, s.bucket, err)
	}

	return nil
}
