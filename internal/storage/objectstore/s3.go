package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3-compatible backend.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Backend stores objects in one bucket of an S3-compatible service.
type S3Backend struct {
	client *minio.Client
	bucket string
	region string
}

// NewS3Backend connects to the endpoint. No request is made until first use.
func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Backend{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// EnsureBucket creates the bucket when missing.
func (b *S3Backend) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region}); err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	return nil
}

// Put uploads data with user metadata.
func (b *S3Backend) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	return err
}

// Get downloads the object.
func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapS3Error(err)
	}
	defer func() { _ = obj.Close() }()

	st, err := obj.Stat()
	if err != nil {
		return nil, ObjectInfo{}, mapS3Error(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, ObjectInfo{}, mapS3Error(err)
	}
	return data, toObjectInfo(st), nil
}

// Stat returns object info.
func (b *S3Backend) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	st, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapS3Error(err)
	}
	return toObjectInfo(st), nil
}

// Delete removes the object.
func (b *S3Backend) Delete(ctx context.Context, key string) error {
	return mapS3Error(b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}))
}

func toObjectInfo(st minio.ObjectInfo) ObjectInfo {
	meta := make(map[string]string, len(st.UserMetadata))
	for k, v := range st.UserMetadata {
		meta[strings.ToLower(k)] = v
	}
	return ObjectInfo{
		Key:          st.Key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		Metadata:     meta,
		LastModified: st.LastModified.UTC(),
	}
}

func mapS3Error(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	return err
}
