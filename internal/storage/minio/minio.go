// Package minio implements storage.ObjectStore on an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/storage"
)

const backendName = "minio"

// Options configures the bucket connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectStore stores each folder/key as one object in a single bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

var _ storage.ObjectStore = (*ObjectStore)(nil)

// NewObjectStore connects to the endpoint and creates the bucket if missing.
func NewObjectStore(ctx context.Context, opts Options) (*ObjectStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket: %w", storage.ErrInvalidInput)
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &ObjectStore{client: client, bucket: opts.Bucket}, nil
}

// Get reads folder/key. Returns storage.ErrNotFound for a missing object.
func (s *ObjectStore) Get(ctx context.Context, folder, key string) (data []byte, err error) {
	start := time.Now()
	defer func() {
		observability.RecordObjectOp(backendName, "get", time.Since(start), err)
	}()

	obj, err := s.client.GetObject(ctx, s.bucket, storage.ObjectPath(folder, key), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on first read.
	data, err = io.ReadAll(obj)
	if err != nil {
		return nil, translateError(err)
	}
	return data, nil
}

// Put overwrites folder/key with data.
func (s *ObjectStore) Put(ctx context.Context, folder, key string, data []byte) (err error) {
	if key == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordObjectOp(backendName, "put", time.Since(start), err)
	}()

	_, err = s.client.PutObject(ctx, s.bucket, storage.ObjectPath(folder, key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: storage.ContentTypeJSON})
	if err != nil {
		return fmt.Errorf("put object %s: %w", storage.ObjectPath(folder, key), err)
	}
	return nil
}

func translateError(err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return storage.ErrNotFound
		}
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return storage.ErrNotFound
	}
	return fmt.Errorf("get object: %w", err)
}
