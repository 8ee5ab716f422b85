package adaptors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/queue"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
}

// MinioStore keeps screenshots in an S3 compatible bucket. References have the
// form s3://bucket/key.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ``),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, `failed to create minio client`)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (m *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.Wrap(err, `failed to check bucket`)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, `failed to create bucket`)
	}
	return nil
}

func (m *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return ``, classifyMinio(err, `failed to upload object`)
	}
	return fmt.Sprintf(`s3://%s/%s`, m.bucket, key), nil
}

func (m *MinioStore) Get(ctx context.Context, ref string) ([]byte, error) {
	key, ok := strings.CutPrefix(ref, fmt.Sprintf(`s3://%s/`, m.bucket))
	if !ok {
		return nil, errors.Errorf(`reference %q is not in bucket %s`, ref, m.bucket)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinio(err, `failed to get object`)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinio(err, `failed to read object`)
	}
	return data, nil
}

// classifyMinio wraps err and marks throttling and server side failures as
// retryable.
func classifyMinio(err error, msg string) error {
	resp := minio.ToErrorResponse(err)
	wrapped := errors.Wrap(err, msg)
	switch {
	case resp.StatusCode == 429, resp.StatusCode >= 500:
		return queue.MarkTransient(wrapped)
	case resp.Code == `SlowDown`, resp.Code == `RequestTimeout`, resp.Code == `InternalError`:
		return queue.MarkTransient(wrapped)
	}
	return wrapped
}
