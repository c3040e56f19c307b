package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver stores generated reports in S3-compatible object storage so
// they can be fetched again without re-rendering.
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver connects to the object store and ensures the bucket
// exists. Returns an error if the endpoint is unreachable; callers run
// without archiving in that case.
func NewArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Archiver{client: client, bucket: bucket}, nil
}

// Store uploads a report and returns the object name. Object names are
// prefixed with the organization so tenants never collide.
func (a *Archiver) Store(ctx context.Context, orgID string, result *Result) (string, error) {
	objectName := fmt.Sprintf("%s/%s-%s", orgID, time.Now().UTC().Format("20060102-150405"), result.Filename)
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(result.Data), int64(len(result.Data)), minio.PutObjectOptions{
		ContentType: result.MimeType,
	})
	if err != nil {
		return "", fmt.Errorf("archive report %s: %w", objectName, err)
	}
	return objectName, nil
}

// Fetch retrieves a previously archived report.
func (a *Archiver) Fetch(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch archived report %s: %w", objectName, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, fmt.Errorf("read archived report %s: %w", objectName, err)
	}
	return buf.Bytes(), nil
}
