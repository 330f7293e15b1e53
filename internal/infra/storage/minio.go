package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/vetletters/claims-intake/internal/domain/claims"
)

const serviceName = "archive"

// Archive keeps rendered report HTML in object storage so an interrupted
// pipeline can resume the upload without re-running the analysis.
type Archive struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Archive, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, wrap(err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, wrap(err)
		}
	}

	return &Archive{client: cli, bucketName: bucket, region: region}, nil
}

func (a *Archive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, a.bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return wrap(err)
	}
	return nil
}

func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrap(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrap(err)
	}
	return data, nil
}

// wrap maps MinIO errors onto the shared call error so the pipeline can tell
// a flaky store (retry) from a misconfigured one (stop).
func wrap(err error) error {
	resp := minio.ToErrorResponse(err)
	return &domain.CallError{Service: serviceName, StatusCode: resp.StatusCode, Err: err}
}
