package services

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/damacus/iron-shelf/internal/config"
)

// MinioAPI is the subset of *minio.Client used by MinioStore
type MinioAPI interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// MinioStore implements ObjectStore on any S3-compatible endpoint through minio-go
type MinioStore struct {
	client MinioAPI
	bucket string
}

// NewMinioStoreWithClient binds an existing client to bucket
func NewMinioStoreWithClient(client MinioAPI, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// NewMinioStore connects to the configured endpoint with static credentials
func NewMinioStore(cfg config.StoreConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL(cfg),
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return NewMinioStoreWithClient(client, cfg.Bucket), nil
}

func (s *MinioStore) List(ctx context.Context, prefix string) ([]StoredObject, error) {
	// Convert channel to slice
	var objects []StoredObject
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classifyMinio(obj.Err)
		}
		objects = append(objects, StoredObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return objects, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (StoredObject, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return StoredObject{}, classifyMinio(err)
	}
	return StoredObject{Key: key, Size: info.Size, LastModified: info.LastModified}, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return classifyMinio(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}))
}

func (s *MinioStore) Copy(ctx context.Context, srcKey, dstKey string) (StoredObject, error) {
	info, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	)
	if err != nil {
		return StoredObject{}, classifyMinio(err)
	}
	return StoredObject{Key: dstKey, Size: info.Size, LastModified: info.LastModified}, nil
}

func (s *MinioStore) Stat(ctx context.Context, key string) (StoredObject, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return StoredObject{}, classifyMinio(err)
	}
	return StoredObject{Key: key, Size: info.Size, LastModified: info.LastModified}, nil
}

func classifyMinio(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	return classify(err, resp.Code, resp.StatusCode)
}

func useSSL(cfg config.StoreConfig) bool {
	if ssl, explicit := cfg.SSL(); explicit {
		return ssl
	}
	return shouldUseSSL(cfg.Endpoint)
}

// shouldUseSSL determines if SSL should be used based on the endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	// Local development endpoints
	if endpoint == "localhost:9000" || endpoint == "127.0.0.1:9000" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, minio2:9000, etc.)
	// Only match simple hostnames without dots (not domain names like minio.example.com)
	if strings.HasPrefix(endpoint, "minio") && !strings.Contains(strings.Split(endpoint, ":")[0], ".") && strings.Contains(endpoint, ":9000") {
		return false
	}
	return true
}
