package services

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/damacus/iron-shelf/internal/config"
)

// MinioAdminClient is the madmin method the usage widget needs
type MinioAdminClient interface {
	DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error)
}

// BucketUsage is the scanner's latest view of the configured bucket
type BucketUsage struct {
	Bucket        string
	Size          uint64
	FormattedSize string
	Objects       uint64
	LastUpdate    time.Time
}

// UsageService reads bucket usage from the MinIO admin API
type UsageService struct {
	admin  MinioAdminClient
	bucket string
}

func NewUsageServiceWithClient(admin MinioAdminClient, bucket string) *UsageService {
	return &UsageService{admin: admin, bucket: bucket}
}

func NewUsageService(cfg config.StoreConfig) (*UsageService, error) {
	admin, err := madmin.NewWithOptions(cfg.Endpoint, &madmin.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL(cfg),
	})
	if err != nil {
		return nil, err
	}
	return NewUsageServiceWithClient(admin, cfg.Bucket), nil
}

// BucketUsage returns size and object count of the bucket. A bucket the
// scanner has not reached yet reports zero usage.
func (u *UsageService) BucketUsage(ctx context.Context) (BucketUsage, error) {
	info, err := u.admin.DataUsageInfo(ctx)
	if err != nil {
		return BucketUsage{}, classify(err, madmin.ToErrorResponse(err).Code, 0)
	}

	usage := BucketUsage{Bucket: u.bucket, LastUpdate: info.LastUpdate}
	if b, ok := info.BucketsUsage[u.bucket]; ok {
		usage.Size = b.Size
		usage.Objects = b.ObjectsCount
	} else if size, ok := info.BucketSizes[u.bucket]; ok {
		usage.Size = size
	}
	usage.FormattedSize = humanize.Bytes(usage.Size)
	return usage, nil
}
