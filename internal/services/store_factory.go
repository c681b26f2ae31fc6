package services

import (
	"context"
	"fmt"

	"github.com/damacus/iron-shelf/internal/config"
)

// NewObjectStore builds the store selected by cfg.Backend
func NewObjectStore(ctx context.Context, cfg config.StoreConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		return NewMinioStore(cfg)
	case config.BackendS3:
		return NewS3Store(ctx, cfg)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// PublicBaseURL is the address objects are linked from: STORE_PUBLIC_BASE_URL
// when set, the virtual-hosted AWS address for the s3 backend, and a
// path-style address for custom endpoints.
func PublicBaseURL(cfg config.StoreConfig) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	switch cfg.Backend {
	case config.BackendS3:
		if cfg.Endpoint == "" {
			return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
		return s3EndpointURL(cfg) + "/" + cfg.Bucket
	case config.BackendMinio:
		scheme := "https"
		if !useSSL(cfg) {
			scheme = "http"
		}
		return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return ""
}
