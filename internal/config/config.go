// Package config loads the file manager's settings from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends understood by services.NewObjectStore.
const (
	BackendMinio  = "minio"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

type Config struct {
	Server ServerConfig
	Log    LogConfig
	Store  StoreConfig
	Rename RenameConfig
	Usage  UsageConfig
}

type ServerConfig struct {
	Addr           string
	UploadMaxBytes int64
	UIUsername     string
	UIPassword     string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig describes the single bucket the file manager operates on.
type StoreConfig struct {
	Backend       string
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        string // "", "true" or "false"; empty means decide from the endpoint
	Prefix        string
	PublicBaseURL string
}

// RenameConfig bounds the delete-phase retry of a rename.
type RenameConfig struct {
	DeleteAttempts   int
	DeleteBackoff    time.Duration
	DeleteMaxBackoff time.Duration
}

type UsageConfig struct {
	Enabled bool
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("UPLOAD_MAX_BYTES", int64(100<<20))
	v.SetDefault("UI_USERNAME", "")
	v.SetDefault("UI_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORE_BACKEND", BackendMinio)
	v.SetDefault("STORE_ENDPOINT", "")
	v.SetDefault("STORE_REGION", "us-east-1")
	v.SetDefault("STORE_BUCKET", "")
	v.SetDefault("STORE_ACCESS_KEY", "")
	v.SetDefault("STORE_SECRET_KEY", "")
	v.SetDefault("STORE_USE_SSL", "")
	v.SetDefault("STORE_PREFIX", "uploads/")
	v.SetDefault("STORE_PUBLIC_BASE_URL", "")
	v.SetDefault("RENAME_DELETE_ATTEMPTS", 3)
	v.SetDefault("RENAME_DELETE_BACKOFF", 200*time.Millisecond)
	v.SetDefault("RENAME_DELETE_MAX_BACKOFF", 2*time.Second)
	v.SetDefault("USAGE_ENABLED", false)

	v.AutomaticEnv()
	return v
}

// fromViper builds a Config from an already populated viper instance.
func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:           v.GetString("SERVER_ADDR"),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
			UIUsername:     v.GetString("UI_USERNAME"),
			UIPassword:     v.GetString("UI_PASSWORD"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
			Endpoint:      strings.TrimSpace(v.GetString("STORE_ENDPOINT")),
			Region:        v.GetString("STORE_REGION"),
			Bucket:        v.GetString("STORE_BUCKET"),
			AccessKey:     v.GetString("STORE_ACCESS_KEY"),
			SecretKey:     v.GetString("STORE_SECRET_KEY"),
			UseSSL:        strings.TrimSpace(v.GetString("STORE_USE_SSL")),
			Prefix:        v.GetString("STORE_PREFIX"),
			PublicBaseURL: strings.TrimSuffix(v.GetString("STORE_PUBLIC_BASE_URL"), "/"),
		},
		Rename: RenameConfig{
			DeleteAttempts:   v.GetInt("RENAME_DELETE_ATTEMPTS"),
			DeleteBackoff:    v.GetDuration("RENAME_DELETE_BACKOFF"),
			DeleteMaxBackoff: v.GetDuration("RENAME_DELETE_MAX_BACKOFF"),
		},
		Usage: UsageConfig{
			Enabled: v.GetBool("USAGE_ENABLED"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMinio, BackendS3:
		if c.Store.Bucket == "" {
			return fmt.Errorf("STORE_BUCKET is required for backend %q", c.Store.Backend)
		}
		if c.Store.AccessKey == "" || c.Store.SecretKey == "" {
			return fmt.Errorf("STORE_ACCESS_KEY and STORE_SECRET_KEY are required for backend %q", c.Store.Backend)
		}
		if c.Store.Backend == BackendMinio && c.Store.Endpoint == "" {
			return fmt.Errorf("STORE_ENDPOINT is required for backend %q", c.Store.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Store.UseSSL != "" {
		if _, err := strconv.ParseBool(c.Store.UseSSL); err != nil {
			return fmt.Errorf("STORE_USE_SSL must be a boolean: %w", err)
		}
	}
	if c.Store.Prefix != "" && !strings.HasSuffix(c.Store.Prefix, "/") {
		return fmt.Errorf("STORE_PREFIX must end with '/' (got %q)", c.Store.Prefix)
	}
	if c.Usage.Enabled && c.Store.Backend != BackendMinio {
		return fmt.Errorf("USAGE_ENABLED requires the %q backend", BackendMinio)
	}
	if c.Server.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if (c.Server.UIUsername == "") != (c.Server.UIPassword == "") {
		return fmt.Errorf("UI_USERNAME and UI_PASSWORD must be set together")
	}
	if c.Rename.DeleteAttempts < 1 {
		return fmt.Errorf("RENAME_DELETE_ATTEMPTS must be at least 1")
	}
	if c.Rename.DeleteBackoff < 0 || c.Rename.DeleteMaxBackoff < c.Rename.DeleteBackoff {
		return fmt.Errorf("RENAME_DELETE_BACKOFF must be >= 0 and <= RENAME_DELETE_MAX_BACKOFF")
	}
	return nil
}

// SSL returns the explicit STORE_USE_SSL setting, if any.
func (s StoreConfig) SSL() (value bool, explicit bool) {
	if s.UseSSL == "" {
		return false, false
	}
	b, err := strconv.ParseBool(s.UseSSL)
	if err != nil {
		return false, false
	}
	return b, true
}
