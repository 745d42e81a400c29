package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	s3storage "github.com/tendant/simple-workshop/pkg/workshop/emulator/storage/s3"
)

// Database backends
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageFS     = "fs"
	StorageS3     = "s3"
)

// DatabaseConfig is the parsed form of DatabaseURL.
type DatabaseConfig struct {
	Type string
	// DSN is the connection string for postgres and the file path for sqlite.
	DSN string
}

// StorageConfig is the parsed form of StorageURL.
type StorageConfig struct {
	Type    string
	BaseDir string
	S3      s3storage.Config
}

// Database parses DatabaseURL.
func (c *Config) Database() (DatabaseConfig, error) {
	raw := strings.TrimSpace(c.DatabaseURL)
	switch {
	case raw == "" || raw == "memory" || raw == "memory://":
		return DatabaseConfig{Type: DatabaseMemory}, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DatabaseConfig{Type: DatabasePostgres, DSN: raw}, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return DatabaseConfig{}, fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		return DatabaseConfig{Type: DatabaseSQLite, DSN: path}, nil
	default:
		return DatabaseConfig{}, fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'sqlite://path')", raw)
	}
}

// Storage parses StorageURL.
func (c *Config) Storage() (StorageConfig, error) {
	raw := strings.TrimSpace(c.StorageURL)
	switch {
	case raw == "" || raw == "memory" || raw == "memory://":
		return StorageConfig{Type: StorageMemory}, nil
	case strings.HasPrefix(raw, "file://"):
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return StorageConfig{}, fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		return StorageConfig{Type: StorageFS, BaseDir: path}, nil
	case strings.HasPrefix(raw, "s3://"):
		return c.s3Storage(raw)
	default:
		return StorageConfig{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...' or 's3://...')", raw)
	}
}

// s3Storage parses s3://bucket?region=us-east-1&endpoint=http://localhost:9000
func (c *Config) s3Storage(raw string) (StorageConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return StorageConfig{}, fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}
	q := u.Query()

	cfg := s3storage.Config{
		Bucket:          u.Host,
		Region:          firstNonEmpty(q.Get("region"), c.AWSRegion, "us-east-1"),
		Endpoint:        q.Get("endpoint"),
		Prefix:          firstNonEmpty(q.Get("prefix"), strings.Trim(u.Path, "/")),
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
	for key, dst := range map[string]*bool{
		"path_style":    &cfg.UsePathStyle,
		"create_bucket": &cfg.CreateBucketIfNotExist,
		"sse":           &cfg.EnableSSE,
	} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return StorageConfig{}, fmt.Errorf("invalid boolean for %s in STORAGE_URL: %w", key, err)
		}
		*dst = b
	}
	if cfg.EnableSSE {
		cfg.SSEAlgorithm = firstNonEmpty(q.Get("sse_algorithm"), "AES256")
		cfg.SSEKMSKeyID = q.Get("sse_kms_key_id")
	}
	return StorageConfig{Type: StorageS3, S3: cfg}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
