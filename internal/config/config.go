package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	FeedNATS     = "nats"
	FeedPostgres = "postgres"

	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheS3     = "s3"
)

// Config is resolved from, in increasing precedence: built-in defaults, the
// active profile of the TOML config file, and TB_* environment variables.
type Config struct {
	DatabaseURL string // TB_DATABASE_URL (required)
	HTTPAddr    string // TB_HTTP_ADDR (default "127.0.0.1:7420")
	GRPCAddr    string // TB_GRPC_ADDR (default "127.0.0.1:7421")

	// Change feed
	Feed       string        // TB_FEED: "postgres" (default) or "nats"
	NATSURL    string        // TB_NATS_URL (required when Feed is "nats")
	NATSPrefix string        // TB_NATS_PREFIX (default "tb.changes")
	EchoGrace  time.Duration // TB_ECHO_GRACE (default 5s)

	// Projection cache
	Cache           string // TB_CACHE: "sqlite" (default), "memory" or "s3"
	CachePath       string // TB_CACHE_PATH (default <state dir>/cache.db)
	CacheS3Bucket   string // TB_CACHE_S3_BUCKET (required when Cache is "s3")
	CacheS3Region   string // TB_CACHE_S3_REGION (default "us-east-1")
	CacheS3Endpoint string // TB_CACHE_S3_ENDPOINT (custom endpoint for MinIO)
	CacheS3Prefix   string // TB_CACHE_S3_PREFIX (default "taskboard/cache")
}

// File is the on-disk config: named profiles and the one in use.
type File struct {
	Active   string             `toml:"active"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Profile holds per-environment overrides. Empty fields fall through to
// the defaults.
type Profile struct {
	DatabaseURL     string `toml:"database_url,omitempty"`
	HTTPAddr        string `toml:"http_addr,omitempty"`
	GRPCAddr        string `toml:"grpc_addr,omitempty"`
	Feed            string `toml:"feed,omitempty"`
	NATSURL         string `toml:"nats_url,omitempty"`
	NATSPrefix      string `toml:"nats_prefix,omitempty"`
	EchoGrace       string `toml:"echo_grace,omitempty"`
	Cache           string `toml:"cache,omitempty"`
	CachePath       string `toml:"cache_path,omitempty"`
	CacheS3Bucket   string `toml:"cache_s3_bucket,omitempty"`
	CacheS3Region   string `toml:"cache_s3_region,omitempty"`
	CacheS3Endpoint string `toml:"cache_s3_endpoint,omitempty"`
	CacheS3Prefix   string `toml:"cache_s3_prefix,omitempty"`
}

// StateDir returns the directory holding the config file and local cache.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "taskboard"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadFile reads the config file at path. A missing file is not an error.
func LoadFile(path string) (File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if os.IsNotExist(err) {
			return File{Profiles: map[string]Profile{}}, nil
		}
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	return f, nil
}

// SaveFile writes f to path, creating the parent directory.
func SaveFile(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	return toml.NewEncoder(out).Encode(f)
}

// Load resolves the configuration. path is the config file (empty means
// DefaultPath); profile selects a profile and overrides the file's active
// one (TB_PROFILE is used when profile is empty).
func Load(path, profile string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	name := profile
	if name == "" {
		name = envOrDefault("TB_PROFILE", f.Active)
	}
	var p Profile
	if name != "" {
		var ok bool
		if p, ok = f.Profiles[name]; !ok {
			return nil, fmt.Errorf("profile %q not found in %s", name, path)
		}
	}

	defaultCachePath := "cache.db"
	if dir, err := StateDir(); err == nil {
		defaultCachePath = filepath.Join(dir, "cache.db")
	}

	c := &Config{
		DatabaseURL:     pick("TB_DATABASE_URL", p.DatabaseURL, ""),
		HTTPAddr:        pick("TB_HTTP_ADDR", p.HTTPAddr, "127.0.0.1:7420"),
		GRPCAddr:        pick("TB_GRPC_ADDR", p.GRPCAddr, "127.0.0.1:7421"),
		Feed:            pick("TB_FEED", p.Feed, FeedPostgres),
		NATSURL:         pick("TB_NATS_URL", p.NATSURL, ""),
		NATSPrefix:      pick("TB_NATS_PREFIX", p.NATSPrefix, "tb.changes"),
		Cache:           pick("TB_CACHE", p.Cache, CacheSQLite),
		CachePath:       pick("TB_CACHE_PATH", p.CachePath, defaultCachePath),
		CacheS3Bucket:   pick("TB_CACHE_S3_BUCKET", p.CacheS3Bucket, ""),
		CacheS3Region:   pick("TB_CACHE_S3_REGION", p.CacheS3Region, "us-east-1"),
		CacheS3Endpoint: pick("TB_CACHE_S3_ENDPOINT", p.CacheS3Endpoint, ""),
		CacheS3Prefix:   pick("TB_CACHE_S3_PREFIX", p.CacheS3Prefix, "taskboard/cache"),
	}

	graceStr := pick("TB_ECHO_GRACE", p.EchoGrace, "5s")
	grace, err := time.ParseDuration(graceStr)
	if err != nil {
		return nil, fmt.Errorf("TB_ECHO_GRACE: %w", err)
	}
	if grace <= 0 {
		return nil, fmt.Errorf("TB_ECHO_GRACE must be positive, got %s", graceStr)
	}
	c.EchoGrace = grace

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("TB_DATABASE_URL is required")
	}
	switch c.Feed {
	case FeedPostgres:
	case FeedNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("TB_NATS_URL is required when TB_FEED=%s", FeedNATS)
		}
	default:
		return fmt.Errorf("TB_FEED: unknown feed %q (want %s or %s)", c.Feed, FeedPostgres, FeedNATS)
	}
	switch c.Cache {
	case CacheMemory, CacheSQLite:
	case CacheS3:
		if c.CacheS3Bucket == "" {
			return fmt.Errorf("TB_CACHE_S3_BUCKET is required when TB_CACHE=%s", CacheS3)
		}
	default:
		return fmt.Errorf("TB_CACHE: unknown cache %q", c.Cache)
	}
	return nil
}

// pick returns the environment value for key, else fileVal, else fallback.
func pick(key, fileVal, fallback string) string {
	if fileVal != "" {
		fallback = fileVal
	}
	return envOrDefault(key, fallback)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
