package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// UserConfigDir is the directory for user-level client config
	UserConfigDir = ".config/wordfeed"
	// UserConfigFile is the name of the user-level client config file
	UserConfigFile = "config.yaml"
)

// Mirror backends.
const (
	MirrorFile   = "file"
	MirrorSQLite = "sqlite"
	MirrorBolt   = "bolt"
	MirrorRedis  = "redis"
	MirrorS3     = "s3"
	MirrorMemory = "memory"
)

// ClientConfig is the wordfeed CLI configuration.
type ClientConfig struct {
	Server ServerConfig `yaml:"server"`
	Sync   SyncConfig   `yaml:"sync"`
	Mirror MirrorConfig `yaml:"mirror"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig points the client at a word service.
type ServerConfig struct {
	// BaseURL is the word service root (e.g. http://localhost:8080)
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each HTTP request
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	// PageSize is the number of words requested per fetch (default: 200)
	PageSize int `yaml:"page_size"`
	// MaxRetries bounds FetchAll retries per page
	MaxRetries int `yaml:"max_retries"`
}

// MirrorConfig selects and configures the local mirror backend.
type MirrorConfig struct {
	// Backend is one of file, sqlite, bolt, redis, s3, memory
	Backend string `yaml:"backend"`
	// Path is the file, sqlite or bolt location
	Path string `yaml:"path"`
	// Secret encrypts the sqlite mirror (empty = unencrypted)
	Secret string `yaml:"secret"`
	// RedisURL is a redis:// URL for the redis backend
	RedisURL string `yaml:"redis_url"`
	// S3 configures the s3 backend
	S3 S3Config `yaml:"s3"`
}

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LogConfig configures client logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultClientConfig returns a ClientConfig with sensible defaults
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			PageSize:   200,
			MaxRetries: 5,
		},
		Mirror: MirrorConfig{
			Backend: MirrorFile,
			Path:    defaultMirrorPath(),
			S3: S3Config{
				Region: "auto",
				Prefix: "wordfeed/",
			},
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

func defaultMirrorPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "wordfeed", "words.json")
	}
	return "words.json"
}

// Validate checks that the client configuration is usable
func (c *ClientConfig) Validate() error {
	var errs []string

	if c.Server.BaseURL == "" {
		errs = append(errs, "server.base_url is required")
	} else if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("server.base_url %q is not an absolute URL", c.Server.BaseURL))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, "server.timeout must be positive")
	}
	if c.Sync.PageSize <= 0 {
		errs = append(errs, "sync.page_size must be positive")
	}
	if c.Sync.MaxRetries < 0 {
		errs = append(errs, "sync.max_retries must not be negative")
	}

	switch c.Mirror.Backend {
	case MirrorFile, MirrorSQLite, MirrorBolt:
		if c.Mirror.Path == "" {
			errs = append(errs, fmt.Sprintf("mirror.path is required for the %s backend", c.Mirror.Backend))
		}
	case MirrorRedis:
		if c.Mirror.RedisURL == "" {
			errs = append(errs, "mirror.redis_url is required for the redis backend")
		}
	case MirrorS3:
		if c.Mirror.S3.Bucket == "" {
			errs = append(errs, "mirror.s3.bucket is required for the s3 backend")
		}
	case MirrorMemory:
	default:
		errs = append(errs, fmt.Sprintf("mirror.backend %q is not one of file, sqlite, bolt, redis, s3, memory", c.Mirror.Backend))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// LoadClientFromFile loads client configuration from a YAML file over defaults
func LoadClientFromFile(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultClientConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves client configuration to a YAML file
func (c *ClientConfig) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from WORDFEED_* environment variables.
func (c *ClientConfig) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("WORDFEED_SERVER_URL")); v != "" {
		c.Server.BaseURL = v
	}
	c.Server.Timeout = parseDurationOrDefault("WORDFEED_TIMEOUT", c.Server.Timeout)
	c.Sync.PageSize = parseIntOrDefault("WORDFEED_PAGE_SIZE", c.Sync.PageSize)
	c.Mirror.Backend = getEnvOrDefault("WORDFEED_MIRROR_BACKEND", c.Mirror.Backend)
	c.Mirror.Path = getEnvOrDefault("WORDFEED_MIRROR_PATH", c.Mirror.Path)
	c.Mirror.Secret = getEnvOrDefault("WORDFEED_MIRROR_SECRET", c.Mirror.Secret)
	c.Mirror.RedisURL = getEnvOrDefault("WORDFEED_REDIS_URL", c.Mirror.RedisURL)
	c.Mirror.S3.Endpoint = getEnvOrDefault("AWS_ENDPOINT_URL_S3", c.Mirror.S3.Endpoint)
	c.Mirror.S3.Region = getEnvOrDefault("AWS_REGION", c.Mirror.S3.Region)
	c.Mirror.S3.Bucket = getEnvOrDefault("WORDFEED_MIRROR_BUCKET", c.Mirror.S3.Bucket)
	c.Mirror.S3.AccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", c.Mirror.S3.AccessKeyID)
	c.Mirror.S3.SecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", c.Mirror.S3.SecretAccessKey)
	c.Log.Level = getEnvOrDefault("WORDFEED_LOG_LEVEL", c.Log.Level)
}

// LoadClientConfig loads configuration with layered precedence:
// defaults, then the user config file (or explicitPath when set), then env.
// A missing user config is not an error; a missing explicit path is.
func LoadClientConfig(explicitPath string, logger *slog.Logger) (*ClientConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := DefaultClientConfig()
	path := explicitPath
	if path == "" {
		path = UserClientConfigPath()
	}

	if path != "" {
		loaded, err := LoadClientFromFile(path)
		switch {
		case err == nil:
			logger.Debug("loaded client config", "path", path)
			cfg = loaded
		case explicitPath == "" && errors.Is(err, fs.ErrNotExist):
			logger.Debug("no user config", "path", path)
		default:
			return nil, err
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UserClientConfigPath returns ~/.config/wordfeed/config.yaml, or "" without a home.
func UserClientConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
