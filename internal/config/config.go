// Package config provides configuration for the wordfeed server and client.
//
// The server loads from CLI flags and environment variables, validates required
// fields and provides sensible defaults. The client reads a YAML file layered
// under environment overrides (see client.go).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/wordfeed/internal/ratelimit"
)

// Store backends for the server word collection.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all server configuration.
type Config struct {
	// Server settings
	ListenAddr      string
	BaseURL         string
	ShutdownTimeout time.Duration
	LogLevel        string

	// Word store
	Store          string // memory or sqlite
	DatabasePath   string // SQLite file, only used with the sqlite store
	DatabaseSecret string // empty = unencrypted; 64 hex chars = raw key; else HKDF input
	SeedFile       string // optional, one word per line

	// Features
	NoMCP     bool // If true, /mcp is not mounted (--no-mcp)
	NoMetrics bool // If true, /metrics is not mounted (--no-metrics)

	// Rate limiting
	RateLimitConfig ratelimit.Config
}

// Flags are the CLI flag values that override environment variables.
// Zero values mean "not set".
type Flags struct {
	Addr      string
	Store     string
	DBPath    string
	SeedFile  string
	LogLevel  string
	NoMCP     bool
	NoMetrics bool
	Test      bool // shorthand for --store=memory --no-metrics
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags registers the server flags on fs and parses args.
// Call before LoadConfig.
func ParseFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	var f Flags
	fs.StringVar(&f.Addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	fs.StringVar(&f.Store, "store", "", "Word store: memory or sqlite (overrides WORD_STORE)")
	fs.StringVar(&f.DBPath, "db", "", "SQLite database path (overrides DATABASE_PATH)")
	fs.StringVar(&f.SeedFile, "seed", "", "File of words to load at startup, one per line (overrides SEED_FILE)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL)")
	fs.BoolVar(&f.NoMCP, "no-mcp", false, "Do not mount the /mcp endpoint")
	fs.BoolVar(&f.NoMetrics, "no-metrics", false, "Do not mount the /metrics endpoint")
	fs.BoolVar(&f.Test, "test", false, "Shorthand for --store=memory --no-metrics")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// LoadConfig loads configuration from environment variables and CLI flag values.
func LoadConfig(flags Flags) (*Config, error) {
	cfg := &Config{}

	// Server settings
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if flags.Addr != "" {
		cfg.ListenAddr = flags.Addr
	}
	cfg.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}
	cfg.ShutdownTimeout = parseDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}

	// Word store
	cfg.Store = getEnvOrDefault("WORD_STORE", StoreMemory)
	if flags.Store != "" {
		cfg.Store = flags.Store
	}
	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", "/data/words.db")
	if flags.DBPath != "" {
		cfg.DatabasePath = flags.DBPath
	}
	cfg.DatabaseSecret = os.Getenv("DATABASE_SECRET")
	cfg.SeedFile = strings.TrimSpace(os.Getenv("SEED_FILE"))
	if flags.SeedFile != "" {
		cfg.SeedFile = flags.SeedFile
	}

	cfg.NoMCP = flags.NoMCP || parseBoolOrDefault("NO_MCP", false)
	cfg.NoMetrics = flags.NoMetrics || parseBoolOrDefault("NO_METRICS", false)

	// Rate limiting
	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", ratelimit.DefaultConfig.RPS),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	if flags.Test {
		cfg.Store = StoreMemory
		cfg.NoMetrics = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.ListenAddr == "" {
		errs = append(errs, "LISTEN_ADDR must not be empty")
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, "DATABASE_PATH is required with WORD_STORE=sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("WORD_STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, c.Store))
	}

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errs = append(errs, fmt.Sprintf("SEED_FILE %q is not readable: %v", c.SeedFile, err))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}

	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "wordfeed server starting...")

	if c.Store == StoreSQLite {
		encrypted := "plain"
		if c.DatabaseSecret != "" {
			encrypted = "SQLCipher"
		}
		fmt.Fprintf(os.Stderr, "  Store:   sqlite (%s, %s)\n", c.DatabasePath, encrypted)
	} else {
		fmt.Fprintln(os.Stderr, "  Store:   memory")
	}
	if c.SeedFile != "" {
		fmt.Fprintf(os.Stderr, "  Seed:    %s\n", c.SeedFile)
	}
	fmt.Fprintf(os.Stderr, "  Limit:   %.0f rps, burst %d\n", c.RateLimitConfig.RPS, c.RateLimitConfig.Burst)
	fmt.Fprintf(os.Stderr, "  MCP:     %t\n", !c.NoMCP)
	fmt.Fprintf(os.Stderr, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintf(os.Stderr, "  Base:    %s\n", c.BaseURL)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
func MustLoadConfig(flags Flags) *Config {
	cfg, err := LoadConfig(flags)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
