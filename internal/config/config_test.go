package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/wordfeed/internal/ratelimit"
)

func validTestConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		Store:           StoreMemory,
		LogLevel:        "info",
		RateLimitConfig: ratelimit.DefaultConfig,
	}
}

func TestValidate_MinimalConfigPasses(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.Store = "postgres"
	cfg.LogLevel = "loud"
	cfg.RateLimitConfig.RPS = 0
	cfg.RateLimitConfig.Burst = -1

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 4)
	assert.Contains(t, err.Error(), "WORD_STORE")
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.Store = StoreSQLite
	cfg.DatabasePath = ""
	assert.Error(t, cfg.Validate())

	cfg.DatabasePath = "/tmp/words.db"
	assert.NoError(t, cfg.Validate())
}

func testValidate_RateLimitSign(t *rapid.T) {
	cfg := validTestConfig()
	cfg.RateLimitConfig.RPS = rapid.Float64Range(-100, 100).Draw(t, "rps")
	cfg.RateLimitConfig.Burst = rapid.IntRange(-100, 100).Draw(t, "burst")

	err := cfg.Validate()
	valid := cfg.RateLimitConfig.RPS > 0 && cfg.RateLimitConfig.Burst > 0
	if valid && err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if !valid && err == nil {
		t.Fatalf("expected error for rps=%v burst=%d", cfg.RateLimitConfig.RPS, cfg.RateLimitConfig.Burst)
	}
}

func TestValidate_RateLimitSign(t *testing.T) {
	rapid.Check(t, testValidate_RateLimitSign)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("WORD_STORE", StoreSQLite)
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "words.db"))
	t.Setenv("RATE_LIMIT_RPS", "5")
	t.Setenv("RATE_LIMIT_CLEANUP_INTERVAL", "2m")

	cfg, err := LoadConfig(Flags{Addr: ":7000", Store: StoreMemory})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:7000", cfg.BaseURL)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 5.0, cfg.RateLimitConfig.RPS)
	assert.Equal(t, 2*time.Minute, cfg.RateLimitConfig.CleanupInterval)
}

func TestLoadConfig_TestModeForcesMemory(t *testing.T) {
	t.Setenv("WORD_STORE", StoreSQLite)
	cfg, err := LoadConfig(Flags{Test: true})
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.NoMetrics)
}

func TestLoadConfig_MissingSeedFile(t *testing.T) {
	_, err := LoadConfig(Flags{SeedFile: filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_FILE")
}

func TestClientConfig_DefaultsValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultClientConfig().Validate())
}

func TestClientConfig_FileRoundTripAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := strings.Join([]string{
		"server:",
		"  base_url: http://words.example:9090",
		"mirror:",
		"  backend: bolt",
		"  path: /tmp/mirror.bolt",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0600))

	cfg, err := LoadClientConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://words.example:9090", cfg.Server.BaseURL)
	assert.Equal(t, MirrorBolt, cfg.Mirror.Backend)
	assert.Equal(t, 200, cfg.Sync.PageSize, "unset fields keep defaults")
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)

	out := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	require.NoError(t, cfg.SaveToFile(out))
	reloaded, err := LoadClientFromFile(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestClientConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  base_url: http://file:1\n"), 0600))
	t.Setenv("WORDFEED_SERVER_URL", "http://env:2")
	t.Setenv("WORDFEED_MIRROR_BACKEND", MirrorMemory)

	cfg, err := LoadClientConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", cfg.Server.BaseURL)
	assert.Equal(t, MirrorMemory, cfg.Mirror.Backend)
}

func TestClientConfig_ExplicitMissingFileFails(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestClientConfig_ValidateBackends(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *ClientConfig)
		wantErr string
	}{
		{"unknown backend", func(c *ClientConfig) { c.Mirror.Backend = "floppy" }, "mirror.backend"},
		{"redis without url", func(c *ClientConfig) { c.Mirror.Backend = MirrorRedis }, "redis_url"},
		{"s3 without bucket", func(c *ClientConfig) { c.Mirror.Backend = MirrorS3 }, "bucket"},
		{"relative base url", func(c *ClientConfig) { c.Server.BaseURL = "localhost" }, "absolute"},
		{"zero page size", func(c *ClientConfig) { c.Sync.PageSize = 0 }, "page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClientConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	f, err := ParseFlags(fs, []string{"--addr", ":9999", "--store", "sqlite", "--db", "/tmp/w.db", "--no-mcp", "--test"})
	require.NoError(t, err)
	assert.Equal(t, Flags{Addr: ":9999", Store: StoreSQLite, DBPath: "/tmp/w.db", NoMCP: true, Test: true}, f)

	_, err = ParseFlags(flag.NewFlagSet("server", flag.ContinueOnError), []string{"--bogus"})
	assert.Error(t, err)
}
