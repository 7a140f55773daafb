// wordfeed server: the paginated word collection API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/wordfeed/internal/api"
	"github.com/kuitang/wordfeed/internal/config"
	"github.com/kuitang/wordfeed/internal/crypto"
	"github.com/kuitang/wordfeed/internal/mcp"
	"github.com/kuitang/wordfeed/internal/metrics"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/ratelimit"
	"github.com/kuitang/wordfeed/internal/words"
)

func main() {
	obs.Init()

	flags, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	cfg := config.MustLoadConfig(flags)
	obs.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		obs.Pkg("main").Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := obs.Pkg("main")
	cfg.PrintStartupSummary()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	service := words.NewService(store)
	if cfg.SeedFile != "" {
		if err := seed(ctx, service, cfg.SeedFile); err != nil {
			return err
		}
	}

	limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newHandler(cfg, store, service, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutting_down", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore selects the word store. SQLite databases are encrypted when a
// secret is configured.
func openStore(cfg *config.Config) (words.Store, error) {
	if cfg.Store != config.StoreSQLite {
		return words.NewMemoryStore(), nil
	}
	key, err := crypto.KeyFromConfig(cfg.DatabaseSecret, crypto.ScopeWordStore)
	if err != nil {
		return nil, fmt.Errorf("derive database key: %w", err)
	}
	store, err := words.OpenSQLStore(cfg.DatabasePath, key)
	if err != nil {
		return nil, fmt.Errorf("open word store: %w", err)
	}
	return store, nil
}

func seed(ctx context.Context, service *words.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	n, err := service.Seed(ctx, f)
	if err != nil {
		return fmt.Errorf("seed words: %w", err)
	}
	obs.Pkg("main").Info("words_seeded", "path", path, "count", n)
	return nil
}

// newHandler assembles the route tree. Word and MCP routes sit behind the
// rate limiter; health and metrics do not.
func newHandler(cfg *config.Config, store words.Store, service *words.Service, limiter *ratelimit.RateLimiter) http.Handler {
	apiMux := http.NewServeMux()
	api.NewHandler(service).RegisterRoutes(apiMux)
	if !cfg.NoMCP {
		mountMCPRoute(apiMux, "/mcp", mcp.NewServer(service))
	}

	var limited http.Handler = apiMux
	if cfg.RateLimitConfig.Enabled() {
		limited = ratelimit.RateLimitMiddleware(limiter, nil)(apiMux)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	mux.Handle("/", limited)

	var handler http.Handler = mux
	if !cfg.NoMetrics {
		m := metrics.New(metrics.WordCounter(store))
		mux.Handle("GET /metrics", m.Handler())
		handler = m.Middleware(mux)
	}
	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("http", handler))
}

// mountMCPRoute registers every Streamable HTTP method on path.
func mountMCPRoute(mux *http.ServeMux, path string, handler http.Handler) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
		mux.Handle(method+" "+path, handler)
	}
}
