// Package main provides the wordfeed client: a command-line front end to the
// sync engine with a local mirror of the word collection.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kuitang/wordfeed/internal/config"
	"github.com/kuitang/wordfeed/internal/mirror"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/remote"
	"github.com/kuitang/wordfeed/internal/wordsync"
)

const (
	Version = "0.1.0"
	appName = "wordfeed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs.Init()
	if err := rootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOpts are the persistent flags shared by every subcommand.
type globalOpts struct {
	configPath string
	server     string
	mirror     string
	mirrorPath string
	pageSize   int
	logLevel   string
}

// session is the engine and its collaborators for one command.
type session struct {
	cfg    *config.ClientConfig
	engine *wordsync.Engine
	mirror *mirror.Store
	in     io.Reader
	out    io.Writer
}

func (s *session) Close() error {
	if s.mirror == nil {
		return nil
	}
	return s.mirror.Close()
}

// warnMirror reports a failed local save; the remote change still stands.
func (s *session) warnMirror(cmd *cobra.Command) {
	if err := s.engine.Snapshot().MirrorErr; err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: local mirror not saved: %v\n", err)
	}
}

func rootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &globalOpts{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Browse and edit a remote word collection",
		Long: `wordfeed pages through a remote word collection, keeps a local
mirror of everything seen so far, and applies edits optimistically.

The mirror lets the next run start where the last one stopped without
refetching.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, default ~/.config/wordfeed/config.yaml)")
	pf.StringVar(&opts.server, "server", "", "Word service base URL")
	pf.StringVar(&opts.mirror, "mirror", "", "Mirror backend: file, sqlite, bolt, redis, s3 or memory")
	pf.StringVar(&opts.mirrorPath, "mirror-path", "", "Mirror location for file, sqlite and bolt backends")
	pf.IntVar(&opts.pageSize, "page-size", 0, "Words requested per fetch")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		listCmd(opts),
		moreCmd(opts),
		addCmd(opts),
		editCmd(opts),
		rmCmd(opts),
		syncCmd(opts),
		browseCmd(opts),
		exportCmd(opts),
		configCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(opts *globalOpts) (*config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig(opts.configPath, obs.Pkg("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.server != "" {
		cfg.Server.BaseURL = opts.server
	}
	if opts.mirror != "" {
		cfg.Mirror.Backend = opts.mirror
	}
	if opts.mirrorPath != "" {
		cfg.Mirror.Path = opts.mirrorPath
	}
	if opts.pageSize > 0 {
		cfg.Sync.PageSize = opts.pageSize
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	obs.SetLevel(cfg.Log.Level)
	return cfg, nil
}

// openSession builds and initializes the engine. The caller must Close it.
func openSession(cmd *cobra.Command, opts *globalOpts) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	m, err := mirror.Open(ctx, cfg.Mirror)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	client := remote.NewHTTPClient(cfg.Server.BaseURL, cfg.Server.Timeout, remote.WithClientID(appName+"/"+Version))
	engine := wordsync.New(client, m, wordsync.WithPageSize(cfg.Sync.PageSize))

	s := &session{cfg: cfg, engine: engine, mirror: m, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
	if err := engine.Initialize(obs.WithSessionID(ctx, client.SessionID())); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
