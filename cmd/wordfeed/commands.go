package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuitang/wordfeed/internal/config"
	"github.com/kuitang/wordfeed/internal/export"
	"github.com/kuitang/wordfeed/internal/pager"
	"github.com/kuitang/wordfeed/internal/s3client"
	"github.com/kuitang/wordfeed/internal/wordsync"
)

func listCmd(opts *globalOpts) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the words loaded so far",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if all {
				if _, err := pager.FetchAll(cmd.Context(), s.engine, fetchPolicy(s.cfg)); err != nil {
					return err
				}
			}
			state := s.engine.Snapshot()
			for _, rec := range state.Words {
				fmt.Fprintln(s.out, pager.FormatRecord(rec, false))
			}
			s.warnMirror(cmd)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every remaining page first")
	return cmd
}

func moreCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "more",
		Short: "Fetch the next page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.engine.FetchMore(cmd.Context())
			if err != nil {
				return err
			}
			switch {
			case res.Exhausted:
				fmt.Fprintf(s.out, "no more words (%d loaded)\n", s.engine.Len())
			default:
				fmt.Fprintf(s.out, "added %d, refreshed %d (%d loaded)\n", res.Added, res.Refreshed, s.engine.Len())
			}
			s.warnMirror(cmd)
			return nil
		},
	}
}

func addCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "add WORD...",
		Short: "Create a word",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.engine.CreateWord(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, pager.FormatRecord(rec, false))
			s.warnMirror(cmd)
			return nil
		},
	}
}

func editCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID WORD...",
		Short: "Replace a word's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.engine.UpdateWord(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, pager.FormatRecord(rec, false))
			s.warnMirror(cmd)
			return nil
		},
	}
}

func rmCmd(opts *globalOpts) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			confirm := wordsync.Always
			if !yes {
				confirm = promptConfirmer(s)
			}
			deleted, err := s.engine.DeleteWord(cmd.Context(), id, confirm)
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintf(s.out, "deleted %d\n", id)
			} else {
				fmt.Fprintln(s.out, "cancelled")
			}
			s.warnMirror(cmd)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// promptConfirmer asks on the session's input; anything but y or yes declines.
func promptConfirmer(s *session) wordsync.Confirmer {
	scanner := bufio.NewScanner(s.in)
	return func(_ context.Context, rec wordsync.Record) bool {
		fmt.Fprintf(s.out, "Delete %d %q? [y/N] ", rec.ID, rec.Word)
		if !scanner.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes"
	}
}

func syncCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch every remaining page into the mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			added, err := pager.FetchAll(cmd.Context(), s.engine, fetchPolicy(s.cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "synced: %d added, %d total\n", added, s.engine.Len())
			s.warnMirror(cmd)
			return nil
		},
	}
}

func browseCmd(opts *globalOpts) *cobra.Command {
	var (
		height  int
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through words interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			b := pager.New(s.engine, s.in, s.out, pager.Options{Height: height, NoColor: noColor})
			return b.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&height, "height", 20, "Rows per screen")
	cmd.Flags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "Disable colour")
	return cmd
}

func exportCmd(opts *globalOpts) *cobra.Command {
	var (
		format  string
		outPath string
		upload  string
		title   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the loaded words as Markdown or HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()
			records := s.engine.Snapshot().Words

			if upload != "" {
				client, err := s3client.New(cmd.Context(), s3Config(s.cfg.Mirror.S3))
				if err != nil {
					return err
				}
				key, err := export.Upload(cmd.Context(), client, upload, f, title, records)
				if err != nil {
					return err
				}
				fmt.Fprintf(s.out, "uploaded s3://%s/%s\n", client.BucketName(), key)
				return nil
			}

			data, err := export.Render(f, title, records)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err = s.out.Write(data)
				return err
			}
			return os.WriteFile(outPath, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md or html")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&upload, "upload", "", "Upload to the configured S3 bucket under this name")
	cmd.Flags().StringVar(&title, "title", "Words", "Document title")
	return cmd
}

func configCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the client configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write the default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := opts.configPath
				if path == "" {
					path = config.UserClientConfigPath()
				}
				if path == "" {
					return fmt.Errorf("no home directory; pass --config")
				}
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists", path)
				}
				if err := config.DefaultClientConfig().SaveToFile(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "server:    %s (timeout %s)\n", cfg.Server.BaseURL, cfg.Server.Timeout)
				fmt.Fprintf(out, "page size: %d\n", cfg.Sync.PageSize)
				fmt.Fprintf(out, "mirror:    %s %s\n", cfg.Mirror.Backend, cfg.Mirror.Path)
				fmt.Fprintf(out, "log level: %s\n", cfg.Log.Level)
				return nil
			},
		},
	)
	return cmd
}

func fetchPolicy(cfg *config.ClientConfig) pager.Policy {
	policy := pager.DefaultPolicy
	if cfg.Sync.MaxRetries >= 0 {
		policy.MaxRetries = uint64(cfg.Sync.MaxRetries)
	}
	return policy
}

func s3Config(c config.S3Config) s3client.Config {
	return s3client.Config{
		Endpoint:        c.Endpoint,
		Region:          c.Region,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		BucketName:      c.Bucket,
		Prefix:          c.Prefix,
	}
}
