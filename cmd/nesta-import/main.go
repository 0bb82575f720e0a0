package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"nesta-import/internal/config"
	"nesta-import/internal/data"
	"nesta-import/internal/gitutils"
	"nesta-import/internal/legacy"
	"nesta-import/internal/migration"
	"nesta-import/internal/nesta"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// options are the flags that are not part of config.Settings.
type options struct {
	clobber     bool
	metricsFile string
	commit      bool
	logOutput   io.Writer
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd(cfg *config.Settings, logOutput io.Writer) *cobra.Command {
	opts := &options{logOutput: logOutput}

	cmd := &cobra.Command{
		Use:   "nesta-import",
		Short: "Export articles, comments and tags from a legacy blog database into Nesta content files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Username == "" || cfg.Password == "" {
				return errors.New("--username and --password are required")
			}
			// Past argument validation: failures from here on are not usage
			// errors and are reported through slog by execute.
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return run(cmd.Context(), cfg, opts)
		},
	}

	flags := cmd.Flags()
	// Defined up front so cobra does not claim -h, which belongs to --host.
	flags.Bool("help", false, "help for nesta-import")
	flags.StringVarP(&cfg.Adapter, "adapter", "a", cfg.Adapter, "database adapter (mysql, postgres, sqlite3)")
	flags.StringVarP(&cfg.Domain, "domain", "d", cfg.Domain, "domain used to build Atom IDs")
	flags.BoolVarP(&opts.clobber, "clobber", "c", false, "overwrite files that already exist")
	flags.StringVarP(&cfg.Database, "database", "D", cfg.Database, "database name (file path for sqlite3)")
	flags.StringVarP(&cfg.Host, "host", "h", cfg.Host, "database host")
	flags.StringVarP(&cfg.Username, "username", "u", cfg.Username, "database user (required)")
	flags.StringVarP(&cfg.Password, "password", "p", cfg.Password, "database password (required)")
	flags.StringVar(&cfg.ContentDir, "content", cfg.ContentDir, "content directory (default from the nesta config, else \"content\")")
	flags.StringVar(&cfg.NestaConfig, "config", cfg.NestaConfig, "nesta config file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.BoolVar(&opts.commit, "commit", false, "commit written files to the git repository holding the content directory")

	return cmd
}

func run(ctx context.Context, cfg *config.Settings, opts *options) error {
	level, ok := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(newLogger(opts.logOutput, level))
	if !ok {
		slog.Warn("Invalid LOG_LEVEL, defaulting to INFO", "level", cfg.LogLevel)
	}

	root, err := cfg.ContentRoot()
	if err != nil {
		return err
	}
	articles, comments, categories := cfg.ExportDirs(root)

	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}

	db, err := data.OpenDB(data.DBOptions{
		Adapter:  cfg.Adapter,
		DSN:      dsn,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer data.CloseDB(db)

	reg := prometheus.NewRegistry()
	if opts.metricsFile != "" {
		if err := data.RegisterDBStats(reg, db); err != nil {
			return err
		}
	}

	summary, err := migration.MigrateContent(ctx, legacy.NewReader(db), migration.Options{
		Layout: nesta.Layout{
			ArticleDir:  articles,
			CommentDir:  comments,
			CategoryDir: categories,
		},
		Domain:     cfg.Domain,
		Clobber:    opts.clobber,
		Registerer: reg,
	})
	if err != nil {
		return err
	}

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if opts.commit {
		if err := commitContent(root, summary.Paths, cfg.Database); err != nil {
			return err
		}
	}

	return nil
}

func commitContent(root string, paths []string, database string) error {
	msg := fmt.Sprintf("Import content from %s", database)
	_, err := gitutils.CommitPaths(root, paths, msg, gitutils.Signature{Name: "nesta-import", Email: "nesta-import@localhost"})
	if errors.Is(err, gitutils.ErrNothingToCommit) {
		slog.Info("No content changes to commit")
		return nil
	}
	if err != nil {
		return err
	}

	head, err := gitutils.HeadInfo(root)
	if err != nil {
		return err
	}
	slog.Info("Content repository updated",
		"branch", head.Branch,
		"commit", head.CommitHash,
		"message", head.Message,
		"date", head.CommitDate)
	return nil
}

// execute runs cmd and returns the process exit code. Errors cobra has not
// already printed are logged.
func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		if cmd.SilenceErrors {
			slog.Error("Import failed", "error", err)
		}
		return 1
	}
	return 0
}

func main() {
	// Initialize slog before anything else that might log
	slog.SetDefault(newLogger(os.Stdout, slog.LevelInfo))

	cfg, err := config.LoadSettings()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	os.Exit(execute(context.Background(), newRootCmd(cfg, os.Stdout)))
}
