package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nesta-import/internal/data"
	"nesta-import/internal/nesta"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Kinds of exported files, used as the "kind" metric label.
const (
	KindArticle  = "article"
	KindComment  = "comment"
	KindCategory = "category"
)

// Source supplies the records to export.
type Source interface {
	PublishedArticles(ctx context.Context) ([]data.Article, error)
	ApprovedComments(ctx context.Context) ([]data.Comment, error)
	Tags(ctx context.Context) ([]data.Tag, error)
}

type Options struct {
	Layout nesta.Layout
	// Domain enables Atom IDs on articles when set.
	Domain string
	// Clobber overwrites files left by an earlier run.
	Clobber bool
	// Registerer receives the file counters. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Summary reports what a run did.
type Summary struct {
	Written map[string]int
	Skipped map[string]int
	// Paths lists every file written, in write order.
	Paths []string
}

type metrics struct {
	written *prometheus.CounterVec
	skipped *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		written: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nesta_import_files_written_total",
			Help: "Content files written by the importer.",
		}, []string{"kind"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nesta_import_files_skipped_total",
			Help: "Content files skipped because they already existed.",
		}, []string{"kind"}),
	}
}

type exporter struct {
	opts    Options
	metrics *metrics
	summary *Summary
}

// MigrateContent exports articles, comments and categories from src into the
// configured layout. The first failure aborts the run; files written before
// it are left in place.
func MigrateContent(ctx context.Context, src Source, opts Options) (*Summary, error) {
	slog.Info("Exporting content",
		"articles", opts.Layout.ArticleDir,
		"comments", opts.Layout.CommentDir,
		"categories", opts.Layout.CategoryDir,
		"clobber", opts.Clobber)

	e := &exporter{
		opts:    opts,
		metrics: newMetrics(opts.Registerer),
		summary: &Summary{Written: map[string]int{}, Skipped: map[string]int{}},
	}

	// 1. Articles
	articles, err := src.PublishedArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	slog.Info("Found articles to export", "count", len(articles))
	for _, a := range articles {
		path, err := opts.Layout.ArticlePath(a)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", a.ID, err)
		}
		if err := e.export(KindArticle, path, nesta.ArticleText(a, opts.Domain)); err != nil {
			return nil, err
		}
	}

	// 2. Comments
	comments, err := src.ApprovedComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	slog.Info("Found comments to export", "count", len(comments))
	for _, c := range comments {
		path, err := opts.Layout.CommentPath(c)
		if err != nil {
			return nil, fmt.Errorf("comment %d: %w", c.ID, err)
		}
		if err := e.export(KindComment, path, nesta.CommentText(c)); err != nil {
			return nil, err
		}
	}

	// 3. Categories
	tags, err := src.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	slog.Info("Found categories to export", "count", len(tags))
	for _, t := range tags {
		path, err := opts.Layout.CategoryPath(t)
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", t.ID, err)
		}
		if err := e.export(KindCategory, path, nesta.CategoryText(t)); err != nil {
			return nil, err
		}
	}

	slog.Info("Export complete.", "written", e.summary.Written, "skipped", e.summary.Skipped)

	return e.summary, nil
}

func (e *exporter) export(kind, path, text string) error {
	if _, err := os.Stat(path); err == nil {
		if !e.opts.Clobber {
			slog.Warn("Target already exists, skipping", "kind", kind, "path", path)
			e.summary.Skipped[kind]++
			e.metrics.skipped.WithLabelValues(kind).Inc()
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	slog.Info("Writing", "kind", kind, "path", path)
	if err := writeFile(path, text); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	e.summary.Written[kind]++
	e.summary.Paths = append(e.summary.Paths, path)
	e.metrics.written.WithLabelValues(kind).Inc()
	return nil
}

func writeFile(path, text string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	_, err = f.WriteString(text)
	return err
}
