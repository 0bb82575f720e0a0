package migration

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nesta-import/internal/data"
	"nesta-import/internal/legacy"
	"nesta-import/internal/nesta"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacySchema = `
CREATE TABLE contents (
	id INTEGER PRIMARY KEY,
	type VARCHAR(20),
	article_id INTEGER,
	title VARCHAR(255),
	permalink VARCHAR(255),
	excerpt TEXT,
	body TEXT,
	author VARCHAR(255),
	author_email VARCHAR(255),
	author_url VARCHAR(255),
	approved BOOLEAN DEFAULT 0,
	published_at DATETIME,
	created_at DATETIME
);
CREATE TABLE tags (id INTEGER PRIMARY KEY, name VARCHAR(255));
CREATE TABLE taggings (id INTEGER PRIMARY KEY, tag_id INTEGER, taggable_id INTEGER, taggable_type VARCHAR(255));

INSERT INTO contents (id, type, title, permalink, excerpt, body, published_at, created_at) VALUES
	(42, 'Article', 'Hello Nesta', 'hello-nesta', '  Line one
line two  ', 'Welcome to the new site.', '2009-03-06 12:00:00', '2009-03-05 09:00:00'),
	(43, 'Article', 'Unfinished', 'unfinished', '', 'Draft', NULL, '2009-03-07 09:00:00');
INSERT INTO contents (id, type, article_id, author, author_email, author_url, body, approved, created_at) VALUES
	(50, 'Comment', 42, 'José O''Neil', 'jose@example.com', 'http://jose.example.com', 'Nice one.', 1, '2009-03-06 13:14:15'),
	(51, 'Comment', 42, 'Spam Bot', 'spam@example.com', '', 'Cheap pills', 0, '2009-03-06 14:00:00');
INSERT INTO tags (id, name) VALUES (1, 'ruby'), (2, 'nesta'), (3, 'unused');
INSERT INTO taggings (tag_id, taggable_id, taggable_type) VALUES (1, 42, 'Content'), (2, 42, 'Content');
`

func newLegacyDB(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "mephisto.sqlite3")

	legacyDB, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() {
		if cErr := legacyDB.Close(); cErr != nil {
			slog.Error("Failed to close legacy DB", "error", cErr)
		}
	}()

	_, err = legacyDB.Exec(legacySchema)
	require.NoError(t, err)
	return path
}

func newLayout(root string) nesta.Layout {
	return nesta.Layout{
		ArticleDir:  filepath.Join(root, "articles"),
		CommentDir:  filepath.Join(root, "comments"),
		CategoryDir: filepath.Join(root, "categories"),
	}
}

func readFile(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestMigrateContent(t *testing.T) {
	db, err := data.OpenDB(data.DBOptions{Adapter: "sqlite3", DSN: newLegacyDB(t), LogLevel: "ERROR"})
	require.NoError(t, err)
	defer data.CloseDB(db)

	root := t.TempDir()
	reg := prometheus.NewRegistry()

	summary, err := MigrateContent(context.Background(), legacy.NewReader(db), Options{
		Layout:     newLayout(root),
		Domain:     "example.com",
		Registerer: reg,
	})
	require.NoError(t, err, "Migration failed")

	assert.Equal(t, map[string]int{KindArticle: 1, KindComment: 1, KindCategory: 3}, summary.Written)
	assert.Empty(t, summary.Skipped)
	assert.Len(t, summary.Paths, 5)

	article := readFile(t, filepath.Join(root, "articles", "hello-nesta.mdown"))
	assert.Equal(t, strings.Join([]string{
		"Atom ID: tag:example.com,2009-03-05:42",
		"Categories: nesta, ruby",
		"Date: 2009-03-06 12:00:00 +0000",
		`Summary: Line one\nline two`,
		"",
		"# Hello Nesta",
		"",
		"Welcome to the new site.",
		"",
	}, "\n"), article)

	assert.NoFileExists(t, filepath.Join(root, "articles", "unfinished.mdown"))

	comment := readFile(t, filepath.Join(root, "comments", "2009-03-06-13-14-15-jose-o-neil.mdown"))
	assert.Contains(t, comment, "Article: hello-nesta\n")
	assert.Contains(t, comment, "Author: José O'Neil\n")
	assert.Contains(t, comment, "Author email: jose@example.com\n")
	assert.True(t, strings.HasSuffix(comment, "\n\nNice one.\n"))

	entries, err := os.ReadDir(filepath.Join(root, "comments"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "unapproved comments are not exported")

	assert.Equal(t, "# unused\n", readFile(t, filepath.Join(root, "categories", "unused.mdown")))

	assert.Equal(t, 3.0, counterValue(t, reg, "nesta_import_files_written_total", KindCategory))
	assert.Equal(t, 3, testutil.CollectAndCount(reg, "nesta_import_files_written_total"), "one series per kind")
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, kind string) float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "kind" && lp.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{kind=%q} not found", name, kind)
	return 0
}

type fakeSource struct {
	articles    []data.Article
	comments    []data.Comment
	tags        []data.Tag
	commentsErr error
}

func (f *fakeSource) PublishedArticles(context.Context) ([]data.Article, error) {
	return f.articles, nil
}

func (f *fakeSource) ApprovedComments(context.Context) ([]data.Comment, error) {
	return f.comments, f.commentsErr
}

func (f *fakeSource) Tags(context.Context) ([]data.Tag, error) {
	return f.tags, nil
}

func TestMigrateContentSkipsExistingFiles(t *testing.T) {
	root := t.TempDir()
	layout := newLayout(root)
	existing := filepath.Join(layout.CategoryDir, "ruby.mdown")
	require.NoError(t, os.MkdirAll(layout.CategoryDir, 0755))
	require.NoError(t, os.WriteFile(existing, []byte("hand edited"), 0644))

	src := &fakeSource{tags: []data.Tag{{ID: 1, Name: "ruby"}, {ID: 2, Name: "nesta"}}}
	summary, err := MigrateContent(context.Background(), src, Options{Layout: layout})
	require.NoError(t, err)

	assert.Equal(t, "hand edited", readFile(t, existing))
	assert.Equal(t, 1, summary.Skipped[KindCategory])
	assert.Equal(t, 1, summary.Written[KindCategory])
	assert.Equal(t, "# nesta\n", readFile(t, filepath.Join(layout.CategoryDir, "nesta.mdown")))
}

func TestMigrateContentClobber(t *testing.T) {
	root := t.TempDir()
	layout := newLayout(root)
	existing := filepath.Join(layout.ArticleDir, "hello.mdown")
	require.NoError(t, os.MkdirAll(layout.ArticleDir, 0755))
	require.NoError(t, os.WriteFile(existing, []byte(strings.Repeat("stale content ", 100)), 0644))

	src := &fakeSource{articles: []data.Article{{
		ID:          1,
		Permalink:   "hello",
		Title:       "Hello",
		Body:        "Fresh",
		PublishedAt: time.Date(2009, 3, 5, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2009, 3, 5, 0, 0, 0, 0, time.UTC),
	}}}
	summary, err := MigrateContent(context.Background(), src, Options{Layout: layout, Clobber: true})
	require.NoError(t, err)

	got := readFile(t, existing)
	assert.NotContains(t, got, "stale")
	assert.True(t, strings.HasSuffix(got, "# Hello\n\nFresh\n"))
	assert.Equal(t, 1, summary.Written[KindArticle])
	assert.Empty(t, summary.Skipped)
}

func TestMigrateContentSourceError(t *testing.T) {
	src := &fakeSource{commentsErr: errors.New("comment 3: article 9 not found")}
	_, err := MigrateContent(context.Background(), src, Options{Layout: newLayout(t.TempDir())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "article 9 not found")
}

func TestMigrateContentWriteFailureAborts(t *testing.T) {
	root := t.TempDir()
	layout := newLayout(root)
	// A regular file where the category directory should be.
	require.NoError(t, os.WriteFile(layout.CategoryDir, []byte("not a dir"), 0644))

	src := &fakeSource{tags: []data.Tag{{ID: 1, Name: "ruby"}, {ID: 2, Name: "nesta"}}}
	_, err := MigrateContent(context.Background(), src, Options{Layout: layout})
	assert.Error(t, err)
}
