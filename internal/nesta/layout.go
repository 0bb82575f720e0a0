package nesta

import (
	"fmt"

	securejoin "github.com/cyphar/filepath-securejoin"

	"nesta-import/internal/data"
)

// Extension is appended to every exported file name.
const Extension = ".mdown"

// Layout holds the directory roots content is exported into.
type Layout struct {
	ArticleDir  string
	CommentDir  string
	CategoryDir string
}

// ArticlePath is <article dir>/<permalink>.mdown.
func (l Layout) ArticlePath(a data.Article) (string, error) {
	return join(l.ArticleDir, a.Permalink)
}

// CommentPath is <comment dir>/<basename>.mdown.
func (l Layout) CommentPath(c data.Comment) (string, error) {
	return join(l.CommentDir, CommentBasename(c))
}

// CategoryPath is <category dir>/<tag name>.mdown.
func (l Layout) CategoryPath(t data.Tag) (string, error) {
	return join(l.CategoryDir, t.Name)
}

// join keeps names taken from the database inside root, so a permalink such
// as "../../etc/passwd" cannot escape it.
func join(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name under %s", root)
	}
	p, err := securejoin.SecureJoin(root, name+Extension)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q under %s: %w", name, root, err)
	}
	return p, nil
}
