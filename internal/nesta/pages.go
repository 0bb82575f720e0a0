package nesta

import (
	"strings"

	"nesta-import/internal/data"
)

const anonymousAuthor = "anonymous"

// ArticleMetadata builds the header for an exported article. The Atom ID is
// only included when domain is set.
func ArticleMetadata(a data.Article, domain string) Metadata {
	m := Metadata{
		"Date":       FormatDate(a.PublishedAt),
		"Categories": Categories(a.Tags),
		"Summary":    Summary(a.Excerpt),
	}
	if domain != "" {
		m["Atom ID"] = AtomID(domain, a.CreatedAt, a.ID)
	}
	return m
}

// ArticleText is the full file content of an exported article.
func ArticleText(a data.Article, domain string) string {
	return ArticleMetadata(a, domain).String() + "\n\n# " + a.Title + "\n\n" + withFinalNewline(a.Body)
}

// CommentMetadata builds the header for an exported comment, linking it to
// its article by permalink.
func CommentMetadata(c data.Comment) Metadata {
	return Metadata{
		"Date":         FormatDate(c.CreatedAt),
		"Article":      c.ArticlePermalink,
		"Author":       c.Author,
		"Author email": c.AuthorEmail,
		"Author URL":   c.AuthorURL,
	}
}

// CommentText is the full file content of an exported comment.
func CommentText(c data.Comment) string {
	return CommentMetadata(c).String() + "\n\n" + withFinalNewline(c.Body)
}

// withFinalNewline terminates s with a newline unless it already ends in one.
func withFinalNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// CommentBasename names a comment file after its creation time and author,
// e.g. "2009-03-05-10-30-00-jose-o-neil".
func CommentBasename(c data.Comment) string {
	author := Slugify(c.Author)
	if author == "" {
		author = anonymousAuthor
	}
	return c.CreatedAt.Format(basenameTimeLayout) + "-" + author
}

// CategoryText is the content of a category page: just its heading.
func CategoryText(t data.Tag) string {
	return "# " + t.Name + "\n"
}
