package legacy

import (
	"nesta-import/internal/data"
)

// ToArticle converts an article row. Rows without a publication date get
// their creation date.
func (c *Content) ToArticle(tags []string) data.Article {
	published := c.CreatedAt
	if c.PublishedAt != nil {
		published = *c.PublishedAt
	}

	return data.Article{
		ID:          c.ID,
		Permalink:   c.Permalink,
		Title:       c.Title,
		Body:        c.Body,
		Excerpt:     c.Excerpt,
		PublishedAt: published,
		CreatedAt:   c.CreatedAt,
		Tags:        tags,
	}
}

// ToComment converts a comment row belonging to the article at permalink.
func (c *Content) ToComment(permalink string) data.Comment {
	return data.Comment{
		ID:               c.ID,
		ArticlePermalink: permalink,
		Author:           c.Author,
		AuthorEmail:      c.AuthorEmail,
		AuthorURL:        c.AuthorURL,
		Body:             c.Body,
		CreatedAt:        c.CreatedAt,
	}
}

func (t *Tag) ToTag() data.Tag {
	return data.Tag{ID: t.ID, Name: t.Name}
}
