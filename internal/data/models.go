package data

import "time"

// Article is a published post as it leaves the legacy database.
type Article struct {
	ID          uint
	Permalink   string
	Title       string
	Body        string
	Excerpt     string
	PublishedAt time.Time
	CreatedAt   time.Time
	Tags        []string
}

// Comment is an approved comment together with the permalink of the article
// it belongs to.
type Comment struct {
	ID               uint
	ArticlePermalink string
	Author           string
	AuthorEmail      string
	AuthorURL        string
	Body             string
	CreatedAt        time.Time
}

// Tag becomes a Nesta category page.
type Tag struct {
	ID   uint
	Name string
}
