package legacy

import (
	"context"
	"fmt"
	"time"

	"nesta-import/internal/data"

	"gorm.io/gorm"
)

// The legacy blog keeps articles and comments in a single "contents" table
// with a "type" discriminator. Tags hang off contents through "taggings".

const (
	TypeArticle = "Article"
	TypeComment = "Comment"
)

type Content struct {
	ID          uint `gorm:"primaryKey"`
	Type        string
	ArticleID   *uint
	Title       string
	Permalink   string
	Excerpt     string
	Body        string
	Author      string
	AuthorEmail string `gorm:"column:author_email"`
	AuthorURL   string `gorm:"column:author_url"`
	Approved    bool
	PublishedAt *time.Time
	CreatedAt   time.Time
}

func (Content) TableName() string { return "contents" }

type Tag struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func (Tag) TableName() string { return "tags" }

type Tagging struct {
	ID           uint `gorm:"primaryKey"`
	TagID        uint
	TaggableID   uint
	TaggableType string
}

func (Tagging) TableName() string { return "taggings" }

// Models lists the legacy tables, for building fixtures.
func Models() []any {
	return []any{&Content{}, &Tag{}, &Tagging{}}
}

// Reader loads exportable records from the legacy database. Every query
// materializes its full result set.
type Reader struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db, Now: time.Now}
}

// PublishedArticles returns articles whose publication date has passed,
// together with their tag names.
func (r *Reader) PublishedArticles(ctx context.Context) ([]data.Article, error) {
	rows, err := gorm.G[Content](r.db).
		Where("type = ? AND published_at IS NOT NULL AND published_at <= ?", TypeArticle, r.Now()).
		Order("id").
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	tags, err := r.tagNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	articles := make([]data.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, row.ToArticle(tags[row.ID]))
	}
	return articles, nil
}

type tagName struct {
	TaggableID uint
	Name       string
}

func (r *Reader) tagNames(ctx context.Context, contentIDs []uint) (map[uint][]string, error) {
	names := make(map[uint][]string)
	if len(contentIDs) == 0 {
		return names, nil
	}

	var rows []tagName
	err := r.db.WithContext(ctx).
		Table("taggings").
		Select("taggings.taggable_id, tags.name").
		Joins("JOIN tags ON tags.id = taggings.tag_id").
		Where("taggings.taggable_id IN ?", contentIDs).
		Order("taggings.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query taggings: %w", err)
	}

	for _, row := range rows {
		names[row.TaggableID] = append(names[row.TaggableID], row.Name)
	}
	return names, nil
}

// ApprovedComments returns approved comments with their article's permalink.
// A comment whose article cannot be found is an error.
func (r *Reader) ApprovedComments(ctx context.Context) ([]data.Comment, error) {
	rows, err := gorm.G[Content](r.db).
		Where("type = ? AND approved = ?", TypeComment, true).
		Order("id").
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}

	var articleIDs []uint
	for _, row := range rows {
		if row.ArticleID == nil {
			return nil, fmt.Errorf("comment %d has no article", row.ID)
		}
		articleIDs = append(articleIDs, *row.ArticleID)
	}

	permalinks := make(map[uint]string)
	if len(articleIDs) > 0 {
		parents, err := gorm.G[Content](r.db).Where("id IN ?", articleIDs).Find(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query comment articles: %w", err)
		}
		for _, p := range parents {
			permalinks[p.ID] = p.Permalink
		}
	}

	comments := make([]data.Comment, 0, len(rows))
	for _, row := range rows {
		permalink, ok := permalinks[*row.ArticleID]
		if !ok {
			return nil, fmt.Errorf("comment %d: article %d not found", row.ID, *row.ArticleID)
		}
		comments = append(comments, row.ToComment(permalink))
	}
	return comments, nil
}

// Tags returns every tag, whether or not anything is tagged with it.
func (r *Reader) Tags(ctx context.Context) ([]data.Tag, error) {
	rows, err := gorm.G[Tag](r.db).Order("id").Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}

	tags := make([]data.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, row.ToTag())
	}
	return tags, nil
}
