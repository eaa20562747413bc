package model

import (
	"time"

	"github.com/google/uuid"
)

// Post is a news release ("Medienmitteilung") as stored in the news_posts table.
type Post struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Content         string     `json:"content,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	MetaKeywords    string     `json:"meta_keywords,omitempty"`
	MetaDescription string     `json:"meta_description,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
}

// NewPost creates an unpublished post with a fresh id.
func NewPost(title, slug string) Post {
	return Post{
		ID:        uuid.New().String(),
		Title:     title,
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}
}

// DisplayDate is the publish time, or the creation time for drafts.
func (p Post) DisplayDate() time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// Published reports whether the post has a publish time.
func (p Post) Published() bool {
	return p.PublishedAt != nil
}
