package model

import (
	"time"

	apperrors "medcircle/internal/errors"
)

// ItemKind names the collection a post or question lives in.
type ItemKind string

const (
	KindPost     ItemKind = "posts"
	KindQuestion ItemKind = "questions"
)

// ParseItemKind validates a kind taken from a route or payload.
func ParseItemKind(s string) (ItemKind, error) {
	switch ItemKind(s) {
	case KindPost, KindQuestion:
		return ItemKind(s), nil
	}
	return "", apperrors.ErrInvalidItemKind
}

// ItemRef addresses a single post or question.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
}

// AuthorSnapshot is copied onto content at creation time and not kept in sync afterwards.
type AuthorSnapshot struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	PhotoURL string `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
}

// Item is a post or a question. Title and Category only apply to questions, Tags to posts.
type Item struct {
	ID             string               `json:"id" bson:"_id"`
	Kind           ItemKind             `json:"kind" bson:"kind"`
	AuthorID       string               `json:"author_id" bson:"author_id"`
	Author         AuthorSnapshot       `json:"author" bson:"author"`
	Title          string               `json:"title,omitempty" bson:"title,omitempty"`
	Content        string               `json:"content" bson:"content"`
	Tags           []string             `json:"tags,omitempty" bson:"tags,omitempty"`
	Category       string               `json:"category,omitempty" bson:"category,omitempty"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at"`
	Views          int64                `json:"views" bson:"views"`
	UniqueViewers  []string             `json:"-" bson:"unique_viewers"`
	ViewerLastSeen map[string]time.Time `json:"-" bson:"viewer_last_seen,omitempty"`
	LastViewed     *time.Time           `json:"last_viewed,omitempty" bson:"last_viewed,omitempty"`
	Likes          int64                `json:"likes" bson:"likes"`
	Dislikes       int64                `json:"dislikes" bson:"dislikes"`
	CommentCount   int64                `json:"comment_count" bson:"comment_count"`
}

// Ref returns the address of the item.
func (i *Item) Ref() ItemRef {
	return ItemRef{Kind: i.Kind, ID: i.ID}
}

// UniqueViewerCount is exposed instead of the raw viewer set.
func (i *Item) UniqueViewerCount() int {
	return len(i.UniqueViewers)
}

// ItemSort orders list results.
type ItemSort string

const (
	SortNewest  ItemSort = "newest"
	SortPopular ItemSort = "popular"
	SortViews   ItemSort = "views"
)

// ItemFilter narrows a paginated item listing.
type ItemFilter struct {
	Kind     ItemKind
	Tag      string
	Category string
	AuthorID string
	Sort     ItemSort
	Page     int
	Limit    int
}
