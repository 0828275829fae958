package models

import "time"

// Content is the embedded base shared by feed items, todos and comments.
// Author and Parent are plain indexed string keys, not owning references:
// the referenced record governs its own lifetime and is loaded on demand.
type Content struct {
	Key     string    `bson:"key" json:"key"`
	Title   string    `bson:"title" json:"title,omitempty"`
	Content string    `bson:"content" json:"content,omitempty"`
	Author  string    `bson:"author" json:"-"`
	Date    time.Time `bson:"date" json:"date"`
	Parent  string    `bson:"parent" json:"-"`
}

// Commentable is the capability shared by entities that own comments.
// Deleting a Commentable cascades to every comment indexed under its key.
type Commentable interface {
	CommentKey() string
}

// FeedItem is a project-scoped activity entry. Type discriminates the entry
// kind for filtered listings. Archived items are excluded from live listings
// but kept in the store.
type FeedItem struct {
	Content  `bson:",inline"`
	Type     string `bson:"type" json:"type"`
	Archived bool   `bson:"archived" json:"-"`
}

func (f *FeedItem) CommentKey() string { return f.Key }

// Todo is a project-scoped todo entry.
type Todo struct {
	Content  `bson:",inline"`
	Done     bool       `bson:"done" json:"done"`
	Tags     []string   `bson:"tags" json:"tags,omitempty"`
	Due      *time.Time `bson:"due,omitempty" json:"due,omitempty"`
	Assigned string     `bson:"assigned,omitempty" json:"assigned,omitempty"`
}

func (t *Todo) CommentKey() string { return t.Key }

// Comment belongs to a FeedItem or Todo via Parent.
type Comment struct {
	Content `bson:",inline"`
}
