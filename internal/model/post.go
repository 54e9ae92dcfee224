package model

import "time"

// Post is a single entry in the public feed.
//
// The ID is assigned by the backend when the post is stored; the client never
// generates one. AuthorName is denormalized at creation time so the feed can be
// rendered without a user lookup per post.
type Post struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorName string    `json:"authorName"`
	UserID     string    `json:"userId"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
}

// PostPatch lists the fields an update may change. Nil means "leave as is".
type PostPatch struct {
	Content  *string `json:"content,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}
