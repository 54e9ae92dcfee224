package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

func createTestPost(t *testing.T, db *DB, author *model.Account, content string) *model.Post {
	t.Helper()
	p := &model.Post{Content: content, UserID: author.UID, AuthorName: author.DisplayName}
	if err := db.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return p
}

func TestPostCreate(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ada@example.com", "Ada")

	p := &model.Post{Content: "hello", UserID: author.UID, AuthorName: "Ada", ImageURL: "https://example.com/a.png"}
	if err := db.Posts().Create(context.Background(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Error("Create() did not set ID")
	}
	if p.CreatedAt.IsZero() {
		t.Error("Create() did not set CreatedAt")
	}

	found, err := db.Posts().GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Content != "hello" || found.ImageURL != "https://example.com/a.png" || found.AuthorName != "Ada" {
		t.Errorf("GetByID() = %+v", found)
	}
	if !found.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero for a fresh post", found.UpdatedAt)
	}
}

func TestPostCreate_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)

	p := &model.Post{Content: "orphan", UserID: "ghost", AuthorName: "Ghost"}
	err := db.Posts().Create(context.Background(), p)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
}

func TestPostList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ada@example.com", "Ada")
	for i := range 3 {
		createTestPost(t, db, author, fmt.Sprintf("post %d", i))
	}

	posts, err := db.Posts().List(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("List() returned %d posts, want 3", len(posts))
	}
	if posts[0].Content != "post 2" || posts[2].Content != "post 0" {
		t.Errorf("List() order = %q, %q, %q", posts[0].Content, posts[1].Content, posts[2].Content)
	}
}

func TestPostList_Pagination(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ada@example.com", "Ada")
	for i := range 5 {
		createTestPost(t, db, author, fmt.Sprintf("post %d", i))
	}

	tests := []struct {
		name string
		opts repository.ListOptions
		want int
	}{
		{"first page", repository.ListOptions{Limit: 2}, 2},
		{"last page", repository.ListOptions{Limit: 2, Offset: 4}, 1},
		{"past the end", repository.ListOptions{Limit: 2, Offset: 10}, 0},
		{"default limit", repository.ListOptions{}, 5},
		{"negative offset", repository.ListOptions{Offset: -3}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := db.Posts().List(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(posts) != tt.want {
				t.Errorf("List() returned %d posts, want %d", len(posts), tt.want)
			}
		})
	}
}

func TestPostUpdate(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ada@example.com", "Ada")
	p := createTestPost(t, db, author, "draft")

	p.Content = "final"
	if err := db.Posts().Update(context.Background(), p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Posts().GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Content != "final" {
		t.Errorf("Content = %q, want %q", found.Content, "final")
	}
	if found.UpdatedAt.IsZero() {
		t.Error("Update() did not set UpdatedAt")
	}
}

func TestPostUpdateAndDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Posts().Update(context.Background(), &model.Post{ID: "missing", Content: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	err = db.Posts().Delete(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestPostDelete(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "ada@example.com", "Ada")
	p := createTestPost(t, db, author, "short-lived")

	if err := db.Posts().Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Posts().GetByID(context.Background(), p.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after Delete error = %v, want ErrNotFound", err)
	}
}
