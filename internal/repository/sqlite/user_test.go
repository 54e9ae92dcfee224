package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	a := &model.Account{User: model.User{Email: "ada@example.com", DisplayName: "Ada"}}
	if err := db.Users().Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if a.UID == "" {
		t.Error("Create() did not set UID")
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}
	if a.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", a.Role, model.RoleUser)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "ada@example.com", "Ada")

	dup := &model.Account{User: model.User{Email: "ADA@example.com", DisplayName: "Other"}}
	err := db.Users().Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateGitHubID(t *testing.T) {
	db := newTestDB(t)
	users := db.Users()

	first := &model.Account{User: model.User{DisplayName: "octocat"}, GitHubID: 42}
	if err := users.Create(context.Background(), first); err != nil {
		t.Fatalf("Create() first: %v", err)
	}
	second := &model.Account{User: model.User{DisplayName: "copycat"}, GitHubID: 42}
	if err := users.Create(context.Background(), second); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

// Several accounts without an email or GitHub link must coexist.
func TestUserCreate_EmptyEmailsDoNotCollide(t *testing.T) {
	db := newTestDB(t)
	users := db.Users()

	for _, id := range []int64{1, 2} {
		a := &model.Account{User: model.User{DisplayName: "gh"}, GitHubID: id}
		if err := users.Create(context.Background(), a); err != nil {
			t.Fatalf("Create() github %d: %v", id, err)
		}
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "ada@example.com", "Ada")

	found, err := db.Users().GetByID(context.Background(), created.UID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want %q", found.DisplayName, "Ada")
	}
	if found.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, "hash")
	}
	if found.GitHubID != 0 {
		t.Errorf("GitHubID = %d, want 0", found.GitHubID)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "Ada@Example.com", "Ada")

	found, err := db.Users().GetByEmail(context.Background(), "ada@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found.UID != created.UID {
		t.Errorf("UID = %q, want %q", found.UID, created.UID)
	}

	if _, err := db.Users().GetByEmail(context.Background(), ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByGitHubID(t *testing.T) {
	db := newTestDB(t)
	a := &model.Account{User: model.User{DisplayName: "octocat"}, GitHubID: 778899}
	if err := db.Users().Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := db.Users().GetByGitHubID(context.Background(), 778899)
	if err != nil {
		t.Fatalf("GetByGitHubID() error = %v", err)
	}
	if found.UID != a.UID {
		t.Errorf("UID = %q, want %q", found.UID, a.UID)
	}

	if _, err := db.Users().GetByGitHubID(context.Background(), 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByGitHubID() error = %v, want ErrNotFound", err)
	}
}

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "ada@example.com", "Ada")
	createdAt := a.CreatedAt

	a.DisplayName = "Ada L."
	a.GitHubID = 7
	a.Role = model.RoleAdmin
	if err := db.Users().Update(context.Background(), a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.Users().GetByGitHubID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByGitHubID() after Update: %v", err)
	}
	if found.DisplayName != "Ada L." || found.Role != model.RoleAdmin {
		t.Errorf("profile not updated: %+v", found.User)
	}
	if !found.CreatedAt.Equal(createdAt) {
		t.Errorf("Update() changed CreatedAt: got %v, want %v", found.CreatedAt, createdAt)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	a := &model.Account{User: model.User{UID: "missing", Email: "x@example.com"}}
	if err := db.Users().Update(context.Background(), a); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUserList(t *testing.T) {
	db := newTestDB(t)
	ada := createTestUser(t, db, "ada@example.com", "Ada")
	bob := createTestUser(t, db, "bob@example.com", "Bob")

	all, err := db.Users().List(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].UID != ada.UID || all[1].UID != bob.UID {
		t.Fatalf("List() = %+v, want ada then bob", all)
	}

	page, err := db.Users().List(context.Background(), repository.ListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List(limit 1, offset 1) error = %v", err)
	}
	if len(page) != 1 || page[0].UID != bob.UID {
		t.Errorf("List(limit 1, offset 1) = %+v, want bob", page)
	}
}

func TestUserList_Empty(t *testing.T) {
	db := newTestDB(t)

	all, err := db.Users().List(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("List() = %#v, want an empty non-nil slice", all)
	}
}

func TestUserDelete_CascadesToContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ada := createTestUser(t, db, "ada@example.com", "Ada")
	bob := createTestUser(t, db, "bob@example.com", "Bob")
	createTestPost(t, db, ada, "bye")
	kept := createTestPost(t, db, bob, "still here")
	if err := db.Tasks().Create(ctx, &model.Task{Title: "t", Status: model.TaskTodo, UserID: ada.UID}); err != nil {
		t.Fatalf("creating task: %v", err)
	}

	if err := db.Users().Delete(ctx, ada.UID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.Users().GetByID(ctx, ada.UID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after Delete: error = %v, want ErrNotFound", err)
	}
	posts, err := db.Posts().List(ctx, repository.ListOptions{})
	if err != nil {
		t.Fatalf("listing posts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != kept.ID {
		t.Errorf("posts after Delete = %+v, want only %s", posts, kept.ID)
	}
	tasks, err := db.Tasks().ListByUser(ctx, ada.UID)
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks after Delete = %+v, want none", tasks)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	if err := db.Users().Delete(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
