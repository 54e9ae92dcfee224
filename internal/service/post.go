package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/flux"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

var _ flux.PostBackend = (*PostService)(nil)

// PostService manages the public feed.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, users: users, logger: orDiscard(logger)}
}

// Create validates draft and stores it. The author name is taken from the
// author's account at creation time, not from the draft.
func (s *PostService) Create(ctx context.Context, draft model.Post) (*model.Post, error) {
	content, err := validateContent(draft.Content)
	if err != nil {
		return nil, err
	}
	imageURL, err := validateImageURL(draft.ImageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft.UserID) == "" {
		return nil, apperror.ValidationFailed("userId", "you must be signed in to post")
	}

	author, err := s.users.GetByID(ctx, draft.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ValidationFailed("userId", "unknown author")
	}
	if err != nil {
		return nil, fmt.Errorf("service/post: loading author %s: %w", draft.UserID, err)
	}

	post := &model.Post{
		Content:    content,
		UserID:     author.UID,
		AuthorName: authorName(author),
		ImageURL:   imageURL,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("userID", author.UID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created", slog.String("id", post.ID), slog.String("userID", post.UserID))
	return post, nil
}

// List returns the newest FeedLimit posts, newest first.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.List(ctx, repository.ListOptions{Limit: FeedLimit})
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return posts, nil
}

// Update applies patch to the post with the given id on behalf of actorID.
// Fields left nil keep their stored value. Only the author or an admin may
// edit a post.
func (s *PostService) Update(ctx context.Context, actorID, id string, patch model.PostPatch) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post id is required")
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, post, "you can only edit your own posts"); err != nil {
		return nil, err
	}

	if patch.Content != nil {
		content, err := validateContent(*patch.Content)
		if err != nil {
			return nil, err
		}
		post.Content = content
	}
	if patch.ImageURL != nil {
		imageURL, err := validateImageURL(*patch.ImageURL)
		if err != nil {
			return nil, err
		}
		post.ImageURL = imageURL
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating post %s: %w", id, err)
	}

	s.logger.Info("post updated", slog.String("id", id), slog.String("actorID", actorID))
	return post, nil
}

// Delete removes a post on behalf of actorID, who must be its author or an
// admin.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "post id is required")
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, post, "you can only delete your own posts"); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/post: deleting post %s: %w", id, err)
	}
	s.logger.Info("post deleted", slog.String("id", id), slog.String("actorID", actorID))
	return nil
}

// authorize lets the author through without a lookup. Anyone else must be an
// admin.
func (s *PostService) authorize(ctx context.Context, actorID string, post *model.Post, denied string) error {
	if actorID != "" && actorID == post.UserID {
		return nil
	}
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	if actor.Role != model.RoleAdmin {
		s.logger.Warn("post change denied",
			slog.String("id", post.ID),
			slog.String("actorID", actorID),
		)
		return apperror.Forbidden(denied)
	}
	return nil
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "post content is required")
	}
	if utf8.RuneCountInString(content) > MaxPostLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("posts must be %d characters or less", MaxPostLength))
	}
	return content, nil
}

// validateImageURL accepts an empty string or an absolute http(s) URL.
func validateImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperror.ValidationFailed("imageUrl", "image URL must be an http or https link")
	}
	return raw, nil
}

func authorName(a *model.Account) string {
	if name := strings.TrimSpace(a.DisplayName); name != "" {
		return name
	}
	return AnonymousAuthor
}
