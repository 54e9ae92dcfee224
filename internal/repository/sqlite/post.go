package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/model"
	"github.com/sakif/socialboard/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB stores the feed in the posts table.
type PostDB struct {
	conn *sql.DB
}

const postColumns = `id, user_id, author_name, content, image_url, created_at, updated_at`

// Create inserts post and fills in its ID and CreatedAt. The author must
// exist; otherwise the call fails with a validation error on "userId".
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = time.Time{}

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		post.ID,
		post.UserID,
		post.AuthorName,
		post.Content,
		post.ImageURL,
		post.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("userId", "unknown author "+post.UserID)
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

func (p *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := p.conn.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("post", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// List returns a page of posts, newest first. Limit defaults to 20 and is
// capped at 100.
func (p *PostDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := max(opts.Offset, 0)

	// id breaks ties between posts created in the same instant; xids sort by time.
	rows, err := p.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// Update stores new content and image URL and stamps UpdatedAt.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts SET content = ?, image_url = ?, updated_at = ? WHERE id = ?`,
		post.Content,
		post.ImageURL,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("post", post.ID) })
}

func (p *PostDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	return checkAffected(result, func() error { return apperror.NotFound("post", id) })
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		post    model.Post
		updated sql.NullTime
	)
	if err := s.Scan(
		&post.ID,
		&post.UserID,
		&post.AuthorName,
		&post.Content,
		&post.ImageURL,
		&post.CreatedAt,
		&updated,
	); err != nil {
		return nil, err
	}
	if updated.Valid {
		post.UpdatedAt = updated.Time
	}
	return &post, nil
}
