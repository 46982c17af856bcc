package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS blog_posts (
id TEXT PRIMARY KEY,
slug TEXT UNIQUE NOT NULL,
title TEXT NOT NULL,
body TEXT NOT NULL,
created_at TIMESTAMP NOT NULL,
updated_at TIMESTAMP NOT NULL
);
`

const insertPost = `
INSERT OR IGNORE INTO blog_posts (id, slug, title, body, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const selectPostBySlug = `
SELECT id, slug, title, body, created_at, updated_at
FROM blog_posts
WHERE slug = ?
`

const selectPosts = `
SELECT id, slug, title, body, created_at, updated_at
FROM blog_posts
ORDER BY updated_at DESC
LIMIT ?
`

type Post struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrSlugExists   = errors.New("slug already exists")
	ErrPostNotFound = errors.New("post not found")
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("blog store requires a non-nil db")
	}
	if _, err := db.Exec(createPostsTable); err != nil {
		return nil, fmt.Errorf("ensure blog_posts table: %w", err)
	}
	return &Store{db: db}, nil
}

// CreatePost inserts a post, reporting ErrSlugExists when the slug is taken.
func (s *Store) CreatePost(ctx context.Context, post Post) (Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, insertPost,
		post.ID,
		post.Slug,
		post.Title,
		post.Body,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Post{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return Post{}, ErrSlugExists
	}
	return post, nil
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (Post, error) {
	row := s.db.QueryRowContext(ctx, selectPostBySlug, slug)
	var post Post
	err := row.Scan(&post.ID, &post.Slug, &post.Title, &post.Body, &post.CreatedAt, &post.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrPostNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("scan post: %w", err)
	}
	return post, nil
}

// ListPosts returns posts ordered by last update, newest first.
func (s *Store) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, selectPosts, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Slug, &post.Title, &post.Body, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}
