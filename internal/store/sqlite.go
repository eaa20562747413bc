package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsdesk/internal/model"

	_ "modernc.org/sqlite"
)

const postColumns = `id, title, slug, content, published_at, created_at, meta_keywords, meta_description, image_url`

// SQLiteStore keeps posts in a local news_posts table.
type SQLiteStore struct {
	db     *sql.DB
	policy Policy
}

// NewSQLiteStore opens (and if needed creates) the database at dsn.
func NewSQLiteStore(dsn string, policy Policy) (*SQLiteStore, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, policy: policy}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS news_posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL DEFAULT '',
		published_at INTEGER,
		created_at INTEGER NOT NULL,
		meta_keywords TEXT NOT NULL DEFAULT '',
		meta_description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_news_posts_published_at ON news_posts(published_at DESC);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// List orders like PostgreSQL's "published_at DESC": NULLs first.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Post, error) {
	if err := s.policy.Check(ctx, OpSelect); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM news_posts ORDER BY published_at IS NULL DESC, published_at DESC, created_at DESC`)
	if err != nil {
		return nil, s.classify("list posts", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.getBy(ctx, "id", id)
}

func (s *SQLiteStore) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return s.getBy(ctx, "slug", slug)
}

func (s *SQLiteStore) getBy(ctx context.Context, column, value string) (*model.Post, error) {
	if err := s.policy.Check(ctx, OpSelect); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM news_posts WHERE `+column+` = ?`, value)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, fmt.Sprintf("no post with %s %q", column, value), nil)
	}
	if err != nil {
		return nil, s.classify("read post", err)
	}
	return p, nil
}

// Save inserts or replaces the post.
func (s *SQLiteStore) Save(ctx context.Context, post *model.Post) error {
	if err := s.policy.Check(ctx, OpInsert); err != nil {
		return err
	}
	if post.ID == "" || post.Slug == "" {
		return fmt.Errorf("post id and slug are required")
	}

	var published sql.NullInt64
	if post.PublishedAt != nil {
		published = sql.NullInt64{Int64: post.PublishedAt.UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news_posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			content = excluded.content,
			published_at = excluded.published_at,
			meta_keywords = excluded.meta_keywords,
			meta_description = excluded.meta_description,
			image_url = excluded.image_url`,
		post.ID, post.Title, post.Slug, post.Content, published, post.CreatedAt.UnixNano(),
		post.MetaKeywords, post.MetaDescription, post.ImageURL)
	if err != nil {
		return s.classify("save post", err)
	}
	return nil
}

// Delete removes the post; a missing id is ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := s.policy.Check(ctx, OpDelete); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM news_posts WHERE id = ?`, id)
	if err != nil {
		return s.classify("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(ErrNotFound, fmt.Sprintf("post %s not found", id), nil)
	}
	return nil
}

// classify marks lock contention as transient; everything else stays unknown.
func (s *SQLiteStore) classify(op string, err error) error {
	if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
		return transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		p         model.Post
		published sql.NullInt64
		created   int64
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &published, &created,
		&p.MetaKeywords, &p.MetaDescription, &p.ImageURL)
	if err != nil {
		return nil, err
	}
	if published.Valid {
		t := time.Unix(0, published.Int64).UTC()
		p.PublishedAt = &t
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return &p, nil
}
