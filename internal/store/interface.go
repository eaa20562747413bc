package store

import (
	"context"
	"errors"

	"newsdesk/internal/model"
)

// Table is the collection every backend keeps posts in.
const Table = "news_posts"

var (
	ErrNotFound         = errors.New("post not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransient        = errors.New("temporary backend failure")
)

// Store is the row-oriented post collection. List returns posts ordered by
// publish time, newest first, with unpublished posts ahead of published ones.
type Store interface {
	List(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	Save(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Error is a failure reported by a backend. Message is the backend's own
// description and is what gets shown to users.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown backend error"
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}
