// Package newsroom holds the news post list behind the admin screen: loading,
// searching, deleting and sharing posts.
package newsroom

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"newsdesk/internal/model"
	"newsdesk/internal/store"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// User-facing texts.
const (
	TitleError   = "Fehler"
	TitleSuccess = "Erfolg"
	TitleShared  = "Geteilt"

	MsgLoadFailed       = "Medienmitteilungen konnten nicht geladen werden."
	MsgDeleteFailed     = "Medienmitteilung konnte nicht gelöscht werden."
	MsgDeleteDenied     = "Fehlende Berechtigungen: Sie haben keine Berechtigung, Medienmitteilungen zu löschen."
	MsgDeleted          = "Medienmitteilung wurde erfolgreich gelöscht."
	MsgShared           = "Die Medienmitteilung wurde auf LinkedIn geteilt."
	ConfirmDeletePrompt = "Sind Sie sicher, dass Sie diese Medienmitteilung löschen möchten?"
	MsgNoPosts          = "Es wurden noch keine Medienmitteilungen erstellt."
	MsgPermissionHint   = "Hinweis: Fehlende Berechtigungen können der Grund sein, warum keine Medienmitteilungen angezeigt werden."
)

// EmptyText is shown instead of an empty list.
func EmptyText(query string) string {
	if query == "" {
		return MsgNoPosts
	}
	return fmt.Sprintf("Keine Medienmitteilungen für %q gefunden.", query)
}

// Share popups are opened with this size.
const (
	ShareWindowWidth  = 600
	ShareWindowHeight = 600
)

// Source is the part of the store the list needs.
type Source interface {
	List(ctx context.Context) ([]model.Post, error)
	Delete(ctx context.Context, id string) error
}

// State is a snapshot of the controller for rendering.
type State struct {
	Posts           []model.Post // filtered by Query
	Total           int
	Query           string
	Loading         bool
	Loaded          bool
	PermissionError bool
}

// Controller is the post list of one admin screen. It caches a snapshot of
// the store's posts; the snapshot is replaced on every successful Load and
// shrinks by one entry on every successful Delete.
//
// PermissionError is set by any authorization failure and cleared by the
// next successful Load or Delete.
type Controller struct {
	src      Source
	notifier Notifier
	nav      Navigator
	opener   Opener
	logger   *zap.Logger

	mu              sync.Mutex
	posts           []model.Post
	query           string
	loading         bool
	loaded          bool
	permissionError bool
}

// New creates an empty, not yet loaded controller.
func New(src Source, notifier Notifier, nav Navigator, opener Opener, logger *zap.Logger) *Controller {
	return &Controller{
		src:      src,
		notifier: notifier,
		nav:      nav,
		opener:   opener,
		logger:   logger,
	}
}

// Load replaces the cached posts with a fresh listing. Failures are reported
// through the notifier and returned. If ctx is cancelled the result is
// discarded without touching state.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	posts, err := c.src.List(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			c.setPermissionError(true)
		}
		c.logger.Error("Error fetching posts", zap.Error(err))
		c.notifier.Notify(Notification{
			Title:       TitleError,
			Description: describe(err, MsgLoadFailed),
			Variant:     VariantDestructive,
		})
		return err
	}

	c.mu.Lock()
	c.posts = posts
	c.loaded = true
	c.permissionError = false
	c.mu.Unlock()
	return nil
}

// Delete removes a post after the user confirmed it. A declined
// confirmation returns (false, nil) without contacting the store.
func (c *Controller) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if !confirm.Confirm(ctx, ConfirmDeletePrompt) {
		return false, nil
	}

	err := c.src.Delete(ctx, id)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		description := describe(err, MsgDeleteFailed)
		if errors.Is(err, store.ErrPermissionDenied) {
			c.setPermissionError(true)
			description = MsgDeleteDenied
		}
		c.logger.Error("Error deleting post", zap.String("id", id), zap.Error(err))
		c.notifier.Notify(Notification{
			Title:       TitleError,
			Description: description,
			Variant:     VariantDestructive,
		})
		return false, err
	}

	c.mu.Lock()
	c.posts = slices.DeleteFunc(slices.Clone(c.posts), func(p model.Post) bool { return p.ID == id })
	c.permissionError = false
	c.mu.Unlock()

	c.logger.Info("Post deleted", zap.String("id", id))
	c.notifier.Notify(Notification{Title: TitleSuccess, Description: MsgDeleted, Variant: VariantDefault})
	return true, nil
}

// Edit hands the post over to the editor and returns the editor path.
func (c *Controller) Edit(id string) string {
	return c.navigate(EditPath(id))
}

// View opens the public page of a post and returns its path.
func (c *Controller) View(slug string) string {
	return c.navigate(PublicPath(slug))
}

// Create opens the editor for a new post and returns the editor path.
func (c *Controller) Create() string {
	return c.navigate(EditorPath)
}

func (c *Controller) navigate(path string) string {
	c.nav.Navigate(path)
	return path
}

// Share opens the LinkedIn share dialog for post and returns its URL.
func (c *Controller) Share(post model.Post) string {
	target := ShareURL(c.nav.Origin(), post)
	c.opener.Open(target, ShareWindowWidth, ShareWindowHeight)
	c.notifier.Notify(Notification{Title: TitleShared, Description: MsgShared, Variant: VariantDefault})
	return target
}

// SetQuery changes the search query.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
}

// Find looks a post up in the cached list.
func (c *Controller) Find(id string) (model.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.posts, func(p model.Post) bool { return p.ID == id })
	if i < 0 {
		return model.Post{}, false
	}
	return c.posts[i], true
}

// Loaded reports whether a Load has succeeded at least once.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// PermissionError reports whether the last privileged operation was denied.
func (c *Controller) PermissionError() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permissionError
}

// Snapshot returns the current state with the posts filtered by the query.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Posts:           Filter(c.posts, c.query),
		Total:           len(c.posts),
		Query:           c.query,
		Loading:         c.loading,
		Loaded:          c.loaded,
		PermissionError: c.permissionError,
	}
}

func (c *Controller) setPermissionError(v bool) {
	c.mu.Lock()
	c.permissionError = v
	c.mu.Unlock()
}

// Filter returns the posts whose title or keywords contain query,
// ignoring case. Order is kept and posts is never modified.
func Filter(posts []model.Post, query string) []model.Post {
	if query == "" {
		return slices.Clone(posts)
	}
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(fold.String(p.Title), q) ||
			(p.MetaKeywords != "" && strings.Contains(fold.String(p.MetaKeywords), q)) {
			out = append(out, p)
		}
	}
	return out
}

// EditorPath is the editor route for a new post.
const EditorPath = "/admin?tab=news"

// EditPath is the editor route for an existing post.
func EditPath(id string) string {
	return EditorPath + "&edit=" + url.QueryEscape(id)
}

// PublicPath is where a post is shown on the public site.
func PublicPath(slug string) string {
	return "/news/" + slug
}

func describe(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
