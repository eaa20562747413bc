package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/news", http.StatusSeeOther)
}

// handleList shows the post list. The list is fetched on the first visit of
// a session and again on ?refresh=1; otherwise the cached snapshot is shown.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	q := r.URL.Query()

	if !sess.ctrl.Loaded() || q.Get("refresh") != "" {
		// failures are reported as flashes
		_ = sess.ctrl.Load(r.Context())
	}
	sess.ctrl.SetQuery(strings.TrimSpace(q.Get("q")))

	page := newListPage(sess.user, sess.ctrl.Snapshot(), sess.takeFlashes(), s.queue != nil)
	page.CSRF = sess.csrf
	s.render(w, "list.html", page)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	http.Redirect(w, r, sess.ctrl.Create(), http.StatusSeeOther)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	post, ok := sess.ctrl.Find(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, sess.ctrl.View(post.Slug), http.StatusSeeOther)
}

// handleShare sends the browser (the share popup) to LinkedIn.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	post, ok := sess.ctrl.Find(mux.Vars(r)["id"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, sess.ctrl.Share(post), http.StatusSeeOther)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.ctrl.PermissionError() {
		http.Error(w, newsroom.MsgDeleteDenied, http.StatusForbidden)
		return
	}
	http.Redirect(w, r, sess.ctrl.Edit(mux.Vars(r)["id"]), http.StatusSeeOther)
}

// handleConfirmDelete is the first half of a delete: ask.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.ctrl.PermissionError() {
		http.Error(w, newsroom.MsgDeleteDenied, http.StatusForbidden)
		return
	}
	id := mux.Vars(r)["id"]
	subject := id
	if post, ok := sess.ctrl.Find(id); ok {
		subject = post.Title
	}
	s.render(w, "confirm.html", confirmPage{
		Title:   "Medienmitteilung löschen",
		Prompt:  newsroom.ConfirmDeletePrompt,
		PostID:  id,
		Subject: subject,
		Query:   r.URL.Query().Get("q"),
		CSRF:    sess.csrf,
		Flashes: sess.takeFlashes(),
	})
}

// handleDelete is the second half: the submitted answer decides.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.ctrl.PermissionError() {
		http.Error(w, newsroom.MsgDeleteDenied, http.StatusForbidden)
		return
	}
	answer := newsroom.Answer(r.FormValue("confirm") == "yes")
	// failures are reported as flashes
	_, _ = sess.ctrl.Delete(r.Context(), mux.Vars(r)["id"], answer)

	http.Redirect(w, r, listURL(r.FormValue("q")), http.StatusSeeOther)
}

// handleImport queues a URL for the import worker.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	rawURL := strings.TrimSpace(r.FormValue("url"))

	switch {
	case s.queue == nil:
		sess.Notify(newsroom.Notification{Title: newsroom.TitleError, Description: "Import ist nicht verfügbar.", Variant: newsroom.VariantDestructive})
	case !validURL(rawURL):
		sess.Notify(newsroom.Notification{Title: newsroom.TitleError, Description: "Ungültige URL.", Variant: newsroom.VariantDestructive})
	default:
		job := store.NewImportJob(rawURL)
		if err := s.queue.Push(r.Context(), job); err != nil {
			s.logger.Error("Failed to queue import", zap.Error(err))
			sess.Notify(newsroom.Notification{Title: newsroom.TitleError, Description: "Import konnte nicht gestartet werden.", Variant: newsroom.VariantDestructive})
			break
		}
		s.logger.Info("Import queued", zap.String("job_id", job.ID.String()), zap.String("url", rawURL))
		sess.Notify(newsroom.Notification{Title: newsroom.TitleSuccess, Description: "Import wurde gestartet.", Variant: newsroom.VariantDefault})
	}
	http.Redirect(w, r, "/admin/news", http.StatusSeeOther)
}

// handlePublicView renders a post on the public site.
func (s *Server) handlePublicView(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	post, err := s.store.GetBySlug(store.WithRole(r.Context(), store.RoleAnon), slug)
	if err == nil && !post.Published() {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("Failed to load post", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "Failed to retrieve content", http.StatusInternalServerError)
		return
	}

	// Editor content is trusted; imported content was sanitized by the worker
	s.render(w, "view.html", viewPage{
		Title:    post.Title,
		Date:     post.DisplayDate(),
		ImageURL: post.ImageURL,
		Content:  template.HTML(post.Content),
	})
}

func listURL(query string) string {
	if query == "" {
		return "/admin/news"
	}
	return "/admin/news?q=" + url.QueryEscape(query)
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
