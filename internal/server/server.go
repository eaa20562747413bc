package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Enqueuer accepts import jobs.
type Enqueuer interface {
	Push(ctx context.Context, job store.ImportJob) error
}

// Account is an admin login.
type Account struct {
	User     string
	Password string
	Role     store.Role
}

// Options configures the web server.
type Options struct {
	Origin   string         // public origin used in share links
	Location *time.Location // dates are shown in this zone
	Accounts []Account
}

type Server struct {
	store    store.Store
	queue    Enqueuer
	opts     Options
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
	sessions *sessions
	pages    map[string]*template.Template
}

// NewServer builds the router and parses the templates. queue may be nil,
// which disables imports.
func NewServer(st store.Store, queue Enqueuer, opts Options, logger *zap.Logger) (*Server, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	s := &Server{
		store:    st,
		queue:    queue,
		opts:     opts,
		logger:   logger,
		router:   mux.NewRouter(),
		sessions: newSessions(12 * time.Hour),
	}
	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/news/{slug}", s.handlePublicView).Methods("GET")

	admin := func(path string, h http.HandlerFunc, method string) {
		s.router.Handle(path, s.requireAdmin(h)).Methods(method)
	}
	admin("/admin/news", s.handleList, "GET")
	admin("/admin/news/new", s.handleNew, "GET")
	admin("/admin/news/import", s.handleImport, "POST")
	admin("/admin/news/{id}/view", s.handleView, "GET")
	admin("/admin/news/{id}/share", s.handleShare, "GET")
	admin("/admin/news/{id}/edit", s.handleEdit, "GET")
	admin("/admin/news/{id}/delete", s.handleConfirmDelete, "GET")
	admin("/admin/news/{id}/delete", s.handleDelete, "POST")
}

// ServeHTTP lets the server be used directly as a handler (tests, embedding).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) parseTemplates() error {
	funcs := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return newsroom.FormatDate(t.In(s.opts.Location))
		},
		"placeholder": func() string { return newsroom.PlaceholderImage },
		"editPath":    newsroom.EditPath,
	}

	s.pages = make(map[string]*template.Template)
	for _, page := range []string{"list.html", "confirm.html", "view.html"} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return err
		}
		s.pages[page] = tmpl
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("Template error", zap.String("page", page), zap.Error(err))
	}
}
