package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"newsdesk/internal/model"
	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

func TestServer(t *testing.T) {
	suite.Run(t, &ServerSuite{})
}

type fakeQueue struct {
	jobs []store.ImportJob
	err  error
}

func (q *fakeQueue) Push(_ context.Context, job store.ImportJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type ServerSuite struct {
	suite.Suite

	store   *store.SQLiteStore
	queue   *fakeQueue
	srv     *Server
	cookies map[string]*http.Cookie

	spring model.Post
	draft  model.Post
}

func (s *ServerSuite) SetupTest() {
	st, err := store.NewSQLiteStore(filepath.Join(s.T().TempDir(), "newsdesk.db"), store.DefaultPolicy())
	s.Require().NoError(err)
	s.store = st
	s.queue = &fakeQueue{}
	s.cookies = make(map[string]*http.Cookie)

	published := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	s.spring = model.NewPost("Frühlingsfest im Verein", "fruehlingsfest")
	s.spring.PublishedAt = &published
	s.spring.MetaKeywords = "verein, fest"
	s.spring.MetaDescription = "Alle sind eingeladen"
	s.spring.Content = "<p>Programm folgt.</p>"
	s.spring.ImageURL = "https://example.com/fest.png"

	s.draft = model.NewPost("Jahresbericht", "jahresbericht")

	ctx := store.WithRole(context.Background(), store.RoleAdmin)
	s.Require().NoError(s.store.Save(ctx, &s.spring))
	s.Require().NoError(s.store.Save(ctx, &s.draft))

	srv, err := NewServer(s.store, s.queue, Options{
		Origin:   "https://news.example.ch",
		Location: time.UTC,
		Accounts: []Account{
			{User: "admin", Password: "secret", Role: store.RoleAdmin},
			{User: "editor", Password: "secret", Role: store.RoleEditor},
		},
	}, zap.NewNop())
	s.Require().NoError(err)
	s.srv = srv
}

func (s *ServerSuite) TearDownTest() {
	s.store.Close()
}

// do sends a request as user, keeping the user's session cookie.
func (s *ServerSuite) do(user, method, target string, form url.Values) *httptest.ResponseRecorder {
	if method == http.MethodPost && form != nil && !form.Has(csrfFieldName) {
		if token := s.csrf(user); token != "" {
			form.Set(csrfFieldName, token)
		}
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != "" {
		req.SetBasicAuth(user, "secret")
	}
	if c, ok := s.cookies[user]; ok {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.srv.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			s.cookies[user] = c
		}
	}
	return rec
}

// csrf returns the form token of user's current session, "" without one.
func (s *ServerSuite) csrf(user string) string {
	c, ok := s.cookies[user]
	if !ok {
		return ""
	}
	if sess, ok := s.srv.sessions.m[c.Value]; ok {
		return sess.csrf
	}
	return ""
}

func (s *ServerSuite) TestHealth() {
	rec := s.do("", "GET", "/healthz", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestAdminRequiresCredentials() {
	rec := s.do("", "GET", "/admin/news", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Contains(rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest("GET", "/admin/news", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	s.srv.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ServerSuite) TestListRendersPosts() {
	rec := s.do("admin", "GET", "/admin/news", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	body := rec.Body.String()
	s.Contains(body, "Alle Medienmitteilungen")
	s.Contains(body, "Frühlingsfest im Verein")
	s.Contains(body, "Jahresbericht")
	s.Contains(body, "5. März 2024")
	s.Contains(body, "verein, fest")
	s.Contains(body, "No img")
	s.NotContains(body, "Fehlende Berechtigungen")

	// drafts come first
	s.Less(strings.Index(body, "Jahresbericht"), strings.Index(body, "Frühlingsfest im Verein"))
}

func (s *ServerSuite) TestSearch() {
	rec := s.do("admin", "GET", "/admin/news?q=VEREIN", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Frühlingsfest im Verein")
	s.NotContains(rec.Body.String(), "Jahresbericht")

	rec = s.do("admin", "GET", "/admin/news?q=nichts", nil)
	s.Contains(rec.Body.String(), "Keine Medienmitteilungen für")
}

func (s *ServerSuite) TestEmptyList() {
	ctx := store.WithRole(context.Background(), store.RoleAdmin)
	s.Require().NoError(s.store.Delete(ctx, s.spring.ID))
	s.Require().NoError(s.store.Delete(ctx, s.draft.ID))

	rec := s.do("admin", "GET", "/admin/news", nil)
	s.Contains(rec.Body.String(), "Es wurden noch keine Medienmitteilungen erstellt.")
}

func (s *ServerSuite) TestConfirmPage() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "GET", "/admin/news/"+s.draft.ID+"/delete", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), newsroom.ConfirmDeletePrompt)
	s.Contains(rec.Body.String(), "Jahresbericht")
}

func (s *ServerSuite) TestDeleteDeclined() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "POST", "/admin/news/"+s.draft.ID+"/delete", url.Values{"confirm": {"no"}})
	s.Equal(http.StatusSeeOther, rec.Code)

	_, err := s.store.Get(context.Background(), s.draft.ID)
	s.NoError(err)
}

func (s *ServerSuite) TestDeleteConfirmed() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "POST", "/admin/news/"+s.draft.ID+"/delete", url.Values{"confirm": {"yes"}, "q": {"bericht"}})
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/admin/news?q=bericht", rec.Header().Get("Location"))

	_, err := s.store.Get(context.Background(), s.draft.ID)
	s.True(errors.Is(err, store.ErrNotFound))

	rec = s.do("admin", "GET", "/admin/news", nil)
	body := rec.Body.String()
	s.Contains(body, newsroom.MsgDeleted)
	s.NotContains(body, "Jahresbericht")

	// flashes are shown once
	rec = s.do("admin", "GET", "/admin/news", nil)
	s.NotContains(rec.Body.String(), newsroom.MsgDeleted)
}

func (s *ServerSuite) TestEditorDeleteDenied() {
	s.do("editor", "GET", "/admin/news", nil)

	rec := s.do("editor", "POST", "/admin/news/"+s.draft.ID+"/delete", url.Values{"confirm": {"yes"}})
	s.Equal(http.StatusSeeOther, rec.Code)

	_, err := s.store.Get(context.Background(), s.draft.ID)
	s.NoError(err)

	rec = s.do("editor", "GET", "/admin/news", nil)
	body := rec.Body.String()
	s.Contains(body, "Fehlende Berechtigungen")
	s.Contains(body, newsroom.MsgDeleteDenied)
	s.Contains(body, "btn disabled")

	rec = s.do("editor", "GET", "/admin/news/"+s.draft.ID+"/edit", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	// a fresh listing clears the banner
	rec = s.do("editor", "GET", "/admin/news?refresh=1", nil)
	s.NotContains(rec.Body.String(), "Fehlende Berechtigungen")
}

func (s *ServerSuite) TestSessionsAreSeparatePerUser() {
	s.do("editor", "GET", "/admin/news", nil)
	s.do("editor", "POST", "/admin/news/"+s.draft.ID+"/delete", url.Values{"confirm": {"yes"}})

	rec := s.do("admin", "GET", "/admin/news", nil)
	s.NotContains(rec.Body.String(), "Fehlende Berechtigungen")
}

func (s *ServerSuite) TestEditRedirect() {
	rec := s.do("admin", "GET", "/admin/news/"+s.spring.ID+"/edit", nil)
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/admin?tab=news&edit="+s.spring.ID, rec.Header().Get("Location"))
}

func (s *ServerSuite) TestNewRedirect() {
	rec := s.do("admin", "GET", "/admin/news/new", nil)
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/admin?tab=news", rec.Header().Get("Location"))
}

func (s *ServerSuite) TestViewRedirect() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "GET", "/admin/news/"+s.spring.ID+"/view", nil)
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Equal("/news/fruehlingsfest", rec.Header().Get("Location"))
}

func (s *ServerSuite) TestShareRedirect() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "GET", "/admin/news/"+s.spring.ID+"/share", nil)
	s.Require().Equal(http.StatusSeeOther, rec.Code)

	loc := rec.Header().Get("Location")
	s.True(strings.HasPrefix(loc, "https://www.linkedin.com/sharing/share-offsite/?url="))
	s.Contains(loc, url.QueryEscape("https://news.example.ch/news/fruehlingsfest"))
	s.Contains(loc, "title=Fr%C3%BChlingsfest%20im%20Verein")

	rec = s.do("admin", "GET", "/admin/news", nil)
	s.Contains(rec.Body.String(), newsroom.MsgShared)
}

func (s *ServerSuite) TestShareUnknownPost() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "GET", "/admin/news/missing/share", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestImport() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "POST", "/admin/news/import", url.Values{"url": {"https://example.com/artikel"}})
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Require().Len(s.queue.jobs, 1)
	s.Equal("https://example.com/artikel", s.queue.jobs[0].URL)

	rec = s.do("admin", "POST", "/admin/news/import", url.Values{"url": {"ftp://example.com"}})
	s.Equal(http.StatusSeeOther, rec.Code)
	s.Len(s.queue.jobs, 1)

	rec = s.do("admin", "GET", "/admin/news", nil)
	s.Contains(rec.Body.String(), "Import wurde gestartet.")
	s.Contains(rec.Body.String(), "Ungültige URL.")
}

func (s *ServerSuite) TestPublicView() {
	rec := s.do("", "GET", "/news/fruehlingsfest", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "<p>Programm folgt.</p>")
	s.Contains(rec.Body.String(), "5. März 2024")

	rec = s.do("", "GET", "/news/gibt-es-nicht", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestPublicViewHidesDrafts() {
	rec := s.do("", "GET", "/news/jahresbericht", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerSuite) TestDeleteWithoutSessionIsRejected() {
	form := url.Values{"confirm": {"yes"}}
	req := httptest.NewRequest("POST", "/admin/news/"+s.spring.ID+"/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	req.SetBasicAuth("admin", "secret")

	rec := httptest.NewRecorder()
	s.srv.ServeHTTP(rec, req)
	s.Equal(http.StatusForbidden, rec.Code)

	_, err := s.store.Get(context.Background(), s.spring.ID)
	s.NoError(err, "post must survive a request that skipped the confirm page")
}

func (s *ServerSuite) TestDeleteWithWrongTokenIsRejected() {
	s.do("admin", "GET", "/admin/news", nil)

	rec := s.do("admin", "POST", "/admin/news/"+s.spring.ID+"/delete",
		url.Values{"confirm": {"yes"}, csrfFieldName: {"forged"}})
	s.Equal(http.StatusForbidden, rec.Code)

	_, err := s.store.Get(context.Background(), s.spring.ID)
	s.NoError(err)
}

func (s *ServerSuite) TestImportWithoutSessionIsRejected() {
	rec := s.do("admin", "POST", "/admin/news/import", url.Values{"url": {"https://example.com/artikel"}})
	s.Equal(http.StatusForbidden, rec.Code)
	s.Empty(s.queue.jobs)
}

func (s *ServerSuite) TestFormsCarryToken() {
	rec := s.do("admin", "GET", "/admin/news", nil)
	token := s.csrf("admin")
	s.Require().NotEmpty(token)
	s.Contains(rec.Body.String(), `name="csrf_token" value="`+token+`"`)

	rec = s.do("admin", "GET", "/admin/news/"+s.draft.ID+"/delete", nil)
	s.Contains(rec.Body.String(), `name="csrf_token" value="`+token+`"`)
}

func (s *ServerSuite) TestCookielessRequestsReuseSession() {
	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/admin/news", nil)
		req.SetBasicAuth("editor", "secret")
		rec := httptest.NewRecorder()
		s.srv.ServeHTTP(rec, req)
		return rec
	}

	first := get().Result().Cookies()
	second := get().Result().Cookies()
	s.Require().Len(first, 1)
	s.Require().Len(second, 1)
	s.Equal(first[0].Value, second[0].Value)
	s.Len(s.srv.sessions.m, 1)
}

func (s *ServerSuite) TestPermissionBannerSurvivesDroppedCookie() {
	s.do("editor", "GET", "/admin/news", nil)
	s.do("editor", "POST", "/admin/news/"+s.draft.ID+"/delete", url.Values{"confirm": {"yes"}})

	delete(s.cookies, "editor")
	rec := s.do("editor", "GET", "/admin/news/"+s.draft.ID+"/edit", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *ServerSuite) TestConcurrentRedirectsInOneSession() {
	s.do("admin", "GET", "/admin/news", nil)

	type result struct{ want, got string }
	results := make(chan result, 40)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rec := s.do("admin", "GET", "/admin/news/"+s.spring.ID+"/edit", nil)
			results <- result{"/admin?tab=news&edit=" + s.spring.ID, rec.Header().Get("Location")}
		}()
		go func() {
			defer wg.Done()
			rec := s.do("admin", "GET", "/admin/news/"+s.spring.ID+"/share", nil)
			results <- result{"https://www.linkedin.com/sharing/share-offsite/", rec.Header().Get("Location")}
		}()
	}
	wg.Wait()
	close(results)

	for r := range results {
		s.True(strings.HasPrefix(r.got, r.want), "got %q, want prefix %q", r.got, r.want)
	}
}
