package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"newsdesk/internal/model"
	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "newsdesk_session"
	csrfFieldName     = "csrf_token"
)

// session is one admin's screen: its post list plus the notifications the
// list produced since the last page render.
type session struct {
	id        string
	user      string
	origin    string
	csrf      string
	ctrl      *newsroom.Controller
	expiresAt time.Time

	mu      sync.Mutex
	flashes []newsroom.Notification
}

func (s *session) Notify(n newsroom.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, n)
}

// Navigate and Open are no-ops: handlers redirect to the path or URL the
// controller returns for their own request.
func (s *session) Navigate(string) {}

func (s *session) Open(string, int, int) {}

func (s *session) Origin() string { return s.origin }

// takeFlashes retrieves and immediately clears pending notifications.
func (s *session) takeFlashes() []newsroom.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// validCSRF reports whether token matches the session's form token.
func (s *session) validCSRF(token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.csrf)) == 1
}

// sessions holds live admin sessions keyed by cookie value. Each user has at
// most one session; clients without the cookie get that one back.
type sessions struct {
	mu     sync.Mutex
	ttl    time.Duration
	m      map[string]*session
	byUser map[string]*session
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{ttl: ttl, m: make(map[string]*session), byUser: make(map[string]*session)}
}

// get returns the caller's session and whether the request's cookie named
// it. Without a valid cookie the user's session is reused, or created (with
// its post list) if there is none yet, and the cookie is set.
func (ss *sessions) get(w http.ResponseWriter, r *http.Request, user string, create func(*session)) (*session, bool, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	for id, sess := range ss.m {
		if now.After(sess.expiresAt) {
			delete(ss.m, id)
			if ss.byUser[sess.user] == sess {
				delete(ss.byUser, sess.user)
			}
		}
	}

	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := ss.m[c.Value]; ok && sess.user == user {
			sess.expiresAt = now.Add(ss.ttl)
			return sess, true, nil
		}
	}

	sess, ok := ss.byUser[user]
	if !ok {
		token, err := randomToken()
		if err != nil {
			return nil, false, err
		}
		sess = &session{id: uuid.NewString(), user: user, csrf: token}
		create(sess)
		ss.m[sess.id] = sess
		ss.byUser[user] = sess
	}
	sess.expiresAt = now.Add(ss.ttl)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.id,
		Path:     "/admin",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.expiresAt,
	})
	return sess, false, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) *session {
	sess, _ := ctx.Value(sessionKey{}).(*session)
	return sess
}

// roleSource pins the store role for the post list of one session.
type roleSource struct {
	src  store.Store
	role store.Role
}

func (r roleSource) List(ctx context.Context) ([]model.Post, error) {
	return r.src.List(store.WithRole(ctx, r.role))
}

func (r roleSource) Delete(ctx context.Context, id string) error {
	return r.src.Delete(store.WithRole(ctx, r.role), id)
}
