package web

import (
	"crypto/subtle"
	"net/http"

	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"go.uber.org/zap"
)

// requireAdmin checks HTTP basic credentials and, for POSTs, the session's
// CSRF token. It runs the request as the account's store role and attaches
// the account's session.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="newsdesk", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		sess, fromCookie, err := s.sessions.get(w, r, acct.User, func(sess *session) {
			sess.origin = s.opts.Origin
			src := roleSource{src: s.store, role: acct.Role}
			sess.ctrl = newsroom.New(src, sess, sess, sess, s.logger.With(zap.String("user", acct.User)))
		})
		if err != nil {
			s.logger.Error("Failed to create session", zap.Error(err))
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		// State-changing requests need the session cookie and its form token
		if r.Method == http.MethodPost {
			if !fromCookie || !sess.validCSRF(r.FormValue(csrfFieldName)) {
				s.logger.Warn("Rejected request without valid CSRF token",
					zap.String("user", acct.User), zap.String("path", r.URL.Path))
				http.Error(w, "CSRF token mismatch", http.StatusForbidden)
				return
			}
		}

		ctx := store.WithRole(r.Context(), acct.Role)
		ctx = withSession(ctx, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(r *http.Request) (Account, bool) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return Account{}, false
	}
	for _, acct := range s.opts.Accounts {
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(acct.User)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(acct.Password)) == 1
		if userOK && passOK {
			return acct, true
		}
	}
	return Account{}, false
}
