package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/evalreview/internal/core"
)

// SessionHeader lets API clients name their session without cookies.
const SessionHeader = "X-Review-Session"

type ctxKey int

const ctxKeySession ctxKey = iota

// withSession resolves the reviewer's session from the X-Review-Session
// header or the session cookie, creating one if needed, and stores it in the
// request context with the client's IP and User-Agent.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), r.RemoteAddr, r.UserAgent())

		requested := r.Header.Get(SessionHeader)
		if requested == "" {
			if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
				requested = c.Value
			}
		}

		sess := s.ws.Resume(ctx, requested)
		if sess.ID() != requested {
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(s.cfg.Session.IdleTimeout.Seconds()),
			})
		}
		w.Header().Set(SessionHeader, sess.ID())

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKeySession, sess)))
	})
}

// sessionFromContext returns the session stored by withSession, or nil.
func sessionFromContext(ctx context.Context) *core.Session {
	sess, _ := ctx.Value(ctxKeySession).(*core.Session)
	return sess
}
