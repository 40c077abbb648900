package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/phuocduongts/storefront/internal/logging"
	"github.com/phuocduongts/storefront/internal/metrics"
	"github.com/phuocduongts/storefront/internal/session"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wrote {
		rw.statusCode = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wrote = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware tags the request with an id and a scoped logger, then
// logs and measures it.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		log := logging.Base().With("request_id", reqID, "method", r.Method, "path", r.URL.Path)
		route := new(string)
		ctx := context.WithValue(logging.WithCtx(r.Context(), log), routeKey{}, route)
		r = r.WithContext(ctx)

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		if *route == "" {
			*route = "unmatched"
		}
		metrics.ObserveRequest(r.Method, *route, ww.statusCode, time.Since(start))

		level := slog.LevelInfo
		if ww.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "HTTP Request",
			"status", ww.statusCode,
			"dur_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		)
	})
}

func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: http: https:; script-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromCtx(r.Context()).Error("panic serving request", "panic", rec, "stack", string(debug.Stack()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type routeKey struct{}

// withRoute records the matched mux pattern for the request metrics.
func withRoute(pattern string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route, ok := r.Context().Value(routeKey{}).(*string); ok {
			*route = pattern
		}
		h.ServeHTTP(w, r)
	})
}

type authStateKey struct{}

// authState records that the backend rejected this request's token.
type authState struct {
	rejected atomic.Bool
}

// OnUnauthorized is the backend client's 401 hook. The stored identity is
// dropped before the response is rendered.
func OnUnauthorized(ctx context.Context) {
	if st, ok := ctx.Value(authStateKey{}).(*authState); ok {
		st.rejected.Store(true)
	}
	logging.FromCtx(ctx).Warn("backend rejected session token")
}

func tokenRejected(ctx context.Context) bool {
	st, ok := ctx.Value(authStateKey{}).(*authState)
	return ok && st.rejected.Load()
}

// identityMiddleware loads the stored identity into the request context.
// Expired tokens are cleared here instead of being sent to the backend.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), authStateKey{}, &authState{})

		id, err := s.sessions.Load(r)
		if err != nil {
			logging.FromCtx(ctx).Warn("load session failed", "error", err)
			id = nil
		}
		if id != nil && !id.Authenticated(s.now()) {
			if err := s.sessions.Clear(w, r); err != nil {
				logging.FromCtx(ctx).Warn("clear expired session failed", "error", err)
			}
			id = nil
		}
		if id != nil {
			ctx = logging.WithCtx(ctx, logging.FromCtx(ctx).With("user_id", id.UserID()))
		}

		next.ServeHTTP(w, r.WithContext(session.WithIdentity(ctx, id)))
	})
}

// RequireUser sends anonymous visitors to the login page.
func (s *Server) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()) == nil {
			s.flash(w, r, "error", "Please sign in to continue.")
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// RequireAdmin lets only admin identities through to the back office.
func (s *Server) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := session.FromContext(r.Context())
		if !id.IsAdmin() {
			logging.FromCtx(r.Context()).Info("admin access denied", "path", r.URL.Path)
			s.flash(w, r, "error", "You must be logged in as an administrator to access this page.")
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}
