package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"repeater-directory/internal/auth"
	"repeater-directory/internal/util"
)

// LoggerMiddleware logs every request with its final status.
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// needsBearer is the route auth policy: reads are public, writes need
// a session, with two carve-outs (login itself and the guest
// submission endpoint) and one tightening (the user admin surface is
// guarded even for reads).
func needsBearer(method, path string) bool {
	if strings.HasPrefix(path, "/v1/admin/users") {
		return true
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	switch path {
	case "/v1/admin/login", "/v1/requests":
		return false
	}
	return true
}

// SessionMiddleware runs the bearer gate on guarded routes. On a pass
// it attaches the username to the request context and, when the
// session entered its refresh window, exposes the replacement token
// via X-New-JWT.
func SessionMiddleware(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !needsBearer(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			decision, denial := gate.Check(r)
			if denial != nil {
				writeDenial(w, denial)
				return
			}

			if decision.RefreshedToken != "" {
				w.Header().Set("X-New-JWT", decision.RefreshedToken)
			}
			next.ServeHTTP(w, r.WithContext(
				auth.WithUsername(r.Context(), decision.Username)))
		})
	}
}
