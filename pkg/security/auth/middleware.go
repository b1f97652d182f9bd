package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// Middleware rejects requests without a valid bearer token.
type Middleware struct {
	validator *TokenValidator
	public    map[string]struct{}
	logger    *slog.Logger
}

// NewMiddleware guards every path except public.
func NewMiddleware(validator *TokenValidator, public []string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Middleware{
		validator: validator,
		public:    make(map[string]struct{}, len(public)),
		logger:    logger.With("component", "auth"),
	}
	for _, p := range public {
		m.public[p] = struct{}{}
	}
	return m
}

// Handle wraps next. With no tokens configured next is returned unchanged.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	if m.validator == nil || m.validator.Len() == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.public[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		idx, err := m.validator.Validate(bearerToken(r))
		if err != nil {
			m.logger.Warn("rejected unauthenticated request",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="sovereign"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m.logger.Debug("request authenticated", "token_index", idx, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}
