package server

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/cors"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/logging"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
)

// OriginMatcher checks request origins against an allow-list. An entry may
// use * in place of one host label, e.g. https://*.catalog.app
type OriginMatcher struct {
	exact    map[string]bool
	patterns []*regexp.Regexp
}

// NewOriginMatcher compiles the allow-list
func NewOriginMatcher(origins []string) *OriginMatcher {
	m := &OriginMatcher{exact: make(map[string]bool)}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "" {
			continue
		}
		if !strings.Contains(o, "*") {
			m.exact[o] = true
			continue
		}
		parts := strings.Split(o, "*")
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		m.patterns = append(m.patterns, regexp.MustCompile("^"+strings.Join(parts, `[a-z0-9-]+`)+"$"))
	}
	return m
}

// Allowed reports whether origin may make credentialed requests
func (m *OriginMatcher) Allowed(origin string) bool {
	origin = strings.ToLower(origin)
	if m.exact[origin] {
		return true
	}
	for _, p := range m.patterns {
		if p.MatchString(origin) {
			return true
		}
	}
	return false
}

// CORS wraps h with the allow-list policy. Credentials are allowed, so
// origins are always echoed back rather than answered with *.
func CORS(origins []string) func(http.Handler) http.Handler {
	matcher := NewOriginMatcher(origins)
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return matcher.Allowed(origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", tenant.HeaderOrganization, logging.RequestIDHeader},
		ExposedHeaders:   []string{logging.RequestIDHeader, "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
