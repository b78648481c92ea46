package tenant

import (
	"net"
	"strings"

	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
)

// HeaderOrganization overrides host-based tenant resolution
const HeaderOrganization = "X-Catalog-Organization"

// ErrNoTenant is returned when neither the header nor the host names a tenant
var ErrNoTenant = apperr.Authentication("Organization could not be determined from request")

// SlugFromRequest picks the organization slug for a request. A non-blank
// override wins; otherwise the slug is derived from the host.
func SlugFromRequest(host, override, baseDomain string) (string, error) {
	if slug := strings.ToLower(strings.TrimSpace(override)); slug != "" {
		return slug, nil
	}
	if slug := SlugFromHost(host, baseDomain); slug != "" {
		return slug, nil
	}
	return "", ErrNoTenant
}

// SlugFromHost derives the slug from a Host header value:
//
//	oakmont.catalog.app with base domain catalog.app -> oakmont
//	oakmont.catalog.app without a base domain        -> oakmont (first label)
//	localhost                                        -> "" (single label)
func SlugFromHost(host, baseDomain string) string {
	host = strings.ToLower(strings.TrimSpace(stripPort(host)))
	if host == "" {
		return ""
	}

	baseDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(baseDomain), "."))
	if baseDomain != "" && strings.HasSuffix(host, baseDomain) {
		if host == baseDomain {
			return ""
		}
		if suffix := "." + baseDomain; strings.HasSuffix(host, suffix) {
			return strings.TrimSuffix(host, suffix)
		}
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[0]
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
