package server

import "strings"

var defaultPublicPaths = []string{
	RouteLogin,
	RouteHowItWorks,
	RouteAbout,
	RoutePrivacy,
	RouteTerms,
	RouteForgotPassword,
	RouteResetPassword,
	RouteFavicon,
	RouteRobots,
	RouteHealth,
	RouteMetrics,
}

// API routes authorize themselves; assets and images carry no user data.
var defaultPublicPrefixes = []string{
	"/api/",
	"/static/",
	"/images/",
	"/assets/",
	"/verify-email/",
}

// Allowlist is the set of request paths the access gate lets through without a session.
type Allowlist struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewAllowlist builds the default allowlist plus extra entries. An entry ending
// in "/" or "*" matches every path under it; any other entry matches exactly.
func NewAllowlist(extra ...string) *Allowlist {
	a := &Allowlist{exact: make(map[string]struct{})}
	for _, p := range defaultPublicPaths {
		a.add(p)
	}
	for _, p := range defaultPublicPrefixes {
		a.add(p)
	}
	for _, p := range extra {
		a.add(p)
	}
	return a
}

func (a *Allowlist) add(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}
	if !strings.HasPrefix(entry, "/") {
		entry = "/" + entry
	}
	switch {
	case strings.HasSuffix(entry, "*"):
		a.prefixes = append(a.prefixes, strings.TrimSuffix(entry, "*"))
	case strings.HasSuffix(entry, "/") && entry != "/":
		a.prefixes = append(a.prefixes, entry)
	default:
		a.exact[entry] = struct{}{}
	}
}

// IsPublic reports whether path may be served without a session.
func (a *Allowlist) IsPublic(path string) bool {
	if _, ok := a.exact[path]; ok {
		return true
	}
	for _, prefix := range a.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
