// Package router compiles glob-like destination URL patterns into regular
// expressions and resolves, per destination, whether and through which
// forward proxy a request should be issued.
package router

import (
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// RouteConfig is one routing rule: whether to use a forward proxy, an
// optional explicit proxy URL, and whether to verify the upstream's TLS
// certificate.
type RouteConfig struct {
	Proxy     bool
	ProxyURL  string
	VerifySSL bool
}

type compiledRoute struct {
	pattern   string
	wildcards int
	regex     *regexp.Regexp
	config    RouteConfig
}

// Router is a compiled, immutable routing table. It is safe for
// concurrent use once built.
type Router struct {
	defaultProxy string
	allProxy     bool
	routes       []compiledRoute
}

// New compiles routesConfig (pattern -> RouteConfig) into a Router.
// Invalid patterns are logged and skipped; they never abort construction.
func New(defaultProxy string, allProxy bool, routesConfig map[string]RouteConfig, log *slog.Logger) *Router {
	routes := make([]compiledRoute, 0, len(routesConfig))

	for pattern, cfg := range routesConfig {
		expr := compilePattern(pattern)
		re, err := regexp.Compile(expr)
		if err != nil {
			if log != nil {
				log.Error("invalid route pattern", "pattern", pattern, "error", err)
			}
			continue
		}
		routes = append(routes, compiledRoute{
			pattern:   pattern,
			wildcards: strings.Count(expr, "[^/]*"),
			regex:     re,
			config:    cfg,
		})
	}

	// Most-wildcards-first (least specific first, matching the
	// source's sort order); ties broken by the original pattern string
	// for determinism across runs, since Go map iteration order is
	// randomized unlike the addition the original relies on.
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].wildcards != routes[j].wildcards {
			return routes[i].wildcards > routes[j].wildcards
		}
		return routes[i].pattern < routes[j].pattern
	})

	return &Router{
		defaultProxy: defaultProxy,
		allProxy:     allProxy,
		routes:       routes,
	}
}

// compilePattern turns a glob-like route key into an anchored regex
// source: "." is escaped, "*" becomes a single-segment wildcard, and the
// literal prefix "all://" expands to match either scheme.
func compilePattern(pattern string) string {
	expr := strings.ReplaceAll(pattern, ".", `\.`)
	expr = strings.ReplaceAll(expr, "*", `[^/]*`)
	expr = strings.ReplaceAll(expr, "all://", "(http|https)://")
	return "^" + expr
}

// GetProxyConfig returns the routing decision for destination, the first
// matching rule in specificity order, or the all_proxy fallback, or
// ok=false if nothing applies.
func (r *Router) GetProxyConfig(destination string, log *slog.Logger) (RouteConfig, bool) {
	parsed, err := url.Parse(destination)
	if err != nil {
		if log != nil {
			log.Error("failed to parse destination url", "destination", destination, "error", err)
		}
		return RouteConfig{}, false
	}

	normalized := parsed.String()
	for _, route := range r.routes {
		if route.regex.MatchString(normalized) {
			return route.config, true
		}
	}

	if r.allProxy {
		return RouteConfig{
			Proxy:     true,
			ProxyURL:  r.defaultProxy,
			VerifySSL: true,
		}, true
	}

	return RouteConfig{}, false
}

// DefaultProxy returns the router's configured default forward proxy URL.
func (r *Router) DefaultProxy() string {
	return r.defaultProxy
}
