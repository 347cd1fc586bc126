package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// Response headers browser clients need to read. ETag drives the favorites
// cache and Retry-After the client's back-off.
var exposedHeaders = []string{requestIDHeader, "ETag", "Retry-After"}

// SecurityOptions selects the optional parts of SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests. Only
	// turn it on when TLS reaches the app or a trusted proxy.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks every response uncacheable. Route groups carrying
	// credentials use NoStore() instead.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

type headerPair struct{ name, value string }

var noStoreHeaders = []headerPair{
	{"Cache-Control", "no-store"},
	{"Pragma", "no-cache"},
}

// staticHeaders is the per-request header set that does not depend on the
// request. No CSP: the API never serves HTML.
func (o SecurityOptions) staticHeaders() []headerPair {
	out := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if o.EnablePolicy {
		// Map search takes coordinates as parameters; the API never needs
		// the browser's location.
		out = append(out,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if o.NoStore {
		out = append(out, noStoreHeaders...)
		out = append(out, headerPair{"Expires", "0"})
	}
	return out
}

// SecurityHeaders hardens every response for a JSON API behind a proxy and
// exposes the correlation, ETag and Retry-After headers to browser code.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := opt.staticHeaders()
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range static {
			h.Set(p.name, p.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h, exposedHeaders...)
		c.Next()
	}
}

// exposeHeaders merges names into Access-Control-Expose-Headers, keeping
// whatever CORS already listed and skipping duplicates.
func exposeHeaders(h http.Header, names ...string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	seen := make(map[string]bool)
	for _, tok := range strings.Split(cur, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			seen[strings.ToLower(tok)] = true
		}
	}
	for _, n := range names {
		if seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(key, cur)
	}
}

// isHTTPS reports TLS on the connection or X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// NoStore marks a route group uncacheable. Mount it on groups that return
// session tokens or per-user data.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range noStoreHeaders {
			h.Set(p.name, p.value)
		}
		c.Next()
	}
}
