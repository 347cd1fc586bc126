package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// RedactOptions extends the built-in scrub lists of RedactingLogger.
// Names match case-insensitively.
type RedactOptions struct {
	// MaskHeaders are logged as "[REDACTED]" in addition to Authorization,
	// Cookie and Set-Cookie.
	MaskHeaders []string
	// MaskQueryParams have their values replaced in addition to token,
	// access_token, password and email.
	MaskQueryParams []string
}

// Headers worth keeping on an access line. Everything else is dropped, not
// scrubbed; masked headers are listed so their presence is visible.
var loggedHeaders = []string{"User-Agent", "Referer", "Origin", "Content-Type", "If-None-Match"}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Thai numbers (0X-XXX-XXXX, +66 X XXXX XXXX) and generic
	// international ones. Digits only, so UUID hex never matches.
	phoneRE = regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?\(?\b\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{4}\b`)
)

// redactPII replaces identifiers that could point at a person. UUIDs go
// first so the looser phone pattern never sees their digit runs.
func redactPII(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(base []string, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(append([]string(nil), base...), extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// RedactingLogger is the production access log. It never logs bodies,
// masks credential headers and query parameters, and pattern-redacts
// e-mails, phone numbers and UUIDs from what remains. Search text in q is
// kept so failing searches can be traced to their input.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet([]string{"Authorization", "Cookie", "Set-Cookie"}, opts.MaskHeaders)
	maskParams := lowerSet([]string{"token", "access_token", "password", "email"}, opts.MaskQueryParams)

	return accessLog(accessOptions{
		message: "http_request",
		query: func(raw string) string {
			return redactPII(maskQuery(raw, maskParams))
		},
		headers: func(h http.Header) map[string]string {
			out := make(map[string]string)
			for k := range h {
				if _, masked := maskHeaders[strings.ToLower(k)]; masked {
					out[k] = "[REDACTED]"
				}
			}
			for _, k := range loggedHeaders {
				if v := h.Get(k); v != "" {
					out[k] = redactPII(v)
				}
			}
			return out
		},
	})
}

// maskQuery replaces the values of masked parameters. Unparseable queries
// are returned unchanged and left to pattern redaction.
func maskQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return raw
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	hit := false
	for k := range vals {
		if _, ok := mask[strings.ToLower(k)]; ok {
			vals[k] = []string{"[REDACTED]"}
			hit = true
		}
	}
	if !hit {
		return raw
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if v == "[REDACTED]" {
				b.WriteString(v)
			} else {
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}
