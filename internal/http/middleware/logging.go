// Package middleware holds the Gin middleware shared by every route:
// correlation ids, access logs, panic recovery, bearer auth, rate limiting,
// metrics and response headers.
//
// The access log comes in two flavours built on one core. Logger records
// the raw query string and is meant for local debugging; RedactingLogger
// scrubs credentials and personal identifiers and is the default. Both
// attach a request-scoped zerolog.Logger that handlers fetch with
// LoggerFrom, so handler logs carry the same request_id as the access line.
//
// Recommended order: RequestID, access log, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	maxRequestIDLen = 128
	// Search text is Thai more often than not; truncation counts runes.
	maxLoggedQueryRunes = 512
)

// RequestID reuses a well-formed inbound X-Request-ID or mints a UUID, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !validRequestID(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

// validRequestID accepts short tokens of letters, digits and -_.: so a
// client cannot inject arbitrary text into logs and headers.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.', b == ':':
		default:
			return false
		}
	}
	return true
}

// RequestIDFrom returns the request's correlation id, or "" before
// RequestID ran.
func RequestIDFrom(c *gin.Context) string {
	if rid := c.GetString(requestIDKey); rid != "" {
		return rid
	}
	return c.Writer.Header().Get(requestIDHeader)
}

// Logger is the unscrubbed access log for local debugging.
func Logger() gin.HandlerFunc {
	return accessLog(accessOptions{})
}

// accessOptions customizes the shared access log core.
type accessOptions struct {
	message string
	// query turns the raw query string into its logged form.
	query func(raw string) string
	// headers, when set, adds a scrubbed header map to the access line.
	headers func(http.Header) map[string]string
}

func accessLog(o accessOptions) gin.HandlerFunc {
	if o.message == "" {
		o.message = "request"
	}
	return func(c *gin.Context) {
		start := time.Now()
		route := routeOf(c)

		raw := c.Request.URL.RawQuery
		if o.query != nil {
			raw = o.query(raw)
		}

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", route).
			Logger()
		setLogger(c, &scoped)

		c.Next()

		status := c.Writer.Status()
		// Auth runs inside route groups, so the user is known only now.
		ev := scoped.WithLevel(levelFor(status, len(c.Errors) > 0)).
			Str("user_id", c.GetString(ctxKeyUserID)).
			Str("query", truncateRunes(raw, maxLoggedQueryRunes)).
			Str("remote_ip", c.ClientIP()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start))
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		if o.headers != nil {
			ev = ev.Interface("headers", o.headers(c.Request.Header))
		}
		ev.Msg(o.message)
	}
}

// levelFor maps an outcome to a log level. Search engine failures (502,
// 504) are warnings here; the engine client logs them in detail.
func levelFor(status int, ginErrors bool) zerolog.Level {
	switch {
	case ginErrors:
		return zerolog.ErrorLevel
	case status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return zerolog.WarnLevel
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

// routeOf prefers the matched route pattern so ids in paths do not end up
// in logs; unmatched requests fall back to the raw path.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// Recovery turns a panic into the standard JSON 500 unless the response
// was already started.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success":    false,
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when
// no access log middleware ran. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.Logger
	return &l
}

func setLogger(c *gin.Context, l *zerolog.Logger) { c.Set(loggerKey, l) }

// truncateRunes cuts s to max runes and marks the cut. max <= 0 disables it.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
