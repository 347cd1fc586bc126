// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves bearer tokens to identities. RequireAuth rejects
// requests without a valid session; OptionalAuth resolves one when present
// and otherwise lets the request through as anonymous.
//
// On success the following keys are set on the Gin context:
//
//   - "identity" (*domain.User)
//   - "userID"   (string)
//   - "claims"   (*auth.Claims)
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-estate-backend/internal/auth"
	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/services"
)

const (
	ctxKeyIdentity = "identity"
	ctxKeyUserID   = "userID"
	ctxKeyClaims   = "claims"
)

var authFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_failures_total",
		Help: "Rejected bearer tokens by reason.",
	},
	[]string{"reason"},
)

func init() {
	prometheus.MustRegister(authFailures)
}

// Authenticator resolves a raw token to its identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error)
}

// RequireAuth aborts with 401 unless the request carries a valid bearer token.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := auth.BearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			authFailures.WithLabelValues("missing").Inc()
			abortUnauthorized(c, "missing bearer token")
			return
		}
		u, claims, err := a.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if !errors.Is(err, services.ErrAuth) {
				LoggerFrom(c).Error().Err(err).Msg("authenticate failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success":    false,
					"request_id": RequestIDFrom(c),
					"code":       "internal_error",
					"message":    "internal server error",
				})
				return
			}
			authFailures.WithLabelValues(failureReason(err)).Inc()
			abortUnauthorized(c, err.Error())
			return
		}
		setIdentity(c, u, claims)
		c.Next()
	}
}

// OptionalAuth resolves a bearer token when one is sent. Missing or
// unusable tokens leave the request anonymous.
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := auth.BearerToken(c.GetHeader("Authorization")); tok != "" {
			u, claims, err := a.Authenticate(c.Request.Context(), tok)
			if err == nil {
				setIdentity(c, u, claims)
			} else {
				LoggerFrom(c).Debug().Err(err).Msg("optional auth ignored token")
			}
		}
		c.Next()
	}
}

// Identity returns the authenticated user, or nil for anonymous requests.
func Identity(c *gin.Context) *domain.User {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// Claims returns the verified token claims, or nil.
func Claims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ctxKeyClaims); ok {
		if cl, ok := v.(*auth.Claims); ok {
			return cl
		}
	}
	return nil
}

func setIdentity(c *gin.Context, u *domain.User, claims *auth.Claims) {
	c.Set(ctxKeyIdentity, u)
	c.Set(ctxKeyUserID, u.ID)
	c.Set(ctxKeyClaims, claims)
	if lg := LoggerFrom(c); lg != nil {
		l := lg.With().Str("user_id", u.ID).Logger()
		setLogger(c, &l)
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success":    false,
		"request_id": RequestIDFrom(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, services.ErrIdentityGone):
		return "identity_gone"
	default:
		return "invalid"
	}
}
