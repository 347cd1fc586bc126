// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Every service error belongs to exactly one class (services.ErrValidation,
// services.ErrAuth, ...). writeError maps the class to one HTTP status and
// one code, so clients can branch on either:
//
//	validation  400 bad_request
//	auth        401 unauthorized
//	not found   404 not_found
//	conflict    409 conflict
//	upstream    502 upstream_error
//	timeout     504 upstream_timeout
//	anything    500 internal_error
//
// 5xx messages never echo internal error text; the cause is logged instead.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/http/middleware"
	"github.com/tbourn/go-estate-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	// Search engine failures:
	ErrCodeUpstream        = "upstream_error"
	ErrCodeUpstreamTimeout = "upstream_timeout"

	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// classify returns the status and code for err.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrAuth):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeUpstreamTimeout
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway, ErrCodeUpstream
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeError renders err with the status of its class. Search engine
// failures are logged at warn since the engine client already logged the
// call; anything else server-side is an error.
func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	lg := middleware.LoggerFrom(c)

	var ue *services.UpstreamError
	if errors.As(err, &ue) {
		lg.Warn().Err(err).Int("status", status).Str("detail", ue.Detail).Msg("search engine failure")
		failDetail(c, status, code, errors.Unwrap(ue).Error(), ue.Detail)
		return
	}
	if status >= http.StatusInternalServerError {
		lg.Error().Err(err).Int("status", status).Str("code", code).Msg("request failed")
		fail(c, status, code, "internal server error")
		return
	}
	fail(c, status, code, err.Error())
}
