// Response envelopes. Success bodies carry "success": true; failures carry
// "success": false, a stable code and the request id, under the HTTP status
// of the failure class (see errors.go).
//
//	HTTP/1.1 409 Conflict
//	{
//	  "success": false,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "conflict",
//	  "message": "property already in favorites"
//	}
//
// Search engine failures add the engine's own explanation as detail:
//
//	HTTP/1.1 502 Bad Gateway
//	{
//	  "success": false,
//	  "request_id": "5f0c7a2e-0d4b-4a51-9a3e-1f1b2c3d4e5f",
//	  "code": "upstream_error",
//	  "message": "search engine unavailable",
//	  "detail": "vector index offline"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Always false
	Success bool `json:"success" example:"false"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
	// Upstream detail, only for search engine failures
	Detail string `json:"detail,omitempty" example:"vector index offline"`
}

// MessageResponse is the body of operations that only report success.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"added to favorites"`
}

// fail aborts the request with the error envelope. Logging is the
// caller's job; writeError does it for service errors.
func fail(c *gin.Context, status int, code, msg string) {
	abortWith(c, status, ErrorResponse{Code: code, Message: msg})
}

func failDetail(c *gin.Context, status int, code, msg, detail string) {
	abortWith(c, status, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

func abortWith(c *gin.Context, status int, body ErrorResponse) {
	body.Success = false
	body.RequestID = middleware.RequestIDFrom(c)
	c.AbortWithStatusJSON(status, body)
}

// Fail is fail for router-level fallbacks such as NoRoute.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func okMessage(c *gin.Context, msg string) {
	ok(c, http.StatusOK, MessageResponse{Success: true, Message: msg})
}
