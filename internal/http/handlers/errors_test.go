package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/services"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Field: "email", Msg: "is invalid"}, http.StatusBadRequest, ErrCodeBadRequest},
		{"auth", services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"not found", services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"conflict", services.ErrAlreadyFavorite, http.StatusConflict, ErrCodeConflict},
		{"email taken", services.ErrEmailTaken, http.StatusConflict, ErrCodeConflict},
		{"upstream", services.NewUpstreamError(services.ErrUpstream, ""), http.StatusBadGateway, ErrCodeUpstream},
		{"timeout", services.NewUpstreamError(services.ErrTimeout, ""), http.StatusGatewayTimeout, ErrCodeUpstreamTimeout},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, ErrCodeUpstreamTimeout},
		{"persistence", fmt.Errorf("%w: insert", services.ErrPersistence), http.StatusInternalServerError, ErrCodeInternal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := classify(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("classify(%v) = %d %q; want %d %q", tc.err, status, code, tc.status, tc.code)
			}
		})
	}
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { writeError(c, err) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	var body ErrorResponse
	if e := json.Unmarshal(w.Body.Bytes(), &body); e != nil {
		t.Fatalf("json: %v (%s)", e, w.Body.String())
	}
	return w, body
}

func TestWriteError_MessageAndDetail(t *testing.T) {
	w, body := serveError(t, services.NewUpstreamError(services.ErrUpstream, "vector index offline"))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", w.Code)
	}
	if body.Success || body.Message != services.ErrUpstream.Error() || body.Detail != "vector index offline" {
		t.Fatalf("unexpected upstream body: %+v", body)
	}

	w, body = serveError(t, services.ErrAlreadyFavorite)
	if w.Code != http.StatusConflict || body.Message != "property already in favorites" {
		t.Fatalf("unexpected conflict: %d %+v", w.Code, body)
	}
}

func TestWriteError_HidesInternalText(t *testing.T) {
	w, body := serveError(t, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if body.Message != "internal server error" || body.Code != ErrCodeInternal {
		t.Fatalf("internal error text must not leak: %+v", body)
	}
}
