package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/auth"
	"github.com/tbourn/go-estate-backend/internal/config"
	"github.com/tbourn/go-estate-backend/internal/engine"
	"github.com/tbourn/go-estate-backend/internal/http/handlers"
	"github.com/tbourn/go-estate-backend/internal/repo"
)

// newTestDB opens a file-backed SQLite database through repo.Open so the
// routes run against the production pragmas and pool.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// --- fake search engine ---
func newFakeEngine(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	mux := http.NewServeMux()
	mux.HandleFunc("/hybrid_search", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, "search:"+r.URL.Query().Get("query"))
		if r.URL.Query().Get("query") == "explode" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"vector index offline"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"_id":"p1","price":2500000},{"_id":"p2"}]}`))
	})
	mux.HandleFunc("/recommendations", func(w http.ResponseWriter, r *http.Request) {
		var in engine.Interaction
		_ = json.NewDecoder(r.Body).Decode(&in)
		seen = append(seen, fmt.Sprintf("recommend:%v:%d", in.SearchHistory, len(in.Favorites)))
		_, _ = w.Write([]byte(`{"results":[{"_id":"p9"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testConfig() config.Config {
	return config.Config{
		GinMode:        gin.TestMode,
		APIBasePath:    "/api",
		EngineBasePath: "/ai",
		Auth: config.AuthConfig{
			JWTSecret:  "router-test-secret-0123456789abcdef",
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: 4,
		},
		HistoryLimit:  20,
		GuestLogLimit: 100,
		Engine:        config.EngineConfig{Timeout: time.Second},
		RateRPS:       100,
		RateBurst:     100,
		OTEL:          config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *[]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv, seen := newFakeEngine(t)
	r := gin.New()
	if err := RegisterRoutes(r, newTestDB(t), engine.New(srv.URL, cfg.Engine.Timeout), cfg); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return r, seen
}

func call(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_OperationalRoutes(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	cases := []struct {
		method, path string
		want         int
		code         string
	}{
		{http.MethodGet, "/health", http.StatusOK, ""},
		{http.MethodGet, "/metrics", http.StatusOK, ""},
		{http.MethodGet, "/swagger/index.html", http.StatusNotFound, handlers.ErrCodeNotFound},
		{http.MethodGet, "/api/user/nothing-here", http.StatusNotFound, handlers.ErrCodeNotFound},
		{http.MethodPut, "/ai/search", http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := call(r, tc.method, tc.path, "", nil)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
			if tc.code != "" {
				if got := decodeBody(t, w)["code"]; got != tc.code {
					t.Fatalf("code = %v, want %s", got, tc.code)
				}
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Fatalf("missing X-Request-ID")
			}
		})
	}

	w := call(r, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(w.Body.String(), "estate_http_requests_total") {
		t.Fatalf("http metrics not exported")
	}
}

func TestRegisterRoutes_CORS(t *testing.T) {
	cases := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"open without origin header", nil, "", "*"},
		{"open with origin header", nil, "https://listings.example", "*"},
		{"allowed origin echoed", []string{"https://listings.example"}, "https://listings.example", "https://listings.example"},
		{"unknown origin refused", []string{"https://listings.example"}, "https://elsewhere.example", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.CORS = config.CORSConfig{AllowedOrigins: tc.origins}
			r, _ := newRouter(t, cfg)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newRouter(t, cfg)

	w := call(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("/api/user/register")) {
		t.Fatalf("swagger doc not served: %d", w.Code)
	}
}

func TestRegisterRoutes_RejectsMissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	if err := RegisterRoutes(gin.New(), newTestDB(t), engine.New("http://127.0.0.1:1", time.Second), cfg); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(8))
	var readErr error
	r.POST("/upload", func(c *gin.Context) {
		_, readErr = io.ReadAll(c.Request.Body)
		c.Status(http.StatusNoContent)
	})

	for _, body := range []string{"12345678", "123456789"} {
		readErr = nil
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body)))
		var tooBig *http.MaxBytesError
		if over := len(body) > 8; over != errors.As(readErr, &tooBig) {
			t.Fatalf("body of %d bytes: read error %v", len(body), readErr)
		}
	}
}

func TestRegisterRoutes_OversizedBodyIsBadRequest(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	huge := strings.Repeat("x", maxBodyBytes+1)
	w := call(r, http.MethodPost, "/api/user/register", "", map[string]string{
		"name": huge, "email": "big@example.com", "password": "password1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGroupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "").GET("/empty", func(c *gin.Context) { c.String(http.StatusOK, c.FullPath()) })
	groupWithPrefix(r, "/").GET("/slash", func(c *gin.Context) { c.String(http.StatusOK, c.FullPath()) })
	groupWithPrefix(r, "/v2").GET("/nested", func(c *gin.Context) { c.String(http.StatusOK, c.FullPath()) })

	for _, path := range []string{"/empty", "/slash", "/v2/nested"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != path {
			t.Fatalf("GET %s = %d %q", path, w.Code, w.Body.String())
		}
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return m
}

// End-to-end: register, search, record, favorite, recommend, logout.
func TestEndToEnd_UserJourney(t *testing.T) {
	r, seen := newRouter(t, testConfig())

	// Register; duplicate email is a conflict.
	w := call(r, http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Somchai", "email": "Somchai@Example.com", "password": "correct-horse",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("account responses must not be cached, got %q", got)
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("no token issued")
	}
	w = call(r, http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Other", "email": "somchai@example.com", "password": "another-pass",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", w.Code)
	}

	// Login with the normalized email.
	w = call(r, http.MethodPost, "/api/user/login", "", map[string]string{"email": "somchai@example.com", "password": "correct-horse"})
	if w.Code != http.StatusOK || decodeBody(t, w)["username"] != "Somchai" {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}

	// Search is proxied unchanged.
	w = call(r, http.MethodGet, "/ai/search?q=condo&min_price=1000000", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	var listings []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &listings); err != nil || len(listings) != 2 {
		t.Fatalf("unexpected listings: %s", w.Body.String())
	}

	// Upstream failure → 502 with detail.
	w = call(r, http.MethodGet, "/ai/search?q=explode", "", nil)
	if w.Code != http.StatusBadGateway || decodeBody(t, w)["detail"] != "vector index offline" {
		t.Fatalf("upstream failure: %d %s", w.Code, w.Body.String())
	}

	// Recording requires a token; guest recording does not.
	if w := call(r, http.MethodPost, "/api/user/saveSearch", "", map[string]string{"query": "condo"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("saveSearch without token: %d", w.Code)
	}
	if w := call(r, http.MethodPost, "/api/user/saveSearch", token, map[string]string{"query": "condo"}); w.Code != http.StatusOK {
		t.Fatalf("saveSearch: %d %s", w.Code, w.Body.String())
	}
	if w := call(r, http.MethodPost, "/api/user/guestSearch", "", map[string]string{"query": "house"}); w.Code != http.StatusOK {
		t.Fatalf("guestSearch: %d %s", w.Code, w.Body.String())
	}

	// Favorites: add, duplicate, check, list.
	if w := call(r, http.MethodPost, "/api/user/favorite/add", token, map[string]string{"propertyId": "p1"}); w.Code != http.StatusOK {
		t.Fatalf("favorite add: %d %s", w.Code, w.Body.String())
	}
	if w := call(r, http.MethodPost, "/api/user/favorite/add", token, map[string]string{"propertyId": "p1"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate favorite: %d", w.Code)
	}
	w = call(r, http.MethodGet, "/api/user/favorite/check/p1", token, nil)
	if decodeBody(t, w)["isFavorite"] != true {
		t.Fatalf("check: %s", w.Body.String())
	}
	w = call(r, http.MethodGet, "/api/user/favorite/list", token, nil)
	if favs, _ := decodeBody(t, w)["favorites"].([]any); len(favs) != 1 {
		t.Fatalf("list: %s", w.Body.String())
	}

	// Personalized recommendations use the stored history and favorites.
	w = call(r, http.MethodGet, "/ai/recommendations", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("recommendations: %d %s", w.Code, w.Body.String())
	}
	last := (*seen)[len(*seen)-1]
	if last != "recommend:[condo]:1" {
		t.Fatalf("engine saw %q", last)
	}

	// Remove is idempotent.
	for i := 0; i < 2; i++ {
		if w := call(r, http.MethodDelete, "/api/user/favorite/remove?propertyId=p1", token, nil); w.Code != http.StatusOK {
			t.Fatalf("remove #%d: %d", i, w.Code)
		}
	}

	// Logout revokes only this token.
	if w := call(r, http.MethodPost, "/api/user/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", w.Code, w.Body.String())
	}
	w = call(r, http.MethodGet, "/api/user/me", token, nil)
	if w.Code != http.StatusUnauthorized || decodeBody(t, w)["success"] != false {
		t.Fatalf("revoked token still accepted: %d %s", w.Code, w.Body.String())
	}
}

func TestFavoriteAdd_WithoutTokenLeavesStoreUntouched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	srv, _ := newFakeEngine(t)
	db := newTestDB(t)
	r := gin.New()
	if err := RegisterRoutes(r, db, engine.New(srv.URL, cfg.Engine.Timeout), cfg); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}

	w := call(r, http.MethodPost, "/api/user/favorite/add", "", map[string]string{"propertyId": "p1"})
	if w.Code != http.StatusUnauthorized || decodeBody(t, w)["success"] != false {
		t.Fatalf("favorite add without token: %d %s", w.Code, w.Body.String())
	}

	var favs, users int64
	db.Table("favorites").Count(&favs)
	db.Table("users").Count(&users)
	if favs != 0 || users != 0 {
		t.Fatalf("store mutated: favorites=%d users=%d", favs, users)
	}
}

func TestRegisterRoutes_RateLimitPerUserBehindOneIP(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS, cfg.RateBurst = 0.001, 1
	r, _ := newRouter(t, cfg)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	issue := func(userID string) string {
		tok, _, err := tokens.Issue(userID)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		return tok
	}
	alice, bob := issue("u-alice"), issue("u-bob")

	steps := []struct {
		who   string
		token string
		want  int
	}{
		{"alice", alice, http.StatusOK},
		{"alice again", alice, http.StatusTooManyRequests},
		{"bob", bob, http.StatusOK},
		{"anonymous", "", http.StatusOK},
		{"anonymous again", "", http.StatusTooManyRequests},
	}
	for _, s := range steps {
		if w := call(r, http.MethodGet, "/ai/search?q=condo", s.token, nil); w.Code != s.want {
			t.Fatalf("%s: status = %d, want %d", s.who, w.Code, s.want)
		}
	}
}
