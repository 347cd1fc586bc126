package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"

	"github.com/tbourn/go-estate-backend/internal/search"
)

// Listing is one property exactly as the backend relayed it.
type Listing = json.RawMessage

// Error classes for failed API calls; test with errors.Is.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrUpstream     = errors.New("search engine error")
	ErrTimeout      = errors.New("search engine timeout")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadGateway:
		return ErrUpstream
	case http.StatusGatewayTimeout:
		return ErrTimeout
	}
	return ErrServer
}

// SessionInfo is what register and login return.
type SessionInfo struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Profile is the authenticated user's account.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry is one recorded search.
type HistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Favorite is one saved property.
type Favorite struct {
	PropertyID string    `json:"propertyId"`
	AddedAt    time.Time `json:"addedAt"`
}

// MapResult is a radius search answer.
type MapResult struct {
	Count   int       `json:"count"`
	Results []Listing `json:"results"`
}

// APIOption configures an APIClient.
type APIOption func(*APIClient)

// WithBasePaths overrides the account API and search proxy prefixes
// (defaults /api and /ai).
func WithBasePaths(api, engine string) APIOption {
	return func(c *APIClient) { c.apiBase, c.engineBase = trimBase(api), trimBase(engine) }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) APIOption {
	return func(c *APIClient) { c.http.SetTransport(rt) }
}

func trimBase(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// APIClient calls the backend. It is safe for concurrent use.
type APIClient struct {
	http       *resty.Client
	apiBase    string
	engineBase string

	mu    sync.RWMutex
	token string
}

// NewAPIClient returns a client for the backend at baseURL; timeout bounds
// every call.
func NewAPIClient(baseURL string, timeout time.Duration, opts ...APIOption) *APIClient {
	c := &APIClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json").
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal).
			SetTimeout(timeout),
		apiBase:    "/api",
		engineBase: "/ai",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token returns the bearer token attached to requests ("" when anonymous).
func (c *APIClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken sets or clears the bearer token.
func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *APIClient) do(ctx context.Context, method, path string, build func(*resty.Request), out any) error {
	apiErr := &APIError{}
	r := c.http.R().SetContext(ctx).SetError(apiErr)
	if tok := c.Token(); tok != "" {
		r.SetAuthToken(tok)
	}
	if out != nil {
		r.SetResult(out)
	}
	if build != nil {
		build(r)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(apiErr.Status)
		}
		return apiErr
	}
	return nil
}

func (c *APIClient) user(p string) string   { return c.apiBase + "/user" + p }
func (c *APIClient) engine(p string) string { return c.engineBase + p }

func jsonBody(v any) func(*resty.Request) {
	return func(r *resty.Request) { r.SetHeader("Content-Type", "application/json").SetBody(v) }
}

// Register creates an account and returns its first session.
func (c *APIClient) Register(ctx context.Context, name, email, password string) (*SessionInfo, error) {
	var out SessionInfo
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, c.user("/register"), jsonBody(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login opens a new session.
func (c *APIClient) Login(ctx context.Context, email, password string) (*SessionInfo, error) {
	var out SessionInfo
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, c.user("/login"), jsonBody(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token on the server.
func (c *APIClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.user("/logout"), nil, nil)
}

func (c *APIClient) Me(ctx context.Context) (*Profile, error) {
	var out struct {
		User Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, c.user("/me"), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// SaveSearch records q in the authenticated user's history.
func (c *APIClient) SaveSearch(ctx context.Context, q string) error {
	return c.do(ctx, http.MethodPost, c.user("/saveSearch"), jsonBody(map[string]string{"query": q}), nil)
}

// GuestSearch records q in the anonymous log.
func (c *APIClient) GuestSearch(ctx context.Context, q string) error {
	return c.do(ctx, http.MethodPost, c.user("/guestSearch"), jsonBody(map[string]string{"query": q}), nil)
}

// RecordSearch picks SaveSearch or GuestSearch by whether a token is set.
func (c *APIClient) RecordSearch(ctx context.Context, q string) error {
	if c.Token() != "" {
		return c.SaveSearch(ctx, q)
	}
	return c.GuestSearch(ctx, q)
}

// History returns the user's recorded searches, oldest first.
func (c *APIClient) History(ctx context.Context) ([]HistoryEntry, error) {
	var out struct {
		History []HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, c.user("/history"), nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

func (c *APIClient) AddFavorite(ctx context.Context, propertyID string) error {
	return c.do(ctx, http.MethodPost, c.user("/favorite/add"), jsonBody(map[string]string{"propertyId": propertyID}), nil)
}

func (c *APIClient) RemoveFavorite(ctx context.Context, propertyID string) error {
	return c.do(ctx, http.MethodDelete, c.user("/favorite/remove"), jsonBody(map[string]string{"propertyId": propertyID}), nil)
}

func (c *APIClient) ListFavorites(ctx context.Context) ([]Favorite, error) {
	var out struct {
		Favorites []Favorite `json:"favorites"`
	}
	if err := c.do(ctx, http.MethodGet, c.user("/favorite/list"), nil, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

func (c *APIClient) CheckFavorite(ctx context.Context, propertyID string) (bool, error) {
	var out struct {
		IsFavorite bool `json:"isFavorite"`
	}
	build := func(r *resty.Request) { r.SetPathParam("propertyId", propertyID) }
	if err := c.do(ctx, http.MethodGet, c.user("/favorite/check/{propertyId}"), build, &out); err != nil {
		return false, err
	}
	return out.IsFavorite, nil
}

// Search runs a hybrid search through the backend proxy.
func (c *APIClient) Search(ctx context.Context, p search.Params) ([]Listing, error) {
	var out []Listing
	vals := p.Values()
	// The proxy names the free-text parameter q.
	vals.Set("q", p.Query)
	vals.Del("query")
	build := func(r *resty.Request) { r.SetQueryParamsFromValues(vals) }
	if err := c.do(ctx, http.MethodGet, c.engine("/search"), build, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Listing{}
	}
	return out, nil
}

// Property fetches one listing.
func (c *APIClient) Property(ctx context.Context, id string) (Listing, error) {
	var out Listing
	build := func(r *resty.Request) { r.SetPathParam("id", id) }
	if err := c.do(ctx, http.MethodGet, c.engine("/property/{id}"), build, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapSearch returns listings around a point. Non-positive radiusKM and
// limit use the engine defaults.
func (c *APIClient) MapSearch(ctx context.Context, lat, lng, radiusKM float64, limit int) (*MapResult, error) {
	var out MapResult
	build := func(r *resty.Request) {
		r.SetQueryParam("lat", strconv.FormatFloat(lat, 'f', -1, 64)).
			SetQueryParam("lng", strconv.FormatFloat(lng, 'f', -1, 64))
		if radiusKM > 0 {
			r.SetQueryParam("radius_km", strconv.FormatFloat(radiusKM, 'f', -1, 64))
		}
		if limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(limit))
		}
	}
	if err := c.do(ctx, http.MethodGet, c.engine("/map_search"), build, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommendations returns the personalized feed when a token is set and
// the default feed otherwise.
func (c *APIClient) Recommendations(ctx context.Context, limit int) ([]Listing, error) {
	var out struct {
		Results []Listing `json:"results"`
	}
	build := func(r *resty.Request) {
		if limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(limit))
		}
	}
	if err := c.do(ctx, http.MethodGet, c.engine("/recommendations"), build, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []Listing{}
	}
	return out.Results, nil
}
