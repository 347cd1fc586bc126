// Package engine is the HTTP client for the external property search engine.
//
// The engine owns ranking, embeddings, and listing data; this backend only
// forwards parameters and relays results. Listings are passed through as raw
// JSON so fields the engine adds never need a code change here.
//
// Every call runs under its own deadline (config SEARCH_TIMEOUT) and through
// a circuit breaker, so a stalled engine costs one timeout per request at
// most and a dead engine costs nothing once the breaker opens.
package engine

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tbourn/go-estate-backend/internal/search"
)

// SearchParams is the hybrid search parameter set.
type SearchParams = search.Params

// Listing is one property as returned by the engine.
type Listing = json.RawMessage

// FavoriteRef identifies a favorited property in a recommendation request.
type FavoriteRef struct {
	PropertyID string `json:"propertyId"`
}

// Interaction is the profile the engine personalizes recommendations from.
type Interaction struct {
	SearchHistory []string      `json:"searchHistory"`
	Favorites     []FavoriteRef `json:"favorites"`
}

// MapParams is a radius search around a point.
type MapParams struct {
	Lat      float64
	Lng      float64
	RadiusKM float64 // <= 0 lets the engine default (5 km)
	Limit    int     // <= 0 lets the engine default (50)
}

// MapResult is the engine's map search answer.
type MapResult struct {
	Count   int       `json:"count"`
	Results []Listing `json:"results"`
}

type resultsEnvelope struct {
	Results []Listing `json:"results"`
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTransport replaces the HTTP transport (tests, custom TLS).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(rt) }
}

// WithBreaker overrides the circuit breaker thresholds: the breaker opens
// once at least minRequests calls were made in the current window and the
// failure ratio reaches ratio; it stays open for openFor.
func WithBreaker(minRequests uint32, ratio float64, openFor time.Duration) Option {
	return func(c *Client) {
		c.minRequests, c.failureRatio, c.openFor = minRequests, ratio, openFor
	}
}

// Client calls the search engine.
type Client struct {
	http    *resty.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     zerolog.Logger

	minRequests  uint32
	failureRatio float64
	openFor      time.Duration
}

// New returns a Client for the engine at baseURL. timeout bounds each call.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json").
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal).
			SetRetryCount(0),
		timeout:      timeout,
		log:          log.Logger,
		minRequests:  10,
		failureRatio: 0.6,
		openFor:      30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "search-engine",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= c.failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			engineBreakerState.WithLabelValues(name).Set(breakerGauge(to))
			c.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("engine circuit breaker state change")
		},
		// Caller mistakes do not indicate an unhealthy engine.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrBadRequest)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})
	return c
}

// BreakerState reports the breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// HybridSearch runs a combined keyword/semantic search.
func (c *Client) HybridSearch(ctx context.Context, p SearchParams) ([]Listing, error) {
	body, err := c.call(ctx, "hybrid_search", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParamsFromValues(p.Values()).Get("/hybrid_search")
	})
	if err != nil {
		return nil, err
	}
	return decodeResults("hybrid_search", body)
}

// Property fetches one listing by id.
func (c *Client) Property(ctx context.Context, id string) (Listing, error) {
	body, err := c.call(ctx, "property", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Get("/property/{id}")
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &StatusError{Op: "property", Status: http.StatusOK, Detail: "invalid JSON body", class: ErrUpstream}
	}
	return Listing(body), nil
}

// Recommendations asks the engine for listings matching a user profile.
func (c *Client) Recommendations(ctx context.Context, in Interaction, limit int) ([]Listing, error) {
	if in.SearchHistory == nil {
		in.SearchHistory = []string{}
	}
	if in.Favorites == nil {
		in.Favorites = []FavoriteRef{}
	}
	body, err := c.call(ctx, "recommendations", func(r *resty.Request) (*resty.Response, error) {
		if limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(limit))
		}
		return r.SetHeader("Content-Type", "application/json").SetBody(in).Post("/recommendations")
	})
	if err != nil {
		return nil, err
	}
	return decodeResults("recommendations", body)
}

// MapSearch returns listings within a radius of a point.
func (c *Client) MapSearch(ctx context.Context, p MapParams) (*MapResult, error) {
	body, err := c.call(ctx, "map_search", func(r *resty.Request) (*resty.Response, error) {
		r.SetQueryParam("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64)).
			SetQueryParam("lng", strconv.FormatFloat(p.Lng, 'f', -1, 64))
		if p.RadiusKM > 0 {
			r.SetQueryParam("radius_km", strconv.FormatFloat(p.RadiusKM, 'f', -1, 64))
		}
		if p.Limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(p.Limit))
		}
		return r.Get("/map_search")
	})
	if err != nil {
		return nil, err
	}
	var out MapResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &StatusError{Op: "map_search", Status: http.StatusOK, Detail: err.Error(), class: ErrUpstream}
	}
	if out.Results == nil {
		out.Results = []Listing{}
	}
	return &out, nil
}

// call runs send under the per-call deadline and the breaker, and maps the
// outcome onto the package's error classes.
func (c *Client) call(ctx context.Context, op string, send func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := send(c.http.R().SetContext(callCtx))
		if err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) || isTimeout(err) {
				return nil, ErrTimeout
			}
			if errors.Is(err, context.Canceled) {
				return nil, context.Canceled
			}
			return nil, &StatusError{Op: op, Detail: err.Error(), class: ErrUpstream}
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusNotFound:
			return nil, &StatusError{Op: op, Status: code, Detail: engineDetail(resp.Body()), class: ErrNotFound}
		case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
			return nil, &StatusError{Op: op, Status: code, Detail: engineDetail(resp.Body()), class: ErrBadRequest}
		case code >= 300:
			return nil, &StatusError{Op: op, Status: code, Detail: engineDetail(resp.Body()), class: ErrUpstream}
		}
		return resp.Body(), nil
	})
	engineDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = ErrUnavailable
	}
	engineRequests.WithLabelValues(op, outcome(err)).Inc()
	return body, err
}

func decodeResults(op string, body []byte) ([]Listing, error) {
	var env resultsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &StatusError{Op: op, Status: http.StatusOK, Detail: err.Error(), class: ErrUpstream}
	}
	if env.Results == nil {
		env.Results = []Listing{}
	}
	return env.Results, nil
}

// engineDetail extracts FastAPI-style {"detail": ...} messages, falling back
// to a truncated body.
func engineDetail(body []byte) string {
	var v struct {
		Detail any `json:"detail"`
		Error  any `json:"error"`
	}
	if json.Unmarshal(body, &v) == nil {
		for _, d := range []any{v.Detail, v.Error} {
			if s, ok := d.(string); ok && s != "" {
				return s
			}
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "circuit_open"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
