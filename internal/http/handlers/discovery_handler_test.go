package handlers

import (
	"net/http"
	"testing"

	"github.com/tbourn/go-estate-backend/internal/engine"
	"github.com/tbourn/go-estate-backend/internal/services"
)

func TestSearch_ForwardsParams(t *testing.T) {
	f := newFixture(t)
	f.disc.listings = []engine.Listing{engine.Listing(`{"id":"a"}`), engine.Listing(`{"id":"b"}`)}

	w := f.do(http.MethodGet, "/ai/search?q=condo&min_price=1000000&max_price=3000000&max_area=80&top_k=500", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `[{"id":"a"},{"id":"b"}]` {
		t.Fatalf("listings must be proxied unchanged, got %s", got)
	}

	p := f.disc.lastParams
	if p.Query != "condo" || p.MinPrice == nil || *p.MinPrice != 1000000 || p.MaxPrice == nil || *p.MaxPrice != 3000000 {
		t.Fatalf("unexpected params: %+v", p)
	}
	if p.MinArea != nil || p.MaxArea == nil || *p.MaxArea != 80 {
		t.Fatalf("unexpected area bounds: %+v", p)
	}
	if p.TopK != maxTopK {
		t.Fatalf("top_k should be capped at %d, got %d", maxTopK, p.TopK)
	}
}

func TestSearch_EmptyResultIsArray(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/ai/search?q=nothing", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestSearch_BadNumbers(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"min_price=abc", "max_area=1e", "top_k=ten"} {
		w := f.do(http.MethodGet, "/ai/search?q=x&"+q, nil, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d; want 400", q, w.Code)
		}
	}
}

func TestSearch_UpstreamFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"upstream", services.NewUpstreamError(services.ErrUpstream, "index offline"), http.StatusBadGateway, ErrCodeUpstream},
		{"timeout", services.NewUpstreamError(services.ErrTimeout, ""), http.StatusGatewayTimeout, ErrCodeUpstreamTimeout},
		{"invalid range", &services.ValidationError{Field: "price", Msg: "min must not exceed max"}, http.StatusBadRequest, ErrCodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.disc.err = tc.err
			w := f.do(http.MethodGet, "/ai/search?q=x", nil, "")
			if w.Code != tc.status {
				t.Fatalf("status=%d; want %d", w.Code, tc.status)
			}
			if m := decode(t, w); m["success"] != false || m["code"] != tc.code {
				t.Fatalf("unexpected body: %v", m)
			}
		})
	}
}

func TestProperty(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/ai/property/p-9", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != `{"id":"p-9"}` {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	f.disc.err = services.NewUpstreamError(services.ErrPropertyNotFound, "")
	if w := f.do(http.MethodGet, "/ai/property/gone", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown listing: status=%d; want 404", w.Code)
	}
}

func TestMapSearch(t *testing.T) {
	f := newFixture(t)
	f.disc.listings = []engine.Listing{engine.Listing(`{"id":"a"}`)}

	if w := f.do(http.MethodGet, "/ai/map_search?lat=13.7", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing lng: status=%d; want 400", w.Code)
	}

	w := f.do(http.MethodGet, "/ai/map_search?lat=13.75&lng=100.5&radius_km=2.5&limit=9999", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	m := decode(t, w)
	if m["count"] != float64(1) {
		t.Fatalf("unexpected body: %v", m)
	}
	got := f.disc.lastMap
	if got.Lat != 13.75 || got.Lng != 100.5 || got.RadiusKM != 2.5 || got.Limit != maxMapLimit {
		t.Fatalf("unexpected map params: %+v", got)
	}
}

func TestRecommendations_OptionalAuth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/ai/recommendations", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous: status=%d", w.Code)
	}
	if f.disc.lastUser != nil || f.disc.lastLimit != defaultRecommendLen {
		t.Fatalf("anonymous call got user=%v limit=%d", f.disc.lastUser, f.disc.lastLimit)
	}
	if res, isArray := decode(t, w)["results"].([]any); !isArray || len(res) != 0 {
		t.Fatalf("expected empty results array: %s", w.Body.String())
	}

	// An invalid token degrades to anonymous rather than failing.
	if w := f.do(http.MethodGet, "/ai/recommendations", nil, "bogus"); w.Code != http.StatusOK || f.disc.lastUser != nil {
		t.Fatalf("bad token should be anonymous: %d user=%v", w.Code, f.disc.lastUser)
	}

	f.do(http.MethodGet, "/ai/recommendations?limit=1000", nil, testToken)
	if f.disc.lastUser == nil || f.disc.lastUser.ID != "u1" || f.disc.lastLimit != maxRecommendLen {
		t.Fatalf("authenticated call got user=%v limit=%d", f.disc.lastUser, f.disc.lastLimit)
	}
}
