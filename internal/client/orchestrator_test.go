package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-estate-backend/internal/search"
)

// fakeBackend answers the proxy and history routes and records what it saw.
type fakeBackend struct {
	mu        sync.Mutex
	searches  []url.Values
	recorded  []string // "save:<q>" or "guest:<q>"
	feeds     int
	failQuery string
	failFeed  bool
	block     map[string]chan struct{} // query -> released when closed
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ai/search":
		q := r.URL.Query()
		f.mu.Lock()
		f.searches = append(f.searches, q)
		gate := f.block[q.Get("q")]
		f.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		f.mu.Lock()
		failing := q.Get("q") == f.failQuery
		f.mu.Unlock()
		if failing {
			writeJSON(w, http.StatusBadGateway, `{"success":false,"code":"upstream_error","message":"search engine error"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"_id":"`+q.Get("q")+`"}]`)
	case "/ai/recommendations":
		f.mu.Lock()
		f.feeds++
		failFeed := f.failFeed
		f.mu.Unlock()
		if failFeed {
			writeJSON(w, http.StatusBadGateway, `{"success":false,"code":"upstream_error","message":"search engine error"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true,"results":[{"_id":"feed"}]}`)
	case "/api/user/saveSearch", "/api/user/guestSearch":
		var body struct{ Query string }
		_ = decodeBody(r, &body)
		kind := "guest:"
		if r.URL.Path == "/api/user/saveSearch" {
			kind = "save:"
		}
		f.mu.Lock()
		f.recorded = append(f.recorded, kind+body.Query)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, `{"success":true}`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) snapshot() (searches []url.Values, recorded []string, feeds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.searches...), append([]string(nil), f.recorded...), f.feeds
}

type orchFixture struct {
	backend *fakeBackend
	api     *APIClient
	cache   *Cache
	orch    *Orchestrator
}

func newOrchFixture(t *testing.T) *orchFixture {
	t.Helper()
	fb := &fakeBackend{block: map[string]chan struct{}{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	api := NewAPIClient(srv.URL, 5*time.Second)
	cache, _, _ := newTestCache(t)
	o, err := NewOrchestrator(api, cache, WithOrchestratorLogger(zerolog.Nop()))
	require.NoError(t, err)
	return &orchFixture{backend: fb, api: api, cache: cache, orch: o}
}

func TestOrchestrator_SubmitQueryShowsResultsAndRecordsOnce(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	assert.Equal(t, Idle, f.orch.State())

	require.NoError(t, f.orch.SubmitQuery(ctx, "  คอนโด  "))
	f.orch.Wait()

	assert.Equal(t, ResultsShown, f.orch.State())
	assert.Equal(t, "คอนโด", f.orch.Query())
	require.Len(t, f.orch.Results(), 1)

	_, recorded, _ := f.backend.snapshot()
	assert.Equal(t, []string{"guest:คอนโด"}, recorded)

	cached, err := f.cache.Results()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.JSONEq(t, `{"_id":"คอนโด"}`, string(cached[0]))

	interacted, _ := f.cache.Interacted()
	assert.True(t, interacted)
	hist, _ := f.cache.LocalHistory()
	assert.Equal(t, []string{"คอนโด"}, hist)
}

func TestOrchestrator_RecordsWithTokenWhenSignedIn(t *testing.T) {
	f := newOrchFixture(t)
	f.api.SetToken("tok")
	require.NoError(t, f.orch.SubmitQuery(context.Background(), "บ้าน"))
	f.orch.Wait()
	_, recorded, _ := f.backend.snapshot()
	assert.Equal(t, []string{"save:บ้าน"}, recorded)
}

func TestOrchestrator_EmptyQueryRejected(t *testing.T) {
	f := newOrchFixture(t)
	assert.ErrorIs(t, f.orch.SubmitQuery(context.Background(), "   "), ErrEmptyQuery)
	searches, _, _ := f.backend.snapshot()
	assert.Empty(t, searches)
	assert.Equal(t, Idle, f.orch.State())
}

func TestOrchestrator_FailureRestoresPriorState(t *testing.T) {
	f := newOrchFixture(t)
	f.backend.failQuery = "bad"
	ctx := context.Background()

	require.NoError(t, f.orch.SubmitQuery(ctx, "good"))
	err := f.orch.SubmitQuery(ctx, "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	f.orch.Wait()

	assert.Equal(t, ResultsShown, f.orch.State())
	assert.Equal(t, "good", f.orch.Query())
	res := f.orch.Results()
	require.Len(t, res, 1)
	assert.JSONEq(t, `{"_id":"good"}`, string(res[0]))
	_, recorded, _ := f.backend.snapshot()
	assert.Equal(t, []string{"guest:good"}, recorded, "failed searches are not recorded")
}

func TestOrchestrator_FailedQueryKeepsActiveFilters(t *testing.T) {
	f := newOrchFixture(t)
	f.backend.failQuery = "bad"
	ctx := context.Background()

	active := search.Filters{Location: "บางนา"}
	require.NoError(t, f.orch.SetFilters(ctx, active))
	require.ErrorIs(t, f.orch.SubmitQuery(ctx, "bad"), ErrUpstream)
	f.orch.Wait()

	assert.Equal(t, ResultsShown, f.orch.State())
	assert.Empty(t, f.orch.Query())
	assert.Equal(t, active, f.orch.Filters())
	cachedFilters, err := f.cache.Filters()
	require.NoError(t, err)
	assert.Equal(t, active, cachedFilters)

	res := f.orch.Results()
	require.Len(t, res, 1)
	assert.JSONEq(t, `{"_id":"บางนา"}`, string(res[0]))
	cached, _ := f.cache.Results()
	require.Len(t, cached, 1)
	assert.JSONEq(t, `{"_id":"บางนา"}`, string(cached[0]))
}

func TestOrchestrator_FailedFiltersKeepActiveQuery(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	require.NoError(t, f.orch.SubmitQuery(ctx, "condo"))

	f.backend.mu.Lock()
	f.backend.failQuery = "บางนา"
	f.backend.mu.Unlock()
	require.ErrorIs(t, f.orch.SetFilters(ctx, search.Filters{Location: "บางนา"}), ErrUpstream)

	assert.Equal(t, "condo", f.orch.Query())
	assert.True(t, f.orch.Filters().IsZero())
	cachedFilters, _ := f.cache.Filters()
	assert.True(t, cachedFilters.IsZero())
}

func TestOrchestrator_UnlabelledFiltersSearchDefaultQuery(t *testing.T) {
	f := newOrchFixture(t)
	require.NoError(t, f.orch.SetFilters(context.Background(), search.Filters{Area: &search.Bracket{Min: ptr(40.0)}}))
	f.orch.Wait()

	searches, _, _ := f.backend.snapshot()
	require.Len(t, searches, 1)
	assert.Equal(t, search.DefaultQuery, searches[0].Get("q"))
	assert.Equal(t, "40", searches[0].Get("min_area"))
}

func TestOrchestrator_FiltersComposeDerivedQuery(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	require.NoError(t, f.orch.SubmitQuery(ctx, "free text"))

	filters := search.Filters{
		PropertyType: "บ้านเดี่ยว",
		Location:     "บางนา",
		Price:        ptr(search.PriceBrackets["1-3 ล้าน"]),
	}
	require.NoError(t, f.orch.SetFilters(ctx, filters))
	f.orch.Wait()

	assert.Empty(t, f.orch.Query(), "filters replace free text")
	assert.Equal(t, ResultsShown, f.orch.State())

	searches, recorded, _ := f.backend.snapshot()
	require.Len(t, searches, 2)
	last := searches[1]
	assert.Equal(t, "บ้านเดี่ยว บางนา 1-3 ล้าน", last.Get("q"))
	assert.Equal(t, "1000000", last.Get("min_price"))
	assert.Equal(t, "3000000", last.Get("max_price"))
	assert.ElementsMatch(t, []string{"guest:free text", "guest:บ้านเดี่ยว บางนา 1-3 ล้าน"}, recorded)

	stored, err := f.cache.Filters()
	require.NoError(t, err)
	assert.Equal(t, "บางนา", stored.Location)

	// Free text clears the filters again.
	require.NoError(t, f.orch.SubmitQuery(ctx, "condo"))
	assert.True(t, f.orch.Filters().IsZero())
	stored, _ = f.cache.Filters()
	assert.True(t, stored.IsZero())
}

func TestOrchestrator_ClearFiltersFallsBackToFeed(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	require.NoError(t, f.orch.SetFilters(ctx, search.Filters{Location: "สุขุมวิท"}))

	require.NoError(t, f.orch.ClearFilters(ctx))
	f.orch.Wait()

	assert.Equal(t, Recommending, f.orch.State())
	res := f.orch.Results()
	require.Len(t, res, 1)
	assert.JSONEq(t, `{"_id":"feed"}`, string(res[0]))

	_, recorded, feeds := f.backend.snapshot()
	assert.Equal(t, 1, feeds)
	assert.Len(t, recorded, 1, "the feed is not a recorded search")

	cached, _ := f.cache.Results()
	assert.Empty(t, cached)
}

func TestOrchestrator_FailedFeedKeepsPriorResults(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	require.NoError(t, f.orch.SetFilters(ctx, search.Filters{Location: "สุขุมวิท"}))
	f.orch.Wait()

	f.backend.mu.Lock()
	f.backend.failFeed = true
	f.backend.mu.Unlock()
	err := f.orch.ClearFilters(ctx)
	require.ErrorIs(t, err, ErrUpstream)

	assert.Equal(t, Recommending, f.orch.State())
	assert.True(t, f.orch.Filters().IsZero())
	res := f.orch.Results()
	require.Len(t, res, 1)
	assert.JSONEq(t, `{"_id":"สุขุมวิท"}`, string(res[0]))
	cached, _ := f.cache.Results()
	require.Len(t, cached, 1)
	assert.JSONEq(t, `{"_id":"สุขุมวิท"}`, string(cached[0]))
}

func TestOrchestrator_ClearFiltersKeepsActiveText(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	require.NoError(t, f.orch.SubmitQuery(ctx, "condo"))
	require.NoError(t, f.orch.ClearFilters(ctx))
	f.orch.Wait()

	assert.Equal(t, ResultsShown, f.orch.State())
	_, _, feeds := f.backend.snapshot()
	assert.Zero(t, feeds)
}

func TestOrchestrator_NewerRequestSupersedesOlder(t *testing.T) {
	f := newOrchFixture(t)
	gate := make(chan struct{})
	f.backend.mu.Lock()
	f.backend.block["slow"] = gate
	f.backend.mu.Unlock()
	defer close(gate)

	ctx := context.Background()
	slowErr := make(chan error, 1)
	go func() { slowErr <- f.orch.SubmitQuery(ctx, "slow") }()

	require.Eventually(t, func() bool {
		searches, _, _ := f.backend.snapshot()
		return len(searches) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, Searching, f.orch.State())

	require.NoError(t, f.orch.SubmitQuery(ctx, "fast"))
	assert.ErrorIs(t, <-slowErr, ErrSuperseded)
	f.orch.Wait()

	assert.Equal(t, ResultsShown, f.orch.State())
	assert.Equal(t, "fast", f.orch.Query())
	res := f.orch.Results()
	require.Len(t, res, 1)
	assert.JSONEq(t, `{"_id":"fast"}`, string(res[0]))
	_, recorded, _ := f.backend.snapshot()
	assert.Equal(t, []string{"guest:fast"}, recorded)
}

func TestOrchestrator_ResetClearsSessionTier(t *testing.T) {
	f := newOrchFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.SetCredentials("tok", "alice"))
	require.NoError(t, f.orch.SetFilters(ctx, search.Filters{Location: "บางนา"}))
	f.orch.Wait()

	require.NoError(t, f.orch.Reset())
	assert.Equal(t, Idle, f.orch.State())
	assert.Empty(t, f.orch.Results())
	assert.True(t, f.orch.Filters().IsZero())

	res, _ := f.cache.Results()
	assert.Empty(t, res)
	filters, _ := f.cache.Filters()
	assert.True(t, filters.IsZero())
	tok, _, _ := f.cache.Credentials()
	assert.Equal(t, "tok", tok)
}

func TestOrchestrator_HydratesFromCache(t *testing.T) {
	f := newOrchFixture(t)
	require.NoError(t, f.orch.SubmitQuery(context.Background(), "condo"))
	f.orch.Wait()

	again, err := NewOrchestrator(f.api, f.cache, WithOrchestratorLogger(zerolog.Nop()))
	require.NoError(t, err)
	assert.Equal(t, ResultsShown, again.State())
	require.Len(t, again.Results(), 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "searching", Searching.String())
	assert.Equal(t, "results", ResultsShown.String())
	assert.Equal(t, "recommending", Recommending.String())
	assert.Equal(t, "unknown", State(42).String())
}

func decodeBody(r *http.Request, v any) error { return json.NewDecoder(r.Body).Decode(v) }

func ptr[T any](v T) *T { return &v }
