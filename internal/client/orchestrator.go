package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-estate-backend/internal/search"
)

// State is the orchestrator's view state.
type State int

const (
	Idle State = iota
	Searching
	ResultsShown
	Recommending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case ResultsShown:
		return "results"
	case Recommending:
		return "recommending"
	}
	return "unknown"
}

var (
	// ErrEmptyQuery rejects a blank free-text query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrSuperseded is returned by a request that a newer one replaced.
	// Its response was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

const (
	defaultFeedLimit     = 20
	defaultRecordTimeout = 10 * time.Second
)

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithOrchestratorLogger(l zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}

// WithFeedLimit sets how many recommendations are requested.
func WithFeedLimit(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.feedLimit = n }
}

// WithRecordTimeout bounds each background history-recording call.
func WithRecordTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.recordTimeout = d }
}

// Orchestrator decides which input (free text or structured filters) is
// active, runs the matching search or recommendation request, and keeps the
// cache in step. Free text and filters are mutually exclusive: setting one
// clears the other. Only the newest request may change state.
type Orchestrator struct {
	api           *APIClient
	cache         *Cache
	log           zerolog.Logger
	feedLimit     int
	recordTimeout time.Duration

	mu      sync.Mutex
	state   State
	settled State // last non-Searching state, restored on failure
	query   string
	filters search.Filters
	results []Listing
	gen     uint64
	cancel  context.CancelFunc

	recordings sync.WaitGroup
}

// NewOrchestrator hydrates results and filters from cache. Stored results
// put it straight into ResultsShown.
func NewOrchestrator(api *APIClient, cache *Cache, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		api:           api,
		cache:         cache,
		log:           log.Logger,
		feedLimit:     defaultFeedLimit,
		recordTimeout: defaultRecordTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	results, err := cache.Results()
	if err != nil {
		return nil, err
	}
	filters, err := cache.Filters()
	if err != nil {
		return nil, err
	}
	o.results, o.filters = results, filters
	if len(results) > 0 {
		o.state, o.settled = ResultsShown, ResultsShown
	}
	return o, nil
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Results returns the listings currently shown.
func (o *Orchestrator) Results() []Listing {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Listing(nil), o.results...)
}

// Query is the active free-text query ("" when filters or nothing is active).
func (o *Orchestrator) Query() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.query
}

func (o *Orchestrator) Filters() search.Filters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filters
}

// SubmitQuery runs a free-text search. Active filters are dropped.
func (o *Orchestrator) SubmitQuery(ctx context.Context, q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return ErrEmptyQuery
	}
	return o.search(ctx, search.Params{Query: q}, func() {
		o.query, o.filters = q, search.Filters{}
	})
}

// SetFilters runs a search composed from the filter labels and ranges. The
// free-text query is dropped. Setting empty filters behaves as ClearFilters.
func (o *Orchestrator) SetFilters(ctx context.Context, f search.Filters) error {
	if f.IsZero() {
		return o.ClearFilters(ctx)
	}
	return o.search(ctx, f.Params(), func() {
		o.query, o.filters = "", f
	})
}

// ClearFilters removes all filters. With no free-text query active the view
// falls back to the recommendation feed.
func (o *Orchestrator) ClearFilters(ctx context.Context) error {
	o.mu.Lock()
	o.filters = search.Filters{}
	err := o.cache.SetFilters(o.filters)
	textActive := o.query != ""
	o.mu.Unlock()
	if err != nil {
		return err
	}
	if textActive {
		return nil
	}
	return o.recommend(ctx)
}

// Reset cancels any request in flight, clears the session tier and returns
// to Idle.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.state, o.settled = Idle, Idle
	o.query, o.filters, o.results = "", search.Filters{}, nil
	return o.cache.ClearSearch()
}

// Wait blocks until background history recordings finish.
func (o *Orchestrator) Wait() { o.recordings.Wait() }

// begin makes the caller the newest request: it cancels the previous one
// and enters the given state. The input change itself is applied only once
// the request succeeds, so a failure leaves query, filters and results as
// they were.
func (o *Orchestrator) begin(ctx context.Context, to State) (context.Context, uint64, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.gen++
	gen := o.gen
	reqCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	if err := o.cache.MarkInteracted(); err != nil {
		o.log.Warn().Err(err).Msg("cache interaction flag")
	}
	o.state = to
	if to != Searching {
		o.settled = to
	}

	return reqCtx, gen, func() {
		cancel()
		o.mu.Lock()
		if o.gen == gen {
			o.cancel = nil
		}
		o.mu.Unlock()
	}
}

// search runs p and, on success, applies the input change and stores the
// results. Callers hold no lock; apply runs under o.mu.
func (o *Orchestrator) search(ctx context.Context, p search.Params, apply func()) error {
	reqCtx, gen, done := o.begin(ctx, Searching)
	defer done()

	listings, err := o.api.Search(reqCtx, p)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return ErrSuperseded
	}
	if err != nil {
		o.state = o.settled
		o.log.Warn().Err(err).Str("query", p.Query).Msg("search failed")
		return err
	}
	apply()
	o.state, o.settled = ResultsShown, ResultsShown
	o.results = listings
	if err := o.cache.SetFilters(o.filters); err != nil {
		o.log.Warn().Err(err).Msg("cache filters")
	}
	if err := o.cache.SetResults(listings); err != nil {
		o.log.Warn().Err(err).Msg("cache results")
	}
	if err := o.cache.AddLocalHistory(p.Query); err != nil {
		o.log.Warn().Err(err).Msg("cache local history")
	}
	o.record(p.Query)
	return nil
}

// recommend switches to the feed. Until it arrives, and when it fails, the
// previous results stay shown and cached.
func (o *Orchestrator) recommend(ctx context.Context) error {
	reqCtx, gen, done := o.begin(ctx, Recommending)
	defer done()

	feed, err := o.api.Recommendations(reqCtx, o.feedLimit)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return ErrSuperseded
	}
	if err != nil {
		o.log.Warn().Err(err).Msg("recommendations failed")
		return err
	}
	o.query = ""
	o.results = feed
	// The feed is not a search result; the stored result set goes.
	if err := o.cache.SetResults(nil); err != nil {
		o.log.Warn().Err(err).Msg("cache results")
	}
	return nil
}

// record sends one history entry in the background. Failures are logged
// and dropped; they never affect the shown results.
func (o *Orchestrator) record(query string) {
	o.recordings.Add(1)
	go func() {
		defer o.recordings.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.recordTimeout)
		defer cancel()
		if err := o.api.RecordSearch(ctx, query); err != nil {
			o.log.Warn().Err(err).Str("query", query).Msg("record search history")
		}
	}()
}
