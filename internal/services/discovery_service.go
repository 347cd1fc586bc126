// Package services – DiscoveryService
//
// This file implements DiscoveryService, the thin layer between HTTP
// handlers and the external search engine. It validates search parameters,
// builds the recommendation profile from stored history and favorites, and
// translates engine failures into the service error classes.
//
// The anonymous recommendation feed is the same for every caller, so it is
// kept in an in-process TTL cache (RECOMMEND_CACHE_TTL; 0 disables it).
package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/engine"
	"github.com/tbourn/go-estate-backend/internal/repo"
	"github.com/tbourn/go-estate-backend/internal/search"
)

// profileQueries is how many recent queries feed a personalized request.
const profileQueries = 5

// Engine is the subset of engine.Client used by DiscoveryService.
type Engine interface {
	HybridSearch(ctx context.Context, p engine.SearchParams) ([]engine.Listing, error)
	Property(ctx context.Context, id string) (engine.Listing, error)
	Recommendations(ctx context.Context, in engine.Interaction, limit int) ([]engine.Listing, error)
	MapSearch(ctx context.Context, p engine.MapParams) (*engine.MapResult, error)
}

// UpstreamError carries the engine's own message alongside the class.
type UpstreamError struct {
	class  error
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return e.class.Error()
	}
	return e.class.Error() + ": " + e.Detail
}

func (e *UpstreamError) Unwrap() error { return e.class }

// NewUpstreamError returns an UpstreamError of the given class.
func NewUpstreamError(class error, detail string) *UpstreamError {
	return &UpstreamError{class: class, Detail: detail}
}

// DiscoveryService proxies search, detail, map, and recommendation requests.
type DiscoveryService struct {
	DB     *gorm.DB
	Engine Engine

	feed    *gocache.Cache
	feedTTL time.Duration
}

// NewDiscoveryService builds a DiscoveryService; feedTTL <= 0 disables the
// anonymous feed cache.
func NewDiscoveryService(db *gorm.DB, eng Engine, feedTTL time.Duration) *DiscoveryService {
	s := &DiscoveryService{DB: db, Engine: eng, feedTTL: feedTTL}
	if feedTTL > 0 {
		s.feed = gocache.New(feedTTL, 2*feedTTL)
	}
	return s
}

// Search runs a hybrid search. The query is passed through verbatim apart
// from whitespace normalization; an empty query is rejected.
func (s *DiscoveryService) Search(ctx context.Context, p search.Params) ([]engine.Listing, error) {
	ctx, span := otel.Tracer("services/DiscoveryService").Start(ctx, "Search")
	defer span.End()

	q, err := search.NormalizeQuery(p.Query)
	if err != nil {
		if errors.Is(err, search.ErrQueryTooLong) {
			return nil, invalid("q", "must be at most 2000 characters")
		}
		return nil, invalid("q", "is required")
	}
	p.Query = q
	if err := p.Validate(); err != nil {
		return nil, invalid("", err.Error())
	}

	out, err := s.Engine.HybridSearch(ctx, p)
	if err != nil {
		return nil, engineErr(err)
	}
	span.SetAttributes(attribute.Int("search.results", len(out)))
	return out, nil
}

// Property fetches a single listing.
func (s *DiscoveryService) Property(ctx context.Context, id string) (engine.Listing, error) {
	id, err := normalizePropertyID(id)
	if err != nil {
		return nil, err
	}
	l, err := s.Engine.Property(ctx, id)
	if err != nil {
		return nil, engineErr(err)
	}
	return l, nil
}

// MapSearch returns listings around a point.
func (s *DiscoveryService) MapSearch(ctx context.Context, p engine.MapParams) (*engine.MapResult, error) {
	if p.Lat < -90 || p.Lat > 90 {
		return nil, invalid("lat", "must be between -90 and 90")
	}
	if p.Lng < -180 || p.Lng > 180 {
		return nil, invalid("lng", "must be between -180 and 180")
	}
	if p.RadiusKM < 0 {
		return nil, invalid("radius_km", "must not be negative")
	}
	res, err := s.Engine.MapSearch(ctx, p)
	if err != nil {
		return nil, engineErr(err)
	}
	return res, nil
}

// Recommendations returns the feed for identity. Identities with stored
// history or favorites get a personalized feed; everyone else gets the
// default feed.
func (s *DiscoveryService) Recommendations(ctx context.Context, identity *domain.User, limit int) ([]engine.Listing, error) {
	ctx, span := otel.Tracer("services/DiscoveryService").Start(ctx, "Recommendations")
	defer span.End()

	if identity != nil {
		in, err := s.profile(ctx, identity.ID)
		if err != nil {
			return nil, err
		}
		if len(in.SearchHistory) > 0 || len(in.Favorites) > 0 {
			span.SetAttributes(attribute.Bool("recommend.personalized", true))
			out, err := s.Engine.Recommendations(ctx, in, limit)
			if err != nil {
				return nil, engineErr(err)
			}
			return out, nil
		}
	}
	span.SetAttributes(attribute.Bool("recommend.personalized", false))
	return s.defaultFeed(ctx, limit)
}

func (s *DiscoveryService) profile(ctx context.Context, userID string) (engine.Interaction, error) {
	queries, err := repo.RecentUserQueries(ctx, s.DB, userID, profileQueries)
	if err != nil {
		return engine.Interaction{}, persistence("recent history", err)
	}
	favs, err := repo.ListFavorites(ctx, s.DB, userID)
	if err != nil {
		return engine.Interaction{}, persistence("list favorites", err)
	}
	refs := make([]engine.FavoriteRef, len(favs))
	for i, f := range favs {
		refs[i] = engine.FavoriteRef{PropertyID: f.PropertyID}
	}
	return engine.Interaction{SearchHistory: queries, Favorites: refs}, nil
}

func (s *DiscoveryService) defaultFeed(ctx context.Context, limit int) ([]engine.Listing, error) {
	key := "feed:" + strconv.Itoa(limit)
	if s.feed != nil {
		if v, ok := s.feed.Get(key); ok {
			return v.([]engine.Listing), nil
		}
	}
	p := search.Params{Query: search.DefaultQuery}
	if limit > 0 {
		p.TopK = limit
	}
	out, err := s.Engine.HybridSearch(ctx, p)
	if err != nil {
		return nil, engineErr(err)
	}
	if s.feed != nil {
		s.feed.Set(key, out, gocache.DefaultExpiration)
	}
	return out, nil
}

// engineErr maps engine failures onto the service classes.
func engineErr(err error) error {
	detail := engine.Detail(err)
	switch {
	case errors.Is(err, engine.ErrTimeout):
		return &UpstreamError{class: ErrTimeout, Detail: detail}
	case errors.Is(err, engine.ErrNotFound):
		return &UpstreamError{class: ErrPropertyNotFound, Detail: detail}
	case errors.Is(err, engine.ErrBadRequest):
		return &UpstreamError{class: ErrValidation, Detail: detail}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return &UpstreamError{class: ErrUpstream, Detail: detail}
	}
}
