// Search engine proxy handlers.
//
// Mounted under the engine base path (default /ai):
//   - GET /ai/search            hybrid search, proxied array
//   - GET /ai/property/{id}     single listing
//   - GET /ai/map_search        radius search around a point
//   - GET /ai/recommendations   personalized or default feed (optional auth)
//
// Engine failures map to 502, engine timeouts to 504, and a listing the
// engine does not know to 404.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/engine"
	"github.com/tbourn/go-estate-backend/internal/http/middleware"
	"github.com/tbourn/go-estate-backend/internal/search"
	"github.com/tbourn/go-estate-backend/internal/utils"
)

const (
	maxTopK             = 100
	defaultRecommendLen = 20
	maxRecommendLen     = 100
	maxMapLimit         = 500
)

// MapSearchResponse is the engine's radius search answer.
type MapSearchResponse struct {
	Success bool             `json:"success" example:"true"`
	Count   int              `json:"count"   example:"2"`
	Results []engine.Listing `json:"results" swaggertype:"array,object"`
}

// RecommendationsResponse wraps the feed for the caller.
type RecommendationsResponse struct {
	Success bool             `json:"success" example:"true"`
	Results []engine.Listing `json:"results" swaggertype:"array,object"`
}

// floatParam parses an optional numeric query parameter, failing the request
// on malformed input.
func floatParam(c *gin.Context, name string) (*float64, bool) {
	v, err := search.ParseBound(c.Query(name))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be a number")
		return nil, false
	}
	return v, true
}

func intParam(c *gin.Context, name string, def int) (int, bool) {
	n, err := utils.AtoiOptional(c.Query(name), def)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

// Search godoc
// @ID          searchProperties
// @Summary     Hybrid property search
// @Description Proxies a free-text search with optional price and area ranges to the search engine and returns its listings unchanged.
// @Tags        Search
// @Produce     json
// @Param       q          query  string  true   "Free-text query"              example(คอนโดใกล้ BTS)
// @Param       min_price  query  number  false  "Minimum price"                minimum(0)
// @Param       max_price  query  number  false  "Maximum price"                minimum(0)
// @Param       min_area   query  number  false  "Minimum area (sq.m)"          minimum(0)
// @Param       max_area   query  number  false  "Maximum area (sq.m)"          minimum(0)
// @Param       top_k      query  int     false  "Maximum number of results"    minimum(1) maximum(100)
// @Success     200  {array}   object
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid parameters"
// @Failure     502  {object}  handlers.ErrorResponse  "Search engine failure"
// @Failure     504  {object}  handlers.ErrorResponse  "Search engine timeout"
// @Router      /ai/search [get]
func (h *Handlers) Search(c *gin.Context) {
	p := search.Params{Query: c.Query("q")}
	var valid bool
	if p.MinPrice, valid = floatParam(c, "min_price"); !valid {
		return
	}
	if p.MaxPrice, valid = floatParam(c, "max_price"); !valid {
		return
	}
	if p.MinArea, valid = floatParam(c, "min_area"); !valid {
		return
	}
	if p.MaxArea, valid = floatParam(c, "max_area"); !valid {
		return
	}
	if p.TopK, valid = intParam(c, "top_k", 0); !valid {
		return
	}
	if p.TopK > maxTopK {
		p.TopK = maxTopK
	}

	listings, err := h.discovery.Search(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	if listings == nil {
		listings = []engine.Listing{}
	}
	ok(c, http.StatusOK, listings)
}

// Property godoc
// @ID          getProperty
// @Summary     Get a listing
// @Tags        Search
// @Produce     json
// @Param       id   path      string  true  "Property id"  example(prop-1042)
// @Success     200  {object}  object
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid id"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown listing"
// @Failure     502  {object}  handlers.ErrorResponse  "Search engine failure"
// @Failure     504  {object}  handlers.ErrorResponse  "Search engine timeout"
// @Router      /ai/property/{id} [get]
func (h *Handlers) Property(c *gin.Context) {
	l, err := h.discovery.Property(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", l)
}

// MapSearch godoc
// @ID          mapSearch
// @Summary     Listings around a point
// @Tags        Search
// @Produce     json
// @Param       lat        query  number  true   "Latitude"              minimum(-90)  maximum(90)
// @Param       lng        query  number  true   "Longitude"             minimum(-180) maximum(180)
// @Param       radius_km  query  number  false  "Radius in kilometres"  minimum(0)
// @Param       limit      query  int     false  "Maximum results"       minimum(1) maximum(500)
// @Success     200  {object}  handlers.MapSearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid parameters"
// @Failure     502  {object}  handlers.ErrorResponse  "Search engine failure"
// @Failure     504  {object}  handlers.ErrorResponse  "Search engine timeout"
// @Router      /ai/map_search [get]
func (h *Handlers) MapSearch(c *gin.Context) {
	lat, valid := floatParam(c, "lat")
	if !valid {
		return
	}
	lng, valid := floatParam(c, "lng")
	if !valid {
		return
	}
	if lat == nil || lng == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lat and lng are required")
		return
	}
	radius, valid := floatParam(c, "radius_km")
	if !valid {
		return
	}
	limit, valid := intParam(c, "limit", 0)
	if !valid {
		return
	}

	p := engine.MapParams{Lat: *lat, Lng: *lng, Limit: utils.ClampInt(limit, 0, maxMapLimit)}
	if radius != nil {
		p.RadiusKM = *radius
	}

	res, err := h.discovery.MapSearch(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	results := res.Results
	if results == nil {
		results = []engine.Listing{}
	}
	ok(c, http.StatusOK, MapSearchResponse{Success: true, Count: res.Count, Results: results})
}

// Recommendations godoc
// @ID          recommendations
// @Summary     Recommended listings
// @Description With a valid bearer token the feed is built from the identity's recent searches and favorites; otherwise a default feed is returned.
// @Tags        Search
// @Produce     json
// @Param       limit  query  int  false  "Maximum results"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.RecommendationsResponse
// @Failure     502  {object}  handlers.ErrorResponse  "Search engine failure"
// @Failure     504  {object}  handlers.ErrorResponse  "Search engine timeout"
// @Router      /ai/recommendations [get]
func (h *Handlers) Recommendations(c *gin.Context) {
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), defaultRecommendLen), 1, maxRecommendLen)

	out, err := h.discovery.Recommendations(c.Request.Context(), middleware.Identity(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []engine.Listing{}
	}
	ok(c, http.StatusOK, RecommendationsResponse{Success: true, Results: out})
}
