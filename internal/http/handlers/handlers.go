package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-estate-backend/internal/auth"
	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/engine"
	"github.com/tbourn/go-estate-backend/internal/http/middleware"
	"github.com/tbourn/go-estate-backend/internal/search"
	"github.com/tbourn/go-estate-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IdentityService defines account and session operations consumed by HTTP
// handlers.
type IdentityService interface {
	// Register creates an identity and returns a fresh session.
	Register(ctx context.Context, name, email, password string) (*services.AuthResult, error)
	// Login verifies credentials and mints a new session token.
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	// Logout revokes the token described by claims.
	Logout(ctx context.Context, claims *auth.Claims) error
	// Profile loads the identity for userID.
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

// FavoriteService defines the per-user favorites ledger.
type FavoriteService interface {
	Add(ctx context.Context, userID, propertyID string) (*domain.Favorite, error)
	Remove(ctx context.Context, userID, propertyID string) error
	List(ctx context.Context, userID string) ([]domain.Favorite, error)
	Check(ctx context.Context, userID, propertyID string) (bool, error)
	// Stats returns the favorite count and newest add time, for ETags.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// HistoryService hands out search recorders and reads personal history.
type HistoryService interface {
	// For returns the recorder for identity, or the guest recorder when nil.
	For(identity *domain.User) services.Recorder
	History(ctx context.Context, userID string) ([]domain.SearchRecord, error)
}

// DiscoveryService proxies the external search engine.
type DiscoveryService interface {
	Search(ctx context.Context, p search.Params) ([]engine.Listing, error)
	Property(ctx context.Context, id string) (engine.Listing, error)
	MapSearch(ctx context.Context, p engine.MapParams) (*engine.MapResult, error)
	Recommendations(ctx context.Context, identity *domain.User, limit int) ([]engine.Listing, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for identities, favorites, history, and
// search. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	identity  IdentityService
	favorites FavoriteService
	history   HistoryService
	discovery DiscoveryService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(identity IdentityService, favorites FavoriteService, history HistoryService, discovery DiscoveryService) *Handlers {
	return &Handlers{identity: identity, favorites: favorites, history: history, discovery: discovery}
}

// currentUser returns the identity resolved by the auth middleware. Routes
// behind RequireAuth always have one; the 401 guard covers misconfigured
// routes.
func currentUser(c *gin.Context) (*domain.User, bool) {
	u := middleware.Identity(c)
	if u == nil {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return nil, false
	}
	return u, true
}
