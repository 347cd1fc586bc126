// Package httpapi assembles the Gin engine: the shared middleware chain,
// the account API under cfg.APIBasePath and the search engine proxy under
// cfg.EngineBasePath.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/auth"
	"github.com/tbourn/go-estate-backend/internal/config"
	_ "github.com/tbourn/go-estate-backend/internal/http/docs" // swagger spec registration
	"github.com/tbourn/go-estate-backend/internal/http/handlers"
	"github.com/tbourn/go-estate-backend/internal/http/middleware"
	"github.com/tbourn/go-estate-backend/internal/services"
)

// Account and favorites payloads are tiny; 1 MiB is generous.
const maxBodyBytes = 1 << 20

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", "X-Request-ID"}
)

// RegisterRoutes wires services over db and eng and mounts every route on
// r. It fails only when the session token settings are unusable.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, eng services.Engine, cfg config.Config) error {
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}
	identity := services.NewIdentityService(db, tokens, auth.NewHasher(cfg.Auth.BcryptCost))
	h := handlers.New(
		identity,
		&services.FavoriteService{DB: db},
		services.NewHistoryService(db, cfg.HistoryLimit, cfg.GuestLogLimit),
		services.NewDiscoveryService(db, eng, cfg.Engine.RecommendCacheTTL),
	)

	useMiddleware(r, cfg, tokens)
	mountOps(r, cfg)
	mountAccount(groupWithPrefix(r, cfg.APIBasePath), h, identity)
	mountEngine(groupWithPrefix(r, cfg.EngineBasePath), h, identity)
	return nil
}

// useMiddleware installs the global chain. Order matters: tracing first so
// every span has a parent, the request id before anything that logs, and
// Recovery after the access log so panics are logged with the request.
func useMiddleware(r *gin.Engine, cfg config.Config, tokens middleware.TokenVerifier) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}))
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP(tokens)).
		Skip(middleware.SkipPaths("/health", "/metrics")).
		Handler())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
}

// mountOps adds the unauthenticated operational endpoints.
func mountOps(r *gin.Engine, cfg config.Config) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// mountAccount adds registration, sessions, history and favorites. Every
// response here may carry a token or personal data, so none is cacheable.
func mountAccount(api *gin.RouterGroup, h *handlers.Handlers, authn middleware.Authenticator) {
	requireAuth := middleware.RequireAuth(authn)

	user := api.Group("/user", middleware.NoStore())
	user.POST("/register", h.Register)
	user.POST("/login", h.Login)
	user.POST("/guestSearch", h.GuestSearch)

	user.POST("/logout", requireAuth, h.Logout)
	user.GET("/me", requireAuth, h.Me)
	user.POST("/saveSearch", requireAuth, h.SaveSearch)
	user.GET("/history", requireAuth, h.ListHistory)

	fav := user.Group("/favorite", requireAuth)
	fav.POST("/add", h.AddFavorite)
	fav.DELETE("/remove", h.RemoveFavorite)
	fav.GET("/list", h.ListFavorites)
	fav.GET("/check/:propertyId", h.CheckFavorite)
}

// mountEngine adds the search proxy. Only recommendations look at the
// caller, and only when a token is offered.
func mountEngine(ai *gin.RouterGroup, h *handlers.Handlers, authn middleware.Authenticator) {
	ai.GET("/search", h.Search)
	ai.GET("/property/:id", h.Property)
	ai.GET("/map_search", h.MapSearch)
	ai.GET("/recommendations", middleware.OptionalAuth(authn), h.Recommendations)
}

// corsMiddleware allows the configured origins, or any origin without
// credentials when none are configured. The allow-origin header is written
// before the CORS handler so it is also present on requests without an
// Origin header.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsHeaders,
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After", "Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	var allowOrigin gin.HandlerFunc
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
		allowOrigin = func(c *gin.Context) {
			c.Header("Access-Control-Allow-Origin", "*")
		}
	} else {
		cc.AllowOrigins = origins
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		allowOrigin = func(c *gin.Context) {
			if o := c.GetHeader("Origin"); allowed[o] {
				c.Header("Access-Control-Allow-Origin", o)
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
	}
	return []gin.HandlerFunc{allowOrigin, cors.New(cc)}
}

// limitBody caps request bodies; reads past maxBytes fail and the handler's
// bind error becomes a 400.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
