// Package config loads the server's settings from environment variables.
// Every setting has a default except JWT_SECRET.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-estate-backend/internal/sysutil"
)

// CORSConfig lists browser origins allowed to call the API. Empty allows
// any origin without credentials.
type CORSConfig struct {
	AllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma separated
}

type SecurityConfig struct {
	EnableHSTS bool          // ENABLE_HSTS
	HSTSMaxAge time.Duration // HSTS_MAX_AGE
}

// OTELConfig controls trace export over OTLP/gRPC. Disabled exports nothing
// but keeps W3C propagation.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG, 0..1
}

// DBConfig selects the GORM dialect and its connection target.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	DSN    string // Postgres DSN (DATABASE_URL)
}

// AuthConfig holds session token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        // HMAC key for HS256 session tokens
	TokenTTL   time.Duration // session lifetime, 7 days by default
	BcryptCost int           // bcrypt work factor
}

// EngineConfig points at the external search engine.
type EngineConfig struct {
	BaseURL           string        // e.g. http://127.0.0.1:8000
	Timeout           time.Duration // per outbound call
	RecommendCacheTTL time.Duration // anonymous feed cache; 0 disables
}

// Config is the full server configuration.
type Config struct {
	Port              string // PORT, without host
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	// WriteTimeout must exceed Engine.Timeout or slow searches are cut
	// off before the 504 is written.
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	GinMode        string // debug|release|test

	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for account, favorite and history routes
	EngineBasePath string // base path for the search proxy routes

	// Persistence
	DB DBConfig

	// Identity
	Auth AuthConfig

	// History retention
	HistoryLimit  int // newest searches kept per user
	GuestLogLimit int // newest anonymous searches kept overall

	// Search engine
	Engine EngineConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad is Load for callers that cannot run without configuration.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds the configuration from the environment. A variable that is
// set but malformed is an error rather than a silent fallback to the
// default, and every problem found is reported in one joined error.
func Load() (Config, error) {
	var env envReader
	cfg := Config{
		Port:              env.str("PORT", "4000"),
		ReadTimeout:       env.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: env.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      env.duration("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       env.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    env.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(env.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogPretty:      env.boolean("LOG_PRETTY", false),
		SwaggerEnabled: env.boolean("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(env.str("API_BASE_PATH", "/api")),
		EngineBasePath: normalizeBasePath(env.str("ENGINE_BASE_PATH", "/ai")),

		DB: DBConfig{
			Driver: strings.ToLower(env.str("DB_DRIVER", "sqlite")),
			Path:   env.str("DB_PATH", "app.db"),
			DSN:    env.str("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:  env.str("JWT_SECRET", ""),
			TokenTTL:   env.duration("TOKEN_TTL", 7*24*time.Hour),
			BcryptCost: env.integer("BCRYPT_COST", 10),
		},
		HistoryLimit:  env.integer("HISTORY_LIMIT", 20),
		GuestLogLimit: env.integer("GUEST_LOG_LIMIT", 100),
		Engine: EngineConfig{
			BaseURL:           strings.TrimRight(env.str("SEARCH_ENGINE_URL", "http://127.0.0.1:8000"), "/"),
			Timeout:           env.duration("SEARCH_TIMEOUT", 10*time.Second),
			RecommendCacheTTL: env.duration("RECOMMEND_CACHE_TTL", time.Minute),
		},

		RateRPS:   env.float("RATE_RPS", 10),
		RateBurst: env.integer("RATE_BURST", 20),

		CORS: CORSConfig{AllowedOrigins: splitCSV(env.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: env.boolean("ENABLE_HSTS", false),
			HSTSMaxAge: env.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		OTEL: OTELConfig{
			Enabled:     env.boolean("OTEL_ENABLED", false),
			Endpoint:    env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    env.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: env.str("OTEL_SERVICE_NAME", "estate-search-backend"),
			SampleRatio: env.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	cfg.normalize()
	return cfg, errors.Join(append(env.errs, cfg.validate()...)...)
}

// normalize folds accepted aliases into their canonical spelling.
func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	switch c.DB.Driver {
	case "postgresql", "pg":
		c.DB.Driver = "postgres"
	case "sqlite3":
		c.DB.Driver = "sqlite"
	}
}

func (c Config) validate() []error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DB.Driver {
	case "sqlite":
		check(strings.TrimSpace(c.DB.Path) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(c.DB.DSN) != "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	default:
		errs = append(errs, errors.New("DB_DRIVER must be one of: sqlite, postgres"))
	}

	check(len(c.Auth.JWTSecret) >= 16, "JWT_SECRET must be at least 16 bytes")
	check(c.Auth.TokenTTL > 0, "TOKEN_TTL must be > 0")
	check(c.Auth.BcryptCost >= 4 && c.Auth.BcryptCost <= 31, "BCRYPT_COST must be between 4 and 31")
	check(c.HistoryLimit >= 1, "HISTORY_LIMIT must be >= 1")
	check(c.GuestLogLimit >= 1, "GUEST_LOG_LIMIT must be >= 1")

	u, err := url.Parse(c.Engine.BaseURL)
	check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
		"SEARCH_ENGINE_URL must be an absolute http(s) URL")
	check(c.Engine.Timeout > 0, "SEARCH_TIMEOUT must be > 0")
	check(c.WriteTimeout > c.Engine.Timeout, "WRITE_TIMEOUT must exceed SEARCH_TIMEOUT")
	check(c.Engine.RecommendCacheTTL >= 0, "RECOMMEND_CACHE_TTL must be >= 0")

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errs
}

// envReader reads typed variables and remembers the ones it could not
// parse. Unset and empty variables take the default.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return v, ok && v != ""
}

func (r *envReader) bad(k, v, kind string) {
	r.errs = append(r.errs, fmt.Errorf("%s: %q is not a valid %s", k, v, kind))
}

func (r *envReader) str(k, def string) string {
	if v, ok := r.lookup(k); ok {
		return v
	}
	return def
}

func (r *envReader) integer(k string, def int) int {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.bad(k, v, "integer")
		return def
	}
	return n
}

func (r *envReader) float(k string, def float64) float64 {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.bad(k, v, "number")
		return def
	}
	return f
}

func (r *envReader) boolean(k string, def bool) bool {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	b, valid := sysutil.ParseBool(v)
	if !valid {
		r.bad(k, v, "boolean")
		return def
	}
	return b
}

func (r *envReader) duration(k string, def time.Duration) time.Duration {
	v, ok := r.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.bad(k, v, "duration")
		return def
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing one;
// blank means root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
