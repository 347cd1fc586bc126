// Package repo is the persistence layer: GORM repositories for users,
// favorites, search history and revoked tokens, plus database bootstrap.
// SQLite (pure Go driver) serves development and tests; Postgres serves
// production.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-estate-backend/internal/config"
	"github.com/tbourn/go-estate-backend/internal/domain"
)

// ErrDuplicate reports a unique-constraint violation (email already
// registered, property already favorited, token already revoked).
var ErrDuplicate = errors.New("duplicate")

// slowQuery is where the SQL logger starts warning.
const slowQuery = 200 * time.Millisecond

// SQLite connection parameters, applied by the driver to every pooled
// connection rather than once per handle.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type dialect struct {
	open    func(config.DBConfig) (gorm.Dialector, error)
	maxOpen int
}

var dialects = map[string]dialect{
	"sqlite":   {open: sqliteDialector, maxOpen: 10},
	"postgres": {open: postgresDialector, maxOpen: 25},
}

// Open connects to the database selected by dc.Driver. When traced is true,
// every query is wrapped in an OpenTelemetry span.
func Open(dc config.DBConfig, traced bool) (*gorm.DB, error) {
	name := dc.Driver
	if name == "" {
		name = "sqlite"
	}
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported db driver %q", dc.Driver)
	}
	dial, err := d.open(dc)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         zerologGorm{slow: slowQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if traced {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("db tracing: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(d.maxOpen)
	sqlDB.SetMaxIdleConns(d.maxOpen)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// OpenSQLite is Open for a SQLite file, untraced.
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(config.DBConfig{Driver: "sqlite", Path: path}, false)
}

func sqliteDialector(dc config.DBConfig) (gorm.Dialector, error) {
	// A missing directory otherwise surfaces as an opaque driver error.
	if dir := filepath.Dir(dc.Path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite directory: %w", err)
		}
	}
	dsn := dc.Path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=" + strings.Join(sqlitePragmas, "&_pragma=")
	}
	return sqlite.Open(dsn), nil
}

func postgresDialector(dc config.DBConfig) (gorm.Dialector, error) {
	if strings.TrimSpace(dc.DSN) == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	return postgres.Open(dc.DSN), nil
}

// AutoMigrate creates or updates every table owned by the backend.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.SearchRecord{},
		&domain.GuestSearch{},
		&domain.Favorite{},
		&domain.RevokedToken{},
	)
}

// isUniqueViolation recognizes duplicate-key errors across drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	for _, marker := range []string{"unique constraint failed", "constraint failed: unique", "duplicate key value", "sqlstate 23505"} {
		if strings.Contains(low, marker) {
			return true
		}
	}
	return false
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}

// zerologGorm sends GORM's own logging to the global zerolog logger: failed
// statements at error, slow ones at warn, the rest at trace. Not-found is
// routine here and never logged.
type zerologGorm struct {
	slow time.Duration
}

func (z zerologGorm) LogMode(gormlogger.LogLevel) gormlogger.Interface { return z }

func (zerologGorm) Info(_ context.Context, msg string, args ...any) {
	log.Info().Msgf(msg, args...)
}

func (zerologGorm) Warn(_ context.Context, msg string, args ...any) {
	log.Warn().Msgf(msg, args...)
}

func (zerologGorm) Error(_ context.Context, msg string, args ...any) {
	log.Error().Msgf(msg, args...)
}

func (z zerologGorm) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		ev = log.Error().Err(err)
	case z.slow > 0 && elapsed > z.slow:
		ev = log.Warn().Bool("slow", true)
	default:
		ev = log.Trace()
	}
	if !ev.Enabled() {
		return
	}
	sql, rows := fc()
	ev.Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("sql")
}
