package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// newTestDB opens a private in-memory database. Pass migrate=false to get an
// empty schema for error-path tests.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so the foreign_keys PRAGMA applies to every statement.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, "Tester", email, "hash")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestFavoritesStats_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, _, err := FavoritesStats(context.Background(), db, "u1"); err == nil {
		t.Fatalf("expected error due to missing favorites table")
	}
}

func TestFavoritesStats_EmptyAndPopulated(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	u := seedUser(t, db, "stats@example.com")

	n, latest, err := FavoritesStats(ctx, db, u.ID)
	if err != nil || n != 0 || latest != nil {
		t.Fatalf("empty stats unexpected: n=%d latest=%v err=%v", n, latest, err)
	}

	if _, err := CreateFavorite(ctx, db, u.ID, "p1"); err != nil {
		t.Fatalf("fav p1: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	f2, err := CreateFavorite(ctx, db, u.ID, "p2")
	if err != nil {
		t.Fatalf("fav p2: %v", err)
	}

	n, latest, err = FavoritesStats(ctx, db, u.ID)
	if err != nil || n != 2 || latest == nil {
		t.Fatalf("stats unexpected: n=%d latest=%v err=%v", n, latest, err)
	}
	if d := latest.Sub(f2.AddedAt); d < -time.Millisecond || d > time.Millisecond {
		t.Fatalf("latest=%v want %v", latest, f2.AddedAt)
	}
}
