package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-estate-backend/internal/repo"
)

func TestFavorites_AddListCheckRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, db, "Ann", "ann@example.com", "h")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	svc := &FavoriteService{DB: db}

	for _, id := range []string{"p1", " p2 "} {
		if _, err := svc.Add(ctx, u.ID, id); err != nil {
			t.Fatalf("Add(%q): %v", id, err)
		}
	}

	if _, err := svc.Add(ctx, u.ID, "p1"); !errors.Is(err, ErrAlreadyFavorite) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrAlreadyFavorite, got %v", err)
	}

	list, err := svc.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].PropertyID != "p1" || list[1].PropertyID != "p2" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if ok, _ := svc.Check(ctx, u.ID, "p2"); !ok {
		t.Fatalf("p2 should be a favorite")
	}
	if ok, _ := svc.Check(ctx, u.ID, "p3"); ok {
		t.Fatalf("p3 should not be a favorite")
	}

	if err := svc.Remove(ctx, u.ID, "p1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removing an absent pair is not an error.
	if err := svc.Remove(ctx, u.ID, "p1"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if ok, _ := svc.Check(ctx, u.ID, "p1"); ok {
		t.Fatalf("p1 should be gone")
	}

	n, latest, err := svc.Stats(ctx, u.ID)
	if err != nil || n != 1 || latest == nil {
		t.Fatalf("Stats = %d %v %v", n, latest, err)
	}
}

func TestFavorites_IsolatedPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, _ := repo.CreateUser(ctx, db, "A", "a@example.com", "h")
	b, _ := repo.CreateUser(ctx, db, "B", "b@example.com", "h")
	svc := &FavoriteService{DB: db}

	if _, err := svc.Add(ctx, a.ID, "p1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, b.ID, "p1"); err != nil {
		t.Fatalf("same property for another user must be allowed: %v", err)
	}
	if err := svc.Remove(ctx, b.ID, "p1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := svc.Check(ctx, a.ID, "p1"); !ok {
		t.Fatalf("removal by b must not affect a")
	}
	list, _ := svc.List(ctx, b.ID)
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}

func TestFavorites_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := &FavoriteService{DB: db}
	ctx := context.Background()

	for _, id := range []string{"", "   ", strings.Repeat("x", MaxPropertyIDLen+1)} {
		if _, err := svc.Add(ctx, "u1", id); !errors.Is(err, ErrValidation) {
			t.Fatalf("Add(%q) expected ErrValidation, got %v", id, err)
		}
		if err := svc.Remove(ctx, "u1", id); !errors.Is(err, ErrValidation) {
			t.Fatalf("Remove(%q) expected ErrValidation, got %v", id, err)
		}
		if _, err := svc.Check(ctx, "u1", id); !errors.Is(err, ErrValidation) {
			t.Fatalf("Check(%q) expected ErrValidation, got %v", id, err)
		}
	}
}

func TestFavorites_ConcurrentAddKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := repo.CreateUser(ctx, db, "Ann", "ann@example.com", "h")
	svc := &FavoriteService{DB: db}

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, u.ID, "p1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyFavorite):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || dupes != n-1 {
		t.Fatalf("ok=%d dupes=%d; want 1 and %d", ok, dupes, n-1)
	}
	list, _ := svc.List(ctx, u.ID)
	if len(list) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(list))
	}
}

func TestFavorites_PersistenceFailure(t *testing.T) {
	db := newTestDB(t)
	svc := &FavoriteService{DB: db}
	ctx := context.Background()
	if err := db.Migrator().DropTable("favorites"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := svc.List(ctx, "u1"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, err := svc.Add(ctx, "u1", "p1"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
