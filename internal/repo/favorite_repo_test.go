package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateFavorite_DuplicateRejected(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	u := seedUser(t, db, "fav@example.com")

	f, err := CreateFavorite(ctx, db, u.ID, "p1")
	if err != nil {
		t.Fatalf("CreateFavorite: %v", err)
	}
	if f.ID == "" || f.PropertyID != "p1" || f.AddedAt.IsZero() {
		t.Fatalf("unexpected favorite: %+v", f)
	}
	if _, err := CreateFavorite(ctx, db, u.ID, "p1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same property for a different user is fine.
	other := seedUser(t, db, "other@example.com")
	if _, err := CreateFavorite(ctx, db, other.ID, "p1"); err != nil {
		t.Fatalf("other user favorite: %v", err)
	}
}

func TestDeleteFavorite_IdempotentAndScoped(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	a := seedUser(t, db, "a@example.com")
	b := seedUser(t, db, "b@example.com")
	_, _ = CreateFavorite(ctx, db, a.ID, "p1")
	_, _ = CreateFavorite(ctx, db, b.ID, "p1")

	n, err := DeleteFavorite(ctx, db, a.ID, "p1")
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	n, err = DeleteFavorite(ctx, db, a.ID, "p1")
	if err != nil || n != 0 {
		t.Fatalf("second delete should be a no-op: n=%d err=%v", n, err)
	}
	ok, _ := FavoriteExists(ctx, db, b.ID, "p1")
	if !ok {
		t.Fatalf("other user's favorite must survive")
	}
}

func TestListFavorites_OrderedByAddedAt(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	u := seedUser(t, db, "list@example.com")

	got, err := ListFavorites(ctx, db, u.ID)
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty list should be non-nil and empty: %v %v", got, err)
	}

	for _, p := range []string{"p3", "p1", "p2"} {
		if _, err := CreateFavorite(ctx, db, u.ID, p); err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	got, err = ListFavorites(ctx, db, u.ID)
	if err != nil || len(got) != 3 {
		t.Fatalf("list: %v %v", got, err)
	}
	if got[0].PropertyID != "p3" || got[1].PropertyID != "p1" || got[2].PropertyID != "p2" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
