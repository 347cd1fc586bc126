// Package services – FavoriteService
//
// This file implements FavoriteService, the per-user ledger of saved
// property ids. Uniqueness of (user, property) is enforced by the store's
// unique index rather than a check-then-insert, so concurrent adds of the
// same pair yield exactly one row and one ErrAlreadyFavorite.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/domain"
	"github.com/tbourn/go-estate-backend/internal/repo"
)

// MaxPropertyIDLen caps the length of a stored property id.
const MaxPropertyIDLen = 128

// FavoriteService manages users' favorite properties.
type FavoriteService struct {
	DB *gorm.DB
}

func normalizePropertyID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalid("propertyId", "is required")
	}
	if len(id) > MaxPropertyIDLen {
		return "", invalid("propertyId", "must be at most 128 characters")
	}
	return id, nil
}

// Add records propertyID as a favorite of userID.
//
// Errors: *ValidationError for an empty or overlong id, ErrAlreadyFavorite
// when the pair exists, or ErrPersistence.
func (s *FavoriteService) Add(ctx context.Context, userID, propertyID string) (*domain.Favorite, error) {
	ctx, span := otel.Tracer("services/FavoriteService").Start(ctx, "Add",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	propertyID, err := normalizePropertyID(propertyID)
	if err != nil {
		return nil, err
	}
	f, err := repo.CreateFavorite(ctx, s.DB, userID, propertyID)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAlreadyFavorite
		}
		return nil, persistence("add favorite", err)
	}
	return f, nil
}

// Remove deletes the pair if present. Removing an absent pair succeeds.
func (s *FavoriteService) Remove(ctx context.Context, userID, propertyID string) error {
	ctx, span := otel.Tracer("services/FavoriteService").Start(ctx, "Remove",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	propertyID, err := normalizePropertyID(propertyID)
	if err != nil {
		return err
	}
	n, err := repo.DeleteFavorite(ctx, s.DB, userID, propertyID)
	if err != nil {
		return persistence("remove favorite", err)
	}
	span.SetAttributes(attribute.Int64("favorites.removed", n))
	return nil
}

// List returns userID's favorites, oldest first. The slice is never nil.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	ctx, span := otel.Tracer("services/FavoriteService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	out, err := repo.ListFavorites(ctx, s.DB, userID)
	if err != nil {
		return nil, persistence("list favorites", err)
	}
	span.SetAttributes(attribute.Int("favorites.count", len(out)))
	return out, nil
}

// Check reports whether userID has favorited propertyID.
func (s *FavoriteService) Check(ctx context.Context, userID, propertyID string) (bool, error) {
	propertyID, err := normalizePropertyID(propertyID)
	if err != nil {
		return false, err
	}
	ok, err := repo.FavoriteExists(ctx, s.DB, userID, propertyID)
	if err != nil {
		return false, persistence("check favorite", err)
	}
	return ok, nil
}

// Stats returns the favorite count and latest add time for ETag generation.
func (s *FavoriteService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	n, latest, err := repo.FavoritesStats(ctx, s.DB, userID)
	if err != nil {
		return 0, nil, persistence("favorite stats", err)
	}
	return n, latest, nil
}
