// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Favorite model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules to the services package.
//
// Error semantics:
//   - A second favorite for the same (user_id, property_id) is rejected by
//     the unique index and returned as ErrDuplicate.
//   - DeleteFavorite is a no-op for pairs that do not exist.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// CreateFavorite inserts a favorite for (userID, propertyID).
func CreateFavorite(ctx context.Context, db *gorm.DB, userID, propertyID string) (*domain.Favorite, error) {
	f := &domain.Favorite{
		ID:         uuid.NewString(),
		UserID:     userID,
		PropertyID: propertyID,
		AddedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return f, nil
}

// DeleteFavorite removes (userID, propertyID) if present and reports how
// many rows were deleted.
func DeleteFavorite(ctx context.Context, db *gorm.DB, userID, propertyID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&domain.Favorite{})
	return res.RowsAffected, res.Error
}

// ListFavorites returns userID's favorites in the order they were added.
func ListFavorites(ctx context.Context, db *gorm.DB, userID string) ([]domain.Favorite, error) {
	out := []domain.Favorite{}
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// FavoriteExists reports whether userID has favorited propertyID.
func FavoriteExists(ctx context.Context, db *gorm.DB, userID, propertyID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Favorite{}).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Count(&n).Error
	return n > 0, err
}
