// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// FavoritesStats returns the number of favorites userID holds and the most
// recent AddedAt among them. When the user has none, count is 0 and
// latest is nil.
//
// Removing a favorite changes the count, adding one changes the count and
// usually the latest timestamp, so the pair works as a cheap version tag.
func FavoritesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Favorite{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest added_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		AddedAt time.Time
	}
	if err = q.Select("added_at").Order("added_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.AddedAt, nil
}
