// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the capped search logs: the per-user
// search history and the global guest log.
//
// Both logs share one append routine. Inside a single transaction it inserts
// the new row and deletes everything but the newest `limit` rows of the same
// scope, so readers never observe a log longer than its cap. On Postgres the
// scope is serialized first (row lock on the owner, advisory lock for the
// guest log); SQLite serializes writers on its own.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// ErrInvalidLimit is returned when a log cap below 1 is requested.
var ErrInvalidLimit = errors.New("limit must be >= 1")

// guestLogLockKey is the pg_advisory_xact_lock key guarding guest_searches.
const guestLogLockKey = 0x6775657374 // "guest"

// cappedLog describes one retention scope.
type cappedLog struct {
	model any                    // zero value of the row type, used for deletes
	scope func(*gorm.DB) *gorm.DB // restricts queries to the scope
	lock  func(*gorm.DB) error    // optional serialization on Postgres
}

func appendCapped(ctx context.Context, db *gorm.DB, row any, log cappedLog, limit int) error {
	if limit < 1 {
		return ErrInvalidLimit
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if log.lock != nil && isPostgres(tx) {
			if err := log.lock(tx); err != nil {
				return err
			}
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		keep := log.scope(tx.Model(log.model)).
			Select("id").
			Order("id DESC").
			Limit(limit)
		return log.scope(tx).
			Where("id NOT IN (?)", keep).
			Delete(log.model).Error
	})
}

func userLog(userID string) cappedLog {
	return cappedLog{
		model: &domain.SearchRecord{},
		scope: func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) },
		lock: func(tx *gorm.DB) error {
			var u domain.User
			return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", userID).
				Take(&u).Error
		},
	}
}

func guestLog() cappedLog {
	return cappedLog{
		model: &domain.GuestSearch{},
		scope: func(q *gorm.DB) *gorm.DB { return q },
		lock: func(tx *gorm.DB) error {
			return tx.Exec("SELECT pg_advisory_xact_lock(?)", guestLogLockKey).Error
		},
	}
}

// AppendUserSearch records query in userID's history and trims the history
// to the newest limit entries, atomically.
func AppendUserSearch(ctx context.Context, db *gorm.DB, userID, query string, limit int) (*domain.SearchRecord, error) {
	rec := &domain.SearchRecord{
		UserID:    userID,
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
	if err := appendCapped(ctx, db, rec, userLog(userID), limit); err != nil {
		return nil, err
	}
	return rec, nil
}

// AppendGuestSearch records an anonymous query and trims the guest log to
// the newest limit entries, atomically.
func AppendGuestSearch(ctx context.Context, db *gorm.DB, query string, limit int) (*domain.GuestSearch, error) {
	rec := &domain.GuestSearch{
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
	if err := appendCapped(ctx, db, rec, guestLog(), limit); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListUserSearches returns userID's history oldest-first.
func ListUserSearches(ctx context.Context, db *gorm.DB, userID string) ([]domain.SearchRecord, error) {
	var out []domain.SearchRecord
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// RecentUserQueries returns up to n of userID's latest queries, oldest-first.
func RecentUserQueries(ctx context.Context, db *gorm.DB, userID string, n int) ([]string, error) {
	var rows []domain.SearchRecord
	err := db.WithContext(ctx).
		Select("id", "query").
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.Query
	}
	return out, nil
}

// ListGuestSearches returns the guest log oldest-first.
func ListGuestSearches(ctx context.Context, db *gorm.DB) ([]domain.GuestSearch, error) {
	var out []domain.GuestSearch
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// CountGuestSearches returns the number of rows in the guest log.
func CountGuestSearches(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.GuestSearch{}).Count(&n).Error
	return n, err
}
