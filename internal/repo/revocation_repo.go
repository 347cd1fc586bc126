// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the session token deny-list used by
// logout.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-estate-backend/internal/domain"
)

// RevokeToken adds jti to the deny-list until expiresAt. Returns ErrDuplicate
// if the token was already revoked.
func RevokeToken(ctx context.Context, db *gorm.DB, jti, userID string, expiresAt time.Time) error {
	if strings.TrimSpace(jti) == "" {
		return errors.New("empty token id")
	}
	rec := &domain.RevokedToken{
		ID:        jti,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// IsTokenRevoked reports whether jti is on the deny-list.
func IsTokenRevoked(ctx context.Context, db *gorm.DB, jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.RevokedToken{}).
		Where("id = ?", jti).
		Count(&n).Error
	return n > 0, err
}

// PurgeExpiredRevocations deletes deny-list rows whose token has expired.
func PurgeExpiredRevocations(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.RevokedToken{})
	return res.RowsAffected, res.Error
}
