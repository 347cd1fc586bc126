package domain

import "time"

// RevokedToken is a deny-list entry for a session token that was logged out
// before its natural expiry. Rows are keyed by the token's jti and may be
// purged once ExpiresAt has passed, since the token would be rejected anyway.
type RevokedToken struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (RevokedToken) TableName() string { return "revoked_tokens" }
