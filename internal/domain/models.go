// Package domain defines the persistence models for identities, favorites,
// and search history. These types are mapped with GORM and form the core
// data layer of the estate search backend.
package domain

import "time"

// User is a registered identity. Email is unique and stored lower-cased;
// the password is only ever persisted as a bcrypt hash.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name returned as "username" on login.
//   - Email: login handle; unique index ux_users_email.
//   - PasswordHash: salted bcrypt hash, never serialized.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"       gorm:"type:varchar(100);not null"`
	Email        string    `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// SearchRecord is one entry of a user's search history. IDs are
// monotonically increasing, so ordering by ID is insertion order and the
// retention trim keeps the highest IDs.
//
// Fields:
//   - ID: autoincrement primary key.
//   - UserID: owner; part of idx_history_user.
//   - Query: normalized free text or derived filter string.
//   - CreatedAt: when the search was recorded.
//   - User: FK association; history is removed with its owner.
type SearchRecord struct {
	ID        uint64    `json:"-"         gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"-"         gorm:"type:char(36);not null;index:idx_history_user,priority:1"`
	Query     string    `json:"query"     gorm:"type:text;not null"`
	CreatedAt time.Time `json:"timestamp" gorm:"not null"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SearchRecord.
func (SearchRecord) TableName() string { return "search_history" }

// GuestSearch is an anonymous search entry in the global, capped guest log.
type GuestSearch struct {
	ID        uint64    `json:"-"         gorm:"primaryKey;autoIncrement"`
	Query     string    `json:"query"     gorm:"type:text;not null"`
	CreatedAt time.Time `json:"timestamp" gorm:"not null;index"`
}

// TableName returns the database table name for GuestSearch.
func (GuestSearch) TableName() string { return "guest_searches" }

// Favorite marks a property as saved by a user. A user can favorite a
// property at most once (enforced by ux_favorites_user_property).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner.
//   - PropertyID: opaque listing id issued by the search engine.
//   - AddedAt: when the favorite was created.
//   - User: FK association; favorites are removed with their owner.
type Favorite struct {
	ID         string    `json:"-"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"-"          gorm:"type:char(36);not null;uniqueIndex:ux_favorites_user_property,priority:1"`
	PropertyID string    `json:"propertyId" gorm:"type:varchar(128);not null;uniqueIndex:ux_favorites_user_property,priority:2"`
	AddedAt    time.Time `json:"addedAt"    gorm:"not null"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }
