package domain

import "time"

// LookupRecord is the persisted audit row for one dispatched lookup. It
// records what was asked and how it went, never the card data itself, which
// always comes fresh from the upstream API.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: chat-platform author id; indexed for per-user stats.
//   - Command: dispatched command ("lookup", "batch", "random", "rules").
//   - Query: the raw query text.
//   - CardName: resolved display name, empty on failure.
//   - Outcome: "resolved", "fallback", a batch tally ("resolved:2/3"), or an
//     error tag ("error:not_found", ...).
//   - CreatedAt: timestamp managed by GORM.
type LookupRecord struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_lookups"`
	Command   string    `json:"command"    gorm:"type:varchar(16);not null;index"`
	Query     string    `json:"query"      gorm:"type:text;not null"`
	CardName  string    `json:"card_name"  gorm:"type:varchar(255)"`
	Outcome   string    `json:"outcome"    gorm:"type:varchar(32);not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for LookupRecord.
func (LookupRecord) TableName() string { return "lookups" }
