package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PortalUser holds the authoritative balances and counters for one player.
// The ID is the opaque user id supplied by the gateway's identity provider;
// this service never mints or verifies identities itself.
//
// All money fields are int64 in the smallest currency unit. Every mutation
// goes through the ledger store's optimistic transaction; Version is the
// compare-and-swap column.
type PortalUser struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null" json:"name"`
	Email string `json:"email,omitempty"`

	WalletBalance   int64 `gorm:"not null;default:0" json:"wallet_balance"`
	WinningsBalance int64 `gorm:"not null;default:0" json:"winnings_balance"`
	TotalMatches    int64 `gorm:"not null;default:0" json:"total_matches"`

	// Per-day counters, reset by the daily reset worker at the day boundary.
	AdsWatchedToday     int `gorm:"not null;default:0" json:"ads_watched_today"`
	EarnAdsWatchedToday int `gorm:"not null;default:0" json:"earn_ads_watched_today"`

	// Joined match ids, partitioned by match kind so paid and ad-gated
	// history never collide. Updated in the same commit as the match's
	// occupancy counter.
	JoinedTournaments pq.StringArray `gorm:"type:text[]" json:"joined_tournaments"`
	JoinedFreeMatches pq.StringArray `gorm:"type:text[]" json:"joined_free_matches"`

	Version   int64          `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PortalUser) TableName() string { return "portal_users" }

// RecordVersion satisfies ledger.Record.
func (u *PortalUser) RecordVersion() int64 { return u.Version }

// HasJoined reports whether matchID is already in the joined set for kind.
func (u *PortalUser) HasJoined(kind MatchKind, matchID string) bool {
	set := u.JoinedTournaments
	if kind == MatchKindFree {
		set = u.JoinedFreeMatches
	}
	for _, id := range set {
		if id == matchID {
			return true
		}
	}
	return false
}

// AddJoined appends matchID to the joined set for kind.
func (u *PortalUser) AddJoined(kind MatchKind, matchID string) {
	if kind == MatchKindFree {
		u.JoinedFreeMatches = append(u.JoinedFreeMatches, matchID)
		return
	}
	u.JoinedTournaments = append(u.JoinedTournaments, matchID)
}
