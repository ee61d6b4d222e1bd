package models

import (
	"time"

	"gorm.io/gorm"
)

// MatchKind separates fee-based tournaments from ad-gated free matches.
type MatchKind string

const (
	MatchKindTournament MatchKind = "tournament"
	MatchKindFree       MatchKind = "free"
)

// MatchStatus lifecycle: upcoming → live → completed, or any → archived.
type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusArchived  MatchStatus = "archived"
)

// Match is a capacity-limited competitive match. JoinedPlayers is mutated
// only by the enrollment service, inside the same ledger commit that updates
// the joining user's record.
type Match struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Kind      MatchKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	BannerURL string    `json:"banner_url,omitempty"`

	EntryFee  int64 `gorm:"not null;default:0" json:"entry_fee"` // 0 for free matches
	PrizePool int64 `gorm:"not null;default:0" json:"prize_pool"`
	Prize     int64 `gorm:"not null;default:0" json:"prize,omitempty"` // per-winner prize for free matches

	MaxPlayers    int         `gorm:"not null" json:"max_players"`
	JoinedPlayers int         `gorm:"not null;default:0" json:"joined_players"`
	Status        MatchStatus `gorm:"type:varchar(16);not null;default:'upcoming';index" json:"status"`

	// Free matches only: ad confirmations required before the join commits.
	AdsRequired int `gorm:"not null;default:0" json:"ads_required,omitempty"`

	// Populated by an operator close to start time.
	RoomID       string `json:"room_id,omitempty"`
	RoomPassword string `json:"room_password,omitempty"`

	StartTime time.Time `gorm:"not null;index" json:"start_time"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Match) TableName() string { return "matches" }

// RecordVersion satisfies ledger.Record.
func (m *Match) RecordVersion() int64 { return m.Version }

// Joinable reports whether the match still accepts enrollments at all.
// Capacity and duplicate checks are separate.
func (m *Match) Joinable() bool {
	return m.Status == MatchStatusUpcoming
}

// MatchEntry is the match-side membership row, written in the same ledger
// commit as the user's joined set and the occupancy counter. The unique
// index is a backstop for the duplicate-join check done on the user record.
type MatchEntry struct {
	ID       string    `gorm:"primaryKey" json:"id"`
	MatchID  string    `gorm:"not null;uniqueIndex:idx_match_entry" json:"match_id"`
	UserID   string    `gorm:"not null;uniqueIndex:idx_match_entry" json:"user_id"`
	Kind     MatchKind `gorm:"type:varchar(16);not null" json:"kind"`
	FeePaid  int64     `gorm:"not null;default:0" json:"fee_paid"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MatchEntry) TableName() string { return "match_entries" }
