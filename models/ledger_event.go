package models

import "time"

// LedgerEventType names every mutation the ledger records.
type LedgerEventType string

const (
	EventUserInitialized     LedgerEventType = "user_initialized"
	EventMatchJoined         LedgerEventType = "match_joined"
	EventDepositRequested    LedgerEventType = "deposit_requested"
	EventWithdrawalRequested LedgerEventType = "withdrawal_requested"
	EventRequestApproved     LedgerEventType = "request_approved"
	EventRequestRejected     LedgerEventType = "request_rejected"
	EventAdRewardCredited    LedgerEventType = "ad_reward_credited"
	EventBalanceAdjusted     LedgerEventType = "balance_adjusted"
	EventMatchArchived       LedgerEventType = "match_archived"
)

// LedgerEvent is appended inside the same commit as the mutation it
// describes. Seq is the pull cursor for readers polling GET /events, and
// the outbox sender relays unpublished rows to Kafka when enabled. Readers
// of this table see eventually-consistent data; the transactional write
// path is the only consistency guarantee.
type LedgerEvent struct {
	Seq      int64           `gorm:"primaryKey;autoIncrement" json:"seq"`
	Type     LedgerEventType `gorm:"type:varchar(32);not null;index" json:"type"`
	UserID   string          `gorm:"index" json:"user_id,omitempty"`
	RecordID string          `gorm:"index" json:"record_id,omitempty"`
	Amount   int64           `json:"amount,omitempty"`
	Payload  string          `gorm:"type:text" json:"payload,omitempty"`

	Published bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerEvent) TableName() string { return "ledger_events" }
