package models

import "time"

type FundRequestKind string

const (
	FundRequestDeposit    FundRequestKind = "deposit"
	FundRequestWithdrawal FundRequestKind = "withdrawal"
)

// FundRequestStatus is monotonic: pending → approved or pending → rejected,
// set exactly once by an operator. Terminal states never change again.
type FundRequestStatus string

const (
	FundRequestPending  FundRequestStatus = "pending"
	FundRequestApproved FundRequestStatus = "approved"
	FundRequestRejected FundRequestStatus = "rejected"
)

// FundRequest is a deposit or withdrawal instruction awaiting privileged
// resolution. For withdrawals the amount is deducted from the user's
// winnings balance in the same commit that creates the row, so the funds
// are locked the instant the request exists.
type FundRequest struct {
	ID     string            `gorm:"primaryKey" json:"id"`
	UserID string            `gorm:"not null;index" json:"user_id"`
	Kind   FundRequestKind   `gorm:"type:varchar(16);not null;index" json:"kind"`
	Amount int64             `gorm:"not null" json:"amount"`
	Method string            `gorm:"not null" json:"method"`
	Status FundRequestStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	// Reference is the payer's transaction id for deposits; Account is the
	// payout destination for withdrawals.
	Reference string `json:"reference,omitempty"`
	Account   string `json:"account,omitempty"`

	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FundRequest) TableName() string { return "fund_requests" }

// RecordVersion satisfies ledger.Record.
func (r *FundRequest) RecordVersion() int64 { return r.Version }
