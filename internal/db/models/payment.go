package models

import "time"

// Payment kinds and statuses.
const (
	KindExtraPicks = "extra_picks"
	KindOGRank     = "og_rank"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment is a payment intent: the server-issued record of an expected
// on-chain transfer, created pending and closed by settlement.
//
// TxHash stays NULL while pending and carries a unique index once set. This
// is the idempotency anchor: at most one completed row can ever exist per
// transaction hash, so a duplicate settle collapses into a constraint hit
// even if two requests race past the in-process lock.
type Payment struct {
	ID              string     `gorm:"primaryKey" json:"id"` // UUID
	Fid             int64      `gorm:"index" json:"fid"`
	Kind            string     `gorm:"index" json:"kind"` // "extra_picks" | "og_rank"
	PackSize        int        `json:"pack_size,omitempty"`
	AmountBaseUnits int64      `json:"amount_base_units"` // 6-decimal USDC units
	Status          string     `gorm:"index;default:'pending'" json:"status"`
	TxHash          *string    `gorm:"uniqueIndex" json:"tx_hash,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
