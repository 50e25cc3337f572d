package models

import "time"

// Pick source values.
const (
	PickSourceFree  = "free"
	PickSourceExtra = "extra"
)

// Pick is one box-opening event. Append-only; never updated or deleted.
type Pick struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Fid       int64     `gorm:"index" json:"fid"`
	Tier      string    `gorm:"index" json:"tier"`
	Points    int       `json:"points"`
	Source    string    `json:"source"` // "free" | "extra"
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
