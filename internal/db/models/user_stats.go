package models

import "time"

// UserStats is the 1:1 economy state for a user. Every mutation is a
// read-current-then-write-new cycle against this row; nothing caches it
// across requests.
type UserStats struct {
	Fid         int64 `gorm:"primaryKey" json:"fid"`
	TotalPoints int64 `gorm:"default:0;index" json:"total_points"`

	FreePicks  int `gorm:"default:0" json:"free_picks"`
	ExtraPicks int `gorm:"default:0" json:"extra_picks"` // purchased, never expires

	// Set only when both pick counters reach zero; cleared exactly when the
	// refill is applied.
	NextFreeRefillAt *time.Time `json:"next_free_refill_at,omitempty"`

	CommonCount    int `gorm:"default:0" json:"common_count"`
	RareCount      int `gorm:"default:0" json:"rare_count"`
	EpicCount      int `gorm:"default:0" json:"epic_count"`
	LegendaryCount int `gorm:"default:0" json:"legendary_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (UserStats) TableName() string { return "user_stats" }
