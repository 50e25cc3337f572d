package models

import "time"

// User is an account keyed by the caller-supplied Farcaster id. Identity
// resolution happens upstream; we trust the fid we are handed.
type User struct {
	Fid           int64     `gorm:"primaryKey" json:"fid"`
	Username      string    `json:"username"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	IsOG          bool      `gorm:"default:false" json:"is_og"` // permanent once set
	WalletAddress string    `gorm:"index" json:"-"`             // lowercased, bound on first settlement
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
