package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pickbox/boxdrop/internal/db/models"
	"gorm.io/gorm"
)

// ErrDuplicateSettlement means the transaction hash already backs a completed
// payment. Callers treat it as "already settled", not as a failure.
var ErrDuplicateSettlement = errors.New("transaction hash already settled")

// isUniqueConstraint reports whether err is a unique-index violation.
func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Store owns every read and write against the ledger tables. Components hold
// a *Store injected at startup; nothing caches rows across requests because
// correctness depends on the persisted value, not an in-memory mirror.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over an initialized database.
func NewStore(database *gorm.DB) *Store {
	return &Store{db: database}
}

// EnsureUser creates the user and its zeroed stats row on first contact.
// Idempotent: an existing account is returned untouched.
func (s *Store) EnsureUser(fid int64) (*models.User, *models.UserStats, error) {
	var user models.User
	err := s.db.First(&user, "fid = ?", fid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{Fid: fid}
		if err := s.db.Create(&user).Error; err != nil {
			// Lost a first-contact race; the row exists now, so read it.
			if !isUniqueConstraint(err) {
				return nil, nil, fmt.Errorf("create user %d: %w", fid, err)
			}
			if err := s.db.First(&user, "fid = ?", fid).Error; err != nil {
				return nil, nil, fmt.Errorf("load user %d: %w", fid, err)
			}
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("load user %d: %w", fid, err)
	}

	var stats models.UserStats
	err = s.db.First(&stats, "fid = ?", fid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserStats{Fid: fid}
		if err := s.db.Create(&stats).Error; err != nil {
			if !isUniqueConstraint(err) {
				return nil, nil, fmt.Errorf("create stats %d: %w", fid, err)
			}
			if err := s.db.First(&stats, "fid = ?", fid).Error; err != nil {
				return nil, nil, fmt.Errorf("load stats %d: %w", fid, err)
			}
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("load stats %d: %w", fid, err)
	}

	return &user, &stats, nil
}

// GetUser loads a user or returns gorm.ErrRecordNotFound.
func (s *Store) GetUser(fid int64) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "fid = ?", fid).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetStats loads the economy row or returns gorm.ErrRecordNotFound.
func (s *Store) GetStats(fid int64) (*models.UserStats, error) {
	var stats models.UserStats
	if err := s.db.First(&stats, "fid = ?", fid).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveStats writes back a full economy row.
func (s *Store) SaveStats(stats *models.UserStats) error {
	// Save skips nil pointer columns, so clear NextFreeRefillAt explicitly.
	return s.db.Model(&models.UserStats{}).Where("fid = ?", stats.Fid).
		Updates(map[string]interface{}{
			"total_points":        stats.TotalPoints,
			"free_picks":          stats.FreePicks,
			"extra_picks":         stats.ExtraPicks,
			"next_free_refill_at": stats.NextFreeRefillAt,
			"common_count":        stats.CommonCount,
			"rare_count":          stats.RareCount,
			"epic_count":          stats.EpicCount,
			"legendary_count":     stats.LegendaryCount,
		}).Error
}

// SaveUser writes back profile fields.
func (s *Store) SaveUser(user *models.User) error {
	return s.db.Save(user).Error
}

// SetOG flips the permanent OG flag. Re-setting an already-OG account is a
// harmless no-op.
func (s *Store) SetOG(fid int64) error {
	return s.db.Model(&models.User{}).Where("fid = ?", fid).Update("is_og", true).Error
}

// SetWallet records the sender address bound to this account, lowercased.
func (s *Store) SetWallet(fid int64, addr string) error {
	return s.db.Model(&models.User{}).Where("fid = ?", fid).
		Update("wallet_address", strings.ToLower(addr)).Error
}

// AppendPick records one box-opening event.
func (s *Store) AppendPick(pick *models.Pick) error {
	return s.db.Create(pick).Error
}

// CreatePayment persists a new pending intent.
func (s *Store) CreatePayment(p *models.Payment) error {
	return s.db.Create(p).Error
}

// FindCompletedByTxHash returns the completed payment settled against this
// transaction hash, or gorm.ErrRecordNotFound.
func (s *Store) FindCompletedByTxHash(txHash string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.First(&p, "tx_hash = ? AND status = ?",
		strings.ToLower(txHash), models.StatusCompleted).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPendingIntent returns the oldest pending intent matching the purchase,
// or gorm.ErrRecordNotFound. For og_rank the pack size is ignored.
func (s *Store) FindPendingIntent(fid int64, kind string, packSize int) (*models.Payment, error) {
	var p models.Payment
	q := s.db.Where("fid = ? AND kind = ? AND status = ?", fid, kind, models.StatusPending)
	if kind == models.KindExtraPicks {
		q = q.Where("pack_size = ?", packSize)
	}
	if err := q.Order("created_at asc").First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// HasPendingIntent reports whether any pending intent of this kind exists.
func (s *Store) HasPendingIntent(fid int64, kind string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Payment{}).
		Where("fid = ? AND kind = ? AND status = ?", fid, kind, models.StatusPending).
		Count(&count).Error
	return count > 0, err
}

// CompletePayment marks the intent completed and attaches the transaction
// hash. The unique index on tx_hash rejects a second completion for the same
// hash at the database level.
func (s *Store) CompletePayment(p *models.Payment, txHash string) error {
	h := strings.ToLower(txHash)
	return s.db.Model(&models.Payment{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"status":  models.StatusCompleted,
			"tx_hash": h,
		}).Error
}

// CancelStalePending cancels this account's pending intents older than
// olderThan. Best-effort housekeeping before settlement.
func (s *Store) CancelStalePending(fid int64, olderThan time.Time) error {
	return s.db.Model(&models.Payment{}).
		Where("fid = ? AND status = ? AND created_at < ?", fid, models.StatusPending, olderThan).
		Update("status", models.StatusCancelled).Error
}

// Settlement bundles everything a verified payment changes: the credit, the
// optional wallet binding, and the payment row that records the transaction
// hash.
type Settlement struct {
	Fid      int64
	Kind     string
	PackSize int
	Amount   int64
	TxHash   string
	Wallet   string // bound to the user when non-empty
}

// ApplySettlement records the settlement in a single transaction. The payment
// row carrying the unique tx_hash is written first, so a hash that was already
// settled aborts the transaction before any credit lands, regardless of which
// account submitted it. Returns ErrDuplicateSettlement in that case.
func (s *Store) ApplySettlement(apply *Settlement) error {
	h := strings.ToLower(apply.TxHash)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending models.Payment
		q := tx.Where("fid = ? AND kind = ? AND status = ?",
			apply.Fid, apply.Kind, models.StatusPending)
		if apply.Kind == models.KindExtraPicks {
			q = q.Where("pack_size = ?", apply.PackSize)
		}
		err := q.Order("created_at asc").First(&pending).Error
		switch {
		case err == nil:
			if err := tx.Model(&models.Payment{}).Where("id = ?", pending.ID).
				Updates(map[string]interface{}{
					"status":  models.StatusCompleted,
					"tx_hash": h,
				}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No open intent, e.g. a webhook delivery. Record the
			// settlement directly.
			row := &models.Payment{
				ID:              uuid.New().String(),
				Fid:             apply.Fid,
				Kind:            apply.Kind,
				PackSize:        apply.PackSize,
				AmountBaseUnits: apply.Amount,
				Status:          models.StatusCompleted,
				TxHash:          &h,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if apply.Wallet != "" {
			if err := tx.Model(&models.User{}).Where("fid = ?", apply.Fid).
				Update("wallet_address", strings.ToLower(apply.Wallet)).Error; err != nil {
				return err
			}
		}

		switch apply.Kind {
		case models.KindExtraPicks:
			if err := tx.Model(&models.UserStats{}).Where("fid = ?", apply.Fid).
				Update("extra_picks", gorm.Expr("extra_picks + ?", apply.PackSize)).Error; err != nil {
				return err
			}
		case models.KindOGRank:
			if err := tx.Model(&models.User{}).Where("fid = ?", apply.Fid).
				Update("is_og", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueConstraint(err) {
		return ErrDuplicateSettlement
	}
	return err
}

// LeaderboardRow is one /leaderboard entry.
type LeaderboardRow struct {
	Fid            int64  `json:"fid"`
	Username       string `json:"username"`
	TotalPoints    int64  `json:"total_points"`
	CommonCount    int    `json:"common_count"`
	RareCount      int    `json:"rare_count"`
	EpicCount      int    `json:"epic_count"`
	LegendaryCount int    `json:"legendary_count"`
}

// TopN returns the top n accounts by points. Ties break by fid ascending so
// the ordering is deterministic across reads.
func (s *Store) TopN(n int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := s.db.Model(&models.UserStats{}).
		Select(`user_stats.fid, users.username, user_stats.total_points,
			user_stats.common_count, user_stats.rare_count,
			user_stats.epic_count, user_stats.legendary_count`).
		Joins("LEFT JOIN users ON users.fid = user_stats.fid").
		Order("user_stats.total_points DESC, user_stats.fid ASC").
		Limit(n).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RankRow is the /my-rank payload.
type RankRow struct {
	Fid            int64  `json:"fid"`
	Username       string `json:"username"`
	IsOG           bool   `json:"is_og"`
	Rank           *int64 `json:"rank"` // nil when the account has no stats row
	TotalPoints    int64  `json:"total_points"`
	CommonCount    int    `json:"common_count"`
	RareCount      int    `json:"rare_count"`
	EpicCount      int    `json:"epic_count"`
	LegendaryCount int    `json:"legendary_count"`
}

// RankOf computes rank as (accounts with strictly greater points) + 1. An
// account without a stats row gets a nil rank and zero counts, not an error.
func (s *Store) RankOf(fid int64) (*RankRow, error) {
	row := &RankRow{Fid: fid}

	var user models.User
	if err := s.db.First(&user, "fid = ?", fid).Error; err == nil {
		row.Username = user.Username
		row.IsOG = user.IsOG
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var stats models.UserStats
	err := s.db.First(&stats, "fid = ?", fid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, nil
	}
	if err != nil {
		return nil, err
	}

	var above int64
	if err := s.db.Model(&models.UserStats{}).
		Where("total_points > ?", stats.TotalPoints).
		Count(&above).Error; err != nil {
		return nil, err
	}

	rank := above + 1
	row.Rank = &rank
	row.TotalPoints = stats.TotalPoints
	row.CommonCount = stats.CommonCount
	row.RareCount = stats.RareCount
	row.EpicCount = stats.EpicCount
	row.LegendaryCount = stats.LegendaryCount
	return row, nil
}
