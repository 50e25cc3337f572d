package game

import (
	"fmt"
	"time"

	"github.com/pickbox/boxdrop/internal/db"
	"github.com/pickbox/boxdrop/internal/db/models"
)

const refillInterval = 24 * time.Hour

// NoPicksError reports that both pick counters are empty. RefillAt is always
// populated: either the existing timer or one the call just started.
type NoPicksError struct {
	RefillAt time.Time
}

func (e *NoPicksError) Error() string {
	return fmt.Sprintf("no picks left, next free refill at %s", e.RefillAt.Format(time.RFC3339))
}

// RewardResult is what one consumed pick yields.
type RewardResult struct {
	Tier             Tier       `json:"rarity"`
	Points           int        `json:"points"`
	Source           string     `json:"source"`
	TotalPoints      int64      `json:"totalPoints"`
	FreePicks        int        `json:"freePicksRemaining"`
	ExtraPicks       int        `json:"extraPicksBalance"`
	NextFreeRefillAt *time.Time `json:"nextFreeRefillAt,omitempty"`
}

// Economy orchestrates account creation, lazy free-pick refills and pick
// consumption over the ledger store.
type Economy struct {
	store  *db.Store
	roller *Roller
	locks  *FidLocks

	dailyBase int
	dailyOG   int

	now func() time.Time // injectable for tests
}

// NewEconomy wires the pick economy. locks must be the same instance handed
// to the settler so credits and consumption serialize against each other.
func NewEconomy(store *db.Store, roller *Roller, locks *FidLocks, dailyBase, dailyOG int) *Economy {
	return &Economy{
		store:     store,
		roller:    roller,
		locks:     locks,
		dailyBase: dailyBase,
		dailyOG:   dailyOG,
		now:       time.Now,
	}
}

// EnsureAccount creates the account and zeroed economy state on first
// contact. Idempotent.
func (e *Economy) EnsureAccount(fid int64) (*models.User, *models.UserStats, error) {
	return e.store.EnsureUser(fid)
}

// RefreshIfDue applies a pending free-pick refill and returns the current
// state. The check is conservative: the refill only fires when a timer
// exists, has elapsed, and free picks are exactly zero. A user still holding
// free picks is never topped up early.
func (e *Economy) RefreshIfDue(fid int64) (*models.UserStats, error) {
	unlock := e.locks.Lock(fid)
	defer unlock()
	return e.refreshLocked(fid)
}

func (e *Economy) refreshLocked(fid int64) (*models.UserStats, error) {
	stats, err := e.store.GetStats(fid)
	if err != nil {
		return nil, err
	}

	if stats.NextFreeRefillAt == nil || stats.FreePicks != 0 {
		return stats, nil
	}
	if stats.NextFreeRefillAt.After(e.now()) {
		return stats, nil
	}

	user, err := e.store.GetUser(fid)
	if err != nil {
		return nil, err
	}

	stats.FreePicks = e.dailyAllotment(user.IsOG)
	stats.NextFreeRefillAt = nil
	if err := e.store.SaveStats(stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ConsumePick spends one pick (free before extra), rolls the reward and
// persists the whole cycle under the account's lock.
func (e *Economy) ConsumePick(fid int64) (*RewardResult, error) {
	unlock := e.locks.Lock(fid)
	defer unlock()

	stats, err := e.refreshLocked(fid)
	if err != nil {
		return nil, err
	}

	if stats.FreePicks <= 0 && stats.ExtraPicks <= 0 {
		if stats.NextFreeRefillAt == nil {
			refillAt := e.now().Add(refillInterval)
			stats.NextFreeRefillAt = &refillAt
			if err := e.store.SaveStats(stats); err != nil {
				return nil, err
			}
		}
		return nil, &NoPicksError{RefillAt: *stats.NextFreeRefillAt}
	}

	source := models.PickSourceFree
	if stats.FreePicks > 0 {
		stats.FreePicks--
	} else {
		source = models.PickSourceExtra
		stats.ExtraPicks--
	}

	tier := e.roller.RollTier()
	points := e.roller.RollPoints(tier)
	stats.TotalPoints += int64(points)
	bumpTierCount(stats, tier)

	// Start the refill timer the moment the account runs dry.
	if stats.FreePicks == 0 && stats.ExtraPicks == 0 {
		refillAt := e.now().Add(refillInterval)
		stats.NextFreeRefillAt = &refillAt
	}

	if err := e.store.SaveStats(stats); err != nil {
		return nil, err
	}
	if err := e.store.AppendPick(&models.Pick{
		Fid:    fid,
		Tier:   string(tier),
		Points: points,
		Source: source,
	}); err != nil {
		return nil, err
	}

	return &RewardResult{
		Tier:             tier,
		Points:           points,
		Source:           source,
		TotalPoints:      stats.TotalPoints,
		FreePicks:        stats.FreePicks,
		ExtraPicks:       stats.ExtraPicks,
		NextFreeRefillAt: stats.NextFreeRefillAt,
	}, nil
}

func (e *Economy) dailyAllotment(isOG bool) int {
	if isOG {
		return e.dailyOG
	}
	return e.dailyBase
}

func bumpTierCount(stats *models.UserStats, tier Tier) {
	switch tier {
	case TierCommon:
		stats.CommonCount++
	case TierRare:
		stats.RareCount++
	case TierEpic:
		stats.EpicCount++
	case TierLegendary:
		stats.LegendaryCount++
	}
}
