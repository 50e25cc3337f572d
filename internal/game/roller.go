package game

import (
	"math/rand"
	"time"
)

// Tier is a box rarity, ordered by reward magnitude.
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// Cumulative draw thresholds. These are game balance, pinned by tests;
// changing them changes the economy.
const (
	commonCeil = 0.65
	rareCeil   = 0.90
	epicCeil   = 0.98
)

// Inclusive point ranges per tier.
var pointRanges = map[Tier][2]int{
	TierCommon:    {5, 50},
	TierRare:      {50, 200},
	TierEpic:      {200, 350},
	TierLegendary: {350, 500},
}

// Roller draws rarity tiers and point values. Side-effect free; inject a
// seeded *rand.Rand for deterministic tests.
type Roller struct {
	rng *rand.Rand
}

// NewRoller creates a roller. A nil rng gets a time-seeded source.
func NewRoller(rng *rand.Rand) *Roller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Roller{rng: rng}
}

// RollTier maps a uniform draw in [0,1) to a rarity tier.
func (r *Roller) RollTier() Tier {
	draw := r.rng.Float64()
	switch {
	case draw < commonCeil:
		return TierCommon
	case draw < rareCeil:
		return TierRare
	case draw < epicCeil:
		return TierEpic
	default:
		return TierLegendary
	}
}

// RollPoints draws a uniform integer within the tier's inclusive range.
func (r *Roller) RollPoints(tier Tier) int {
	bounds, ok := pointRanges[tier]
	if !ok {
		bounds = pointRanges[TierCommon]
	}
	return bounds[0] + r.rng.Intn(bounds[1]-bounds[0]+1)
}
