package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/pickbox/boxdrop/internal/game"
	"github.com/pickbox/boxdrop/internal/web/middleware"
)

type meResponse struct {
	Fid              int64      `json:"fid"`
	Username         string     `json:"username"`
	IsOG             bool       `json:"isOg"`
	TotalPoints      int64      `json:"totalPoints"`
	FreePicks        int        `json:"freePicksRemaining"`
	ExtraPicks       int        `json:"extraPicksBalance"`
	NextFreeRefillAt *time.Time `json:"nextFreeRefillAt"`
}

// MeHandler returns the caller's profile and current economy state, applying
// any due free-pick refill first so the displayed counters are never stale.
func MeHandler(economy *game.Economy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := middleware.FidFromContext(r.Context())

		user, _, err := economy.EnsureAccount(fid)
		if err != nil {
			log.Printf("❌ ensure account %d: %v", fid, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		stats, err := economy.RefreshIfDue(fid)
		if err != nil {
			log.Printf("❌ refresh %d: %v", fid, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, meResponse{
			Fid:              fid,
			Username:         user.Username,
			IsOG:             user.IsOG,
			TotalPoints:      stats.TotalPoints,
			FreePicks:        stats.FreePicks,
			ExtraPicks:       stats.ExtraPicks,
			NextFreeRefillAt: stats.NextFreeRefillAt,
		})
	}
}
