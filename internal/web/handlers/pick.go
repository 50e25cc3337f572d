package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/pickbox/boxdrop/internal/game"
	"github.com/pickbox/boxdrop/internal/web/middleware"
)

// PickHandler consumes one pick and returns the rolled reward.
func PickHandler(economy *game.Economy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := middleware.FidFromContext(r.Context())

		if _, _, err := economy.EnsureAccount(fid); err != nil {
			log.Printf("❌ ensure account %d: %v", fid, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		result, err := economy.ConsumePick(fid)
		if err != nil {
			var noPicks *game.NoPicksError
			if errors.As(err, &noPicks) {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"error":            "no_picks_left",
					"nextFreeRefillAt": noPicks.RefillAt,
				})
				return
			}
			log.Printf("❌ consume pick %d: %v", fid, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
