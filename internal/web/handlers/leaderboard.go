package handlers

import (
	"log"
	"net/http"

	"github.com/pickbox/boxdrop/internal/db"
	"github.com/pickbox/boxdrop/internal/web/middleware"
)

const leaderboardSize = 50

// LeaderboardHandler returns the top accounts by points.
func LeaderboardHandler(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := store.TopN(leaderboardSize)
		if err != nil {
			log.Printf("❌ leaderboard: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// MyRankHandler returns the caller's rank. An account that never opened a
// box gets a null rank, not an error.
func MyRankHandler(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := middleware.FidFromContext(r.Context())

		row, err := store.RankOf(fid)
		if err != nil {
			log.Printf("❌ rank of %d: %v", fid, err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}
