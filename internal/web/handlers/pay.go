package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/pickbox/boxdrop/internal/payments"
	"github.com/pickbox/boxdrop/internal/web/middleware"
)

type payExtraRequest struct {
	PackSize int `json:"packSize"`
}

type settleRequest struct {
	Kind     string `json:"kind"`
	PackSize int    `json:"packSize,omitempty"`
	TxHash   string `json:"txHash"`
}

// PayExtraHandler creates a pending intent for an extra-picks pack.
func PayExtraHandler(intents *payments.Intents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := middleware.FidFromContext(r.Context())

		var req payExtraRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		desc, err := intents.Create(fid, payments.KindExtraPicks, req.PackSize)
		if err != nil {
			writeIntentError(w, fid, err)
			return
		}
		writeJSON(w, http.StatusOK, desc)
	}
}

// PayOGHandler creates a pending intent for the one-time OG upgrade.
func PayOGHandler(intents *payments.Intents) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := middleware.FidFromContext(r.Context())

		desc, err := intents.Create(fid, payments.KindOGRank, 0)
		if err != nil {
			writeIntentError(w, fid, err)
			return
		}
		writeJSON(w, http.StatusOK, desc)
	}
}

func writeIntentError(w http.ResponseWriter, fid int64, err error) {
	switch {
	case errors.Is(err, payments.ErrAlreadyOG):
		writeError(w, http.StatusConflict, "already og")
	case errors.Is(err, payments.ErrPendingExists):
		writeError(w, http.StatusConflict, "pending purchase exists")
	case errors.Is(err, payments.ErrBadKind), errors.Is(err, payments.ErrBadPackSize):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrBadAddress):
		log.Printf("❌ intent for fid %d: %v", fid, err)
		writeError(w, http.StatusInternalServerError, "payments unavailable")
	default:
		log.Printf("❌ intent for fid %d: %v", fid, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// SettleHandler verifies a claimed on-chain payment and credits the account.
// Responses are never cacheable: a stale "ok" replayed by a cache would look
// like a double credit to the client.
func SettleHandler(settler *payments.Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fid := middleware.FidFromContext(r.Context())
		w.Header().Set("Cache-Control", "no-store")

		var req settleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TxHash == "" {
			writeError(w, http.StatusBadRequest, "txHash is required")
			return
		}

		result, err := settler.Settle(r.Context(), fid, req.Kind, req.PackSize, req.TxHash)
		if err != nil {
			var invalid *payments.InvalidTxError
			switch {
			case payments.IsRetryable(err):
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"error": err.Error(),
					"hint":  "wait a few seconds and retry",
				})
			case errors.As(err, &invalid):
				writeError(w, http.StatusBadRequest, invalid.Reason)
			case errors.Is(err, payments.ErrBadKind), errors.Is(err, payments.ErrBadPackSize):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				log.Printf("❌ settle for fid %d: %v", fid, err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":               true,
			"kind":             result.Kind,
			"packSize":         result.PackSize,
			"alreadyProcessed": result.AlreadySettled,
		})
	}
}
