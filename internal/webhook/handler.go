// Package webhook receives payment-completion callbacks from the social
// payment provider. Every payload is authenticated with an HMAC-SHA256
// signature over the raw body before any processing happens.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pickbox/boxdrop/internal/payments"
	"github.com/pickbox/boxdrop/internal/util"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// envelope is the tagged union over known callback kinds. Unknown types land
// in the explicit unhandled branch instead of being poked at untyped.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type paymentCompleted struct {
	Fid      int64  `json:"fid"`
	Kind     string `json:"kind"`
	PackSize int    `json:"packSize,omitempty"`
	TxHash   string `json:"txHash"`
}

// Handler verifies the signature and dispatches the event. Credits flow
// through the same settler as the client-driven settle path, so the economy
// has exactly one write target and replayed callbacks collapse into the
// idempotent short-circuit.
func Handler(secret string, settler *payments.Settler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, `{"error": "unreadable body"}`, http.StatusBadRequest)
			return
		}

		if !VerifySignature(secret, body, r.Header.Get(SignatureHeader)) {
			http.Error(w, `{"error": "invalid signature"}`, http.StatusUnauthorized)
			return
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			http.Error(w, `{"error": "invalid payload"}`, http.StatusBadRequest)
			return
		}

		switch env.Type {
		case "payment.completed":
			var evt paymentCompleted
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				http.Error(w, `{"error": "invalid event data"}`, http.StatusBadRequest)
				return
			}
			result, err := settler.Settle(r.Context(), evt.Fid, evt.Kind, evt.PackSize, evt.TxHash)
			if err != nil {
				if payments.IsRetryable(err) {
					// 503 tells the provider to redeliver later.
					http.Error(w, `{"error": "not settled yet"}`, http.StatusServiceUnavailable)
					return
				}
				log.Printf("❌ webhook settle fid %d: %v", evt.Fid, err)
				http.Error(w, `{"error": "settlement rejected"}`, http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":               true,
				"alreadyProcessed": result.AlreadySettled,
			})

		default:
			// Acknowledge unknown kinds so the provider stops redelivering.
			log.Printf("⚠️ webhook: unhandled event type %q: %s", env.Type, util.TruncateBytes(body))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "unhandled": true})
		}
	}
}

// VerifySignature checks the hex HMAC-SHA256 of body in constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
