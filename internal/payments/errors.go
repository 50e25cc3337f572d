package payments

import (
	"errors"
	"fmt"
)

// Purchase kinds, mirrored from the payment model.
const (
	KindExtraPicks = "extra_picks"
	KindOGRank     = "og_rank"
)

// Intent creation failures.
var (
	ErrBadKind       = errors.New("unknown purchase kind")
	ErrBadPackSize   = errors.New("invalid pack size")
	ErrBadAddress    = errors.New("payment addresses are not configured")
	ErrAlreadyOG     = errors.New("account already has og rank")
	ErrPendingExists = errors.New("a pending og purchase already exists")
)

// Settlement failures. NotFoundYet and NotFinalizedYet are retryable; the
// caller should poll again shortly. An InvalidTxError is terminal: the
// transaction exists but does not pay for this purchase, and no credit is
// ever applied for it.
var (
	ErrNotFoundYet     = errors.New("transaction not found yet")
	ErrNotFinalizedYet = errors.New("transaction not successful yet")
)

// InvalidTxError carries the specific verification mismatch.
type InvalidTxError struct {
	Reason string
}

func (e *InvalidTxError) Error() string {
	return fmt.Sprintf("invalid transaction: %s", e.Reason)
}

func invalidTx(format string, args ...interface{}) error {
	return &InvalidTxError{Reason: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether the settlement error means "poll again".
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNotFoundYet) || errors.Is(err, ErrNotFinalizedYet)
}
