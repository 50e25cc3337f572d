package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/pickbox/boxdrop/internal/chain"
	"github.com/pickbox/boxdrop/internal/config"
	"github.com/pickbox/boxdrop/internal/db"
	"github.com/pickbox/boxdrop/internal/game"
	"gorm.io/gorm"
)

// pendingTTL is how long an unpaid intent stays eligible for settlement
// before the sweep cancels it.
const pendingTTL = 10 * time.Minute

// SettleResult reports a successful (or already-complete) settlement.
type SettleResult struct {
	AlreadySettled bool   `json:"alreadyProcessed,omitempty"`
	Kind           string `json:"kind"`
	PackSize       int    `json:"packSize,omitempty"`
}

// Settler verifies claimed on-chain payments and applies their economic
// effect exactly once per transaction hash.
type Settler struct {
	store  *db.Store
	oracle chain.Oracle
	locks  *game.FidLocks

	tokenAddress    string
	receiverAddress string

	now func() time.Time
}

// NewSettler wires the settlement verifier. locks must be the instance shared
// with the economy so credits and pick consumption serialize per account.
func NewSettler(store *db.Store, oracle chain.Oracle, locks *game.FidLocks, cfg *config.Config) *Settler {
	return &Settler{
		store:           store,
		oracle:          oracle,
		locks:           locks,
		tokenAddress:    cfg.TokenAddress,
		receiverAddress: cfg.ReceiverAddress,
		now:             time.Now,
	}
}

// Settle runs the verification state machine for one claimed payment.
//
// The mutation steps (credit + intent close) only run after every check has
// passed, and the whole cycle holds the account lock, so a retry either hits
// the idempotent short-circuit or re-runs verification from scratch. It can
// never double-credit.
func (s *Settler) Settle(ctx context.Context, fid int64, kind string, packSize int, txHash string) (*SettleResult, error) {
	switch kind {
	case KindExtraPicks:
		if !IsValidPackSize(packSize) {
			return nil, fmt.Errorf("%w: %d", ErrBadPackSize, packSize)
		}
	case KindOGRank:
		packSize = 0
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadKind, kind)
	}
	txHash = strings.ToLower(strings.TrimSpace(txHash))
	if txHash == "" {
		return nil, invalidTx("missing transaction hash")
	}

	unlock := s.locks.Lock(fid)
	defer unlock()

	// Step 1: idempotency short-circuit.
	if prior, err := s.store.FindCompletedByTxHash(txHash); err == nil {
		return &SettleResult{AlreadySettled: true, Kind: prior.Kind, PackSize: prior.PackSize}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup prior settlement: %w", err)
	}

	// Step 2: stale-intent sweep, best-effort.
	if err := s.store.CancelStalePending(fid, s.now().Add(-pendingTTL)); err != nil {
		log.Printf("⚠️ stale intent sweep failed for fid %d: %v", fid, err)
	}

	// Step 3: fetch the transaction.
	tx, err := s.oracle.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrNotFoundYet
		}
		return nil, ErrNotFoundYet // oracle hiccups are retryable, not fatal
	}

	user, _, err := s.store.EnsureUser(fid)
	if err != nil {
		return nil, err
	}

	// Step 4: sender check. Binds on first use: the first settled transaction
	// records its sender, and every later one must come from the same wallet.
	if user.WalletAddress != "" && !chain.EqualAddress(user.WalletAddress, tx.From) {
		return nil, invalidTx("sender %s does not match linked wallet", tx.From)
	}

	// Step 5: contract, recipient and amount.
	if !chain.EqualAddress(tx.To, s.tokenAddress) {
		return nil, invalidTx("transaction target %s is not the payment token", tx.To)
	}
	transfer, err := chain.DecodeTransfer(tx.Input)
	if err != nil {
		return nil, invalidTx("not a token transfer: %v", err)
	}
	if !chain.EqualAddress(transfer.Recipient, s.receiverAddress) {
		return nil, invalidTx("transfer recipient %s is not the payment receiver", transfer.Recipient)
	}
	expected, err := PriceFor(kind, packSize)
	if err != nil {
		return nil, err
	}
	if transfer.Amount.Cmp(big.NewInt(expected)) != 0 {
		return nil, invalidTx("transfer amount %s, expected %d", transfer.Amount.String(), expected)
	}

	// Step 6: receipt and finality.
	receipt, err := s.oracle.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrNotFinalizedYet
		}
		return nil, ErrNotFinalizedYet
	}
	if !receipt.Succeeded() {
		return nil, invalidTx("transaction reverted on chain")
	}

	// Steps 7 and 8: credit and bookkeeping in one database transaction.
	// The unique tx_hash index is the backstop against the same hash being
	// settled from two accounts at once: whichever writer loses has its
	// whole settlement, credit included, rolled back.
	bindWallet := ""
	if user.WalletAddress == "" {
		// Binds on first use; later settlements must match (step 4).
		bindWallet = tx.From
	}
	err = s.store.ApplySettlement(&db.Settlement{
		Fid:      fid,
		Kind:     kind,
		PackSize: packSize,
		Amount:   expected,
		TxHash:   txHash,
		Wallet:   bindWallet,
	})
	if errors.Is(err, db.ErrDuplicateSettlement) {
		return &SettleResult{AlreadySettled: true, Kind: kind, PackSize: packSize}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("apply settlement: %w", err)
	}

	log.Printf("💰 settled %s for fid %d (tx %s)", kind, fid, txHash)
	return &SettleResult{Kind: kind, PackSize: packSize}, nil
}
