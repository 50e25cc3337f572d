package payments

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pickbox/boxdrop/internal/config"
	"github.com/pickbox/boxdrop/internal/db"
	"github.com/pickbox/boxdrop/internal/db/models"
)

// IntentDescriptor is what the client needs to perform the transfer.
type IntentDescriptor struct {
	PaymentID        string `json:"paymentId"`
	Token            string `json:"token"`
	Amount           int64  `json:"amount"` // USDC base units
	RecipientAddress string `json:"recipientAddress"`
	PackSize         int    `json:"packSize,omitempty"`
}

// Intents creates pending payment records before the client pays, so every
// transfer can be correlated with a known-pending intent.
type Intents struct {
	store           *db.Store
	tokenAddress    string
	receiverAddress string
}

// NewIntents wires the intent manager.
func NewIntents(store *db.Store, cfg *config.Config) *Intents {
	return &Intents{
		store:           store,
		tokenAddress:    cfg.TokenAddress,
		receiverAddress: cfg.ReceiverAddress,
	}
}

// Create validates the purchase and persists a pending intent. For og_rank
// it conflicts when the account is already OG or a pending OG intent exists,
// so repeated taps never pile up duplicate intents.
func (m *Intents) Create(fid int64, kind string, packSize int) (*IntentDescriptor, error) {
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

	// Refuse to mint an unsettleable intent.
	if !config.IsHexAddress(m.tokenAddress) || !config.IsHexAddress(m.receiverAddress) {
		return nil, ErrBadAddress
	}

	amount, err := PriceFor(kind, packSize)
	if err != nil {
		return nil, err
	}

	if kind == KindOGRank {
		user, err := m.store.GetUser(fid)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		if user.IsOG {
			return nil, ErrAlreadyOG
		}
		pending, err := m.store.HasPendingIntent(fid, KindOGRank)
		if err != nil {
			return nil, fmt.Errorf("check pending: %w", err)
		}
		if pending {
			return nil, ErrPendingExists
		}
	}

	payment := &models.Payment{
		ID:              uuid.New().String(),
		Fid:             fid,
		Kind:            kind,
		PackSize:        packSize,
		AmountBaseUnits: amount,
		Status:          models.StatusPending,
	}
	if err := m.store.CreatePayment(payment); err != nil {
		return nil, fmt.Errorf("persist intent: %w", err)
	}

	return &IntentDescriptor{
		PaymentID:        payment.ID,
		Token:            m.tokenAddress,
		Amount:           amount,
		RecipientAddress: m.receiverAddress,
		PackSize:         packSize,
	}, nil
}
