package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// transferSelector is the 4-byte selector of transfer(address,uint256).
const transferSelector = "a9059cbb"

// DecodeTransfer decodes ERC-20 transfer calldata: a 4-byte selector
// followed by two 32-byte words (recipient, amount). Anything else is an
// error; the settler must only ever credit against a plain transfer.
func DecodeTransfer(input string) (*TransferCall, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(input), "0x"))
	if err != nil {
		return nil, fmt.Errorf("calldata is not hex: %w", err)
	}
	if len(raw) != 4+32+32 {
		return nil, fmt.Errorf("calldata length %d, want 68", len(raw))
	}
	if hex.EncodeToString(raw[:4]) != transferSelector {
		return nil, fmt.Errorf("selector 0x%s is not transfer(address,uint256)", hex.EncodeToString(raw[:4]))
	}

	// The address is the low 20 bytes of the first word.
	recipient := "0x" + hex.EncodeToString(raw[4+12:4+32])
	amount := new(big.Int).SetBytes(raw[4+32 : 4+64])

	return &TransferCall{Recipient: recipient, Amount: amount}, nil
}

// EqualAddress compares two hex addresses case-insensitively.
func EqualAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
