package chain

import "math/big"

// Transaction is the subset of an EVM transaction the settler verifies.
type Transaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Input string `json:"input"`
	Value string `json:"value"`
}

// Receipt is the subset of a transaction receipt the settler verifies.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"` // "0x1" success, "0x0" reverted
	BlockNumber     string `json:"blockNumber"`
}

// Succeeded reports whether the receipt marks the transaction as executed
// without revert.
func (r *Receipt) Succeeded() bool {
	return r.Status == "0x1"
}

// TransferCall is a decoded ERC-20 transfer(address,uint256) invocation.
type TransferCall struct {
	Recipient string
	Amount    *big.Int
}
