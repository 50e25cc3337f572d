package payments

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/pickbox/boxdrop/internal/chain"
	"github.com/pickbox/boxdrop/internal/config"
	"github.com/pickbox/boxdrop/internal/db"
	"github.com/pickbox/boxdrop/internal/db/models"
	"gorm.io/gorm"
)

const (
	testToken    = "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"
	testReceiver = "0x1111111111111111111111111111111111111111"
	testSender   = "0x2222222222222222222222222222222222222222"
)

var testDBSeq int64

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:pay%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.AutoMigrate(&models.User{}, &models.UserStats{}, &models.Pick{}, &models.Payment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db.NewStore(database)
}

func testConfig() *config.Config {
	return &config.Config{
		TokenAddress:    testToken,
		ReceiverAddress: testReceiver,
		DailyPicksBase:  1,
		DailyPicksOG:    2,
	}
}

// transferInput builds transfer(address,uint256) calldata.
func transferInput(t *testing.T, recipient string, amount int64) string {
	t.Helper()
	addr, err := hex.DecodeString(strings.TrimPrefix(recipient, "0x"))
	if err != nil || len(addr) != 20 {
		t.Fatalf("bad recipient %q", recipient)
	}
	buf := make([]byte, 68)
	selector, _ := hex.DecodeString("a9059cbb")
	copy(buf[:4], selector)
	copy(buf[4+12:4+32], addr)
	amountBytes := big.NewInt(amount).Bytes()
	copy(buf[4+64-len(amountBytes):4+64], amountBytes)
	return "0x" + hex.EncodeToString(buf)
}

// fakeOracle serves canned transactions and receipts. The optional hooks run
// on each lookup so tests can force a particular interleaving.
type fakeOracle struct {
	txs      map[string]*chain.Transaction
	receipts map[string]*chain.Receipt

	onFetch   func()
	onReceipt func()
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		txs:      map[string]*chain.Transaction{},
		receipts: map[string]*chain.Receipt{},
	}
}

func (f *fakeOracle) TransactionByHash(_ context.Context, hash string) (*chain.Transaction, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if tx, ok := f.txs[strings.ToLower(hash)]; ok {
		return tx, nil
	}
	return nil, chain.ErrNotFound
}

func (f *fakeOracle) TransactionReceipt(_ context.Context, hash string) (*chain.Receipt, error) {
	if f.onReceipt != nil {
		f.onReceipt()
	}
	if r, ok := f.receipts[strings.ToLower(hash)]; ok {
		return r, nil
	}
	return nil, chain.ErrNotFound
}

// addPayment registers a successful transfer of amount to recipient under hash.
func (f *fakeOracle) addPayment(t *testing.T, hash, from, recipient string, amount int64, success bool) {
	t.Helper()
	status := "0x1"
	if !success {
		status = "0x0"
	}
	h := strings.ToLower(hash)
	f.txs[h] = &chain.Transaction{
		Hash:  h,
		From:  from,
		To:    testToken,
		Input: transferInput(t, recipient, amount),
	}
	f.receipts[h] = &chain.Receipt{TransactionHash: h, Status: status}
}
