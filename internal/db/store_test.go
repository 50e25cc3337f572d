package db

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pickbox/boxdrop/internal/db/models"
	"gorm.io/gorm"
)

var testDBSeq int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:store%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.AutoMigrate(&models.User{}, &models.UserStats{}, &models.Pick{}, &models.Payment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStore(database)
}

func TestEnsureUserCreatesZeroedState(t *testing.T) {
	store := newTestStore(t)

	user, stats, err := store.EnsureUser(42)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if user.Fid != 42 || user.IsOG {
		t.Fatalf("unexpected user: %+v", user)
	}
	if stats.TotalPoints != 0 || stats.FreePicks != 0 || stats.ExtraPicks != 0 || stats.NextFreeRefillAt != nil {
		t.Fatalf("stats not zeroed: %+v", stats)
	}
}

func TestEnsureUserSurvivesFirstContactRace(t *testing.T) {
	store := newTestStore(t)

	// Several requests from a brand-new account land at once. Every one
	// must come back with the same rows, never a primary-key error.
	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.EnsureUser(7); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ensure under contention: %v", err)
	}

	var count int64
	if err := store.db.Model(&models.User{}).Where("fid = ?", 7).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("%d user rows for fid 7, want 1", count)
	}
}

func TestApplySettlementRejectsReusedTxHash(t *testing.T) {
	store := newTestStore(t)
	for _, fid := range []int64{1, 2} {
		if _, _, err := store.EnsureUser(fid); err != nil {
			t.Fatalf("ensure fid %d: %v", fid, err)
		}
	}
	const hash = "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"

	err := store.ApplySettlement(&Settlement{
		Fid: 1, Kind: models.KindExtraPicks, PackSize: 5, Amount: 2000000, TxHash: hash,
	})
	if err != nil {
		t.Fatalf("first settlement: %v", err)
	}

	// A different account reusing the hash must fail atomically: no
	// payment row and, critically, no credit.
	err = store.ApplySettlement(&Settlement{
		Fid: 2, Kind: models.KindExtraPicks, PackSize: 5, Amount: 2000000, TxHash: hash,
	})
	if !errors.Is(err, ErrDuplicateSettlement) {
		t.Fatalf("reused hash: got %v, want ErrDuplicateSettlement", err)
	}

	stats1, _ := store.GetStats(1)
	stats2, _ := store.GetStats(2)
	if stats1.ExtraPicks != 5 || stats2.ExtraPicks != 0 {
		t.Fatalf("extra picks fid1=%d fid2=%d, want 5 and 0", stats1.ExtraPicks, stats2.ExtraPicks)
	}
}

func TestSetOGIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if _, _, err := store.EnsureUser(1); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.SetOG(1); err != nil {
			t.Fatalf("set og (pass %d): %v", i, err)
		}
	}
	user, err := store.GetUser(1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.IsOG {
		t.Fatal("og flag not set")
	}
}

func TestRankOfUnknownAccount(t *testing.T) {
	store := newTestStore(t)

	row, err := store.RankOf(999)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if row.Rank != nil {
		t.Fatalf("rank %v for unknown account, want nil", *row.Rank)
	}
	if row.TotalPoints != 0 || row.CommonCount != 0 || row.LegendaryCount != 0 {
		t.Fatalf("counts not zero: %+v", row)
	}
}

func TestRankOfCountsStrictlyGreater(t *testing.T) {
	store := newTestStore(t)
	for fid, points := range map[int64]int64{1: 100, 2: 200, 3: 100, 4: 50} {
		if _, _, err := store.EnsureUser(fid); err != nil {
			t.Fatalf("ensure %d: %v", fid, err)
		}
		stats, _ := store.GetStats(fid)
		stats.TotalPoints = points
		if err := store.SaveStats(stats); err != nil {
			t.Fatalf("save %d: %v", fid, err)
		}
	}

	row, err := store.RankOf(1)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	// Only fid 2 (200) is strictly above; the tied fid 3 is not.
	if row.Rank == nil || *row.Rank != 2 {
		t.Fatalf("rank %v, want 2", row.Rank)
	}
}

func TestTopNOrderAndTieBreak(t *testing.T) {
	store := newTestStore(t)
	for fid, points := range map[int64]int64{5: 100, 3: 300, 9: 100} {
		if _, _, err := store.EnsureUser(fid); err != nil {
			t.Fatalf("ensure %d: %v", fid, err)
		}
		stats, _ := store.GetStats(fid)
		stats.TotalPoints = points
		if err := store.SaveStats(stats); err != nil {
			t.Fatalf("save %d: %v", fid, err)
		}
	}

	rows, err := store.TopN(10)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	var got []int64
	for _, r := range rows {
		got = append(got, r.Fid)
	}
	want := []int64{3, 5, 9} // points desc, ties by fid asc
	if len(got) != len(want) {
		t.Fatalf("rows %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rows %v, want %v", got, want)
		}
	}
}

func TestCompletePaymentEnforcesUniqueTxHash(t *testing.T) {
	store := newTestStore(t)

	first := &models.Payment{ID: "p1", Fid: 1, Kind: models.KindExtraPicks, PackSize: 5, Status: models.StatusPending}
	second := &models.Payment{ID: "p2", Fid: 2, Kind: models.KindExtraPicks, PackSize: 5, Status: models.StatusPending}
	for _, p := range []*models.Payment{first, second} {
		if err := store.CreatePayment(p); err != nil {
			t.Fatalf("create %s: %v", p.ID, err)
		}
	}

	if err := store.CompletePayment(first, "0xABC"); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	if err := store.CompletePayment(second, "0xabc"); err == nil {
		t.Fatal("second completion with same tx hash should hit the unique index")
	}

	found, err := store.FindCompletedByTxHash("0xAbC")
	if err != nil {
		t.Fatalf("find completed: %v", err)
	}
	if found.ID != "p1" {
		t.Fatalf("found %s, want p1", found.ID)
	}
}

func TestCancelStalePending(t *testing.T) {
	store := newTestStore(t)

	stale := &models.Payment{ID: "old", Fid: 1, Kind: models.KindOGRank, Status: models.StatusPending}
	fresh := &models.Payment{ID: "new", Fid: 1, Kind: models.KindOGRank, Status: models.StatusPending}
	if err := store.CreatePayment(stale); err != nil {
		t.Fatalf("create stale: %v", err)
	}
	if err := store.CreatePayment(fresh); err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	// Backdate the stale row past the TTL.
	if err := store.db.Model(&models.Payment{}).Where("id = ?", "old").
		Update("created_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if err := store.CancelStalePending(1, time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var old models.Payment
	if err := store.db.First(&old, "id = ?", "old").Error; err != nil {
		t.Fatalf("load old: %v", err)
	}
	if old.Status != models.StatusCancelled {
		t.Fatalf("stale intent status %q, want cancelled", old.Status)
	}
	var kept models.Payment
	if err := store.db.First(&kept, "id = ?", "new").Error; err != nil {
		t.Fatalf("load new: %v", err)
	}
	if kept.Status != models.StatusPending {
		t.Fatalf("fresh intent status %q, want pending", kept.Status)
	}
}

func TestFindPendingIntentIgnoresPackSizeForOG(t *testing.T) {
	store := newTestStore(t)
	p := &models.Payment{ID: "og1", Fid: 1, Kind: models.KindOGRank, Status: models.StatusPending}
	if err := store.CreatePayment(p); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := store.FindPendingIntent(1, models.KindOGRank, 99)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != "og1" {
		t.Fatalf("found %s, want og1", found.ID)
	}

	_, err = store.FindPendingIntent(1, models.KindExtraPicks, 5)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
