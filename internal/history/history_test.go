package history

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	Close()
	if _, err := SetupDB(filepath.Join(t.TempDir(), "history.db")); err != nil {
		t.Fatalf("failed to setup history database: %v", err)
	}
	t.Cleanup(Close)
}

func TestSaveAndListDraws(t *testing.T) {
	setupTestDB(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := uint64(0); i < 3; i++ {
		err := SaveDraw(DrawRecord{
			RoundID:       i,
			WinningTicket: i * 10,
			TicketsSold:   100,
			Players:       5,
			DrawnAt:       base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("failed to save draw: %v", err)
		}
	}

	draws, err := ListDraws(0)
	if err != nil {
		t.Fatalf("failed to list draws: %v", err)
	}
	if len(draws) != 3 {
		t.Fatalf("expected 3 draws, got %d", len(draws))
	}
	// Latest first.
	if draws[0].RoundID != 2 || draws[2].RoundID != 0 {
		t.Fatalf("unexpected order: %+v", draws)
	}

	limited, err := ListDraws(1)
	if err != nil {
		t.Fatalf("failed to list draws with limit: %v", err)
	}
	if len(limited) != 1 || limited[0].RoundID != 2 {
		t.Fatalf("expected only latest draw, got %+v", limited)
	}
}

func TestSaveAndListPayouts(t *testing.T) {
	setupTestDB(t)

	err := SavePayout(PayoutRecord{
		RoundID:    4,
		Winner:     "alice",
		Reward:     200,
		BlockIndex: 42,
		PaidAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("failed to save payout: %v", err)
	}

	payouts, err := ListPayouts(0)
	if err != nil {
		t.Fatalf("failed to list payouts: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("expected one payout, got %d", len(payouts))
	}
	p := payouts[0]
	if p.RoundID != 4 || p.Winner != "alice" || p.Reward != 200 || p.BlockIndex != 42 {
		t.Fatalf("payout mismatch: %+v", p)
	}
}

func TestListSettledOrdersByBuyer(t *testing.T) {
	setupTestDB(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []SettledOrderRecord{
		{Memo: 1, RoundID: 0, Buyer: "alice", Amount: 100, Block: 1, SettledAt: base},
		{Memo: 2, RoundID: 0, Buyer: "bob", Amount: 200, Block: 2, SettledAt: base.Add(time.Minute)},
		{Memo: 3, RoundID: 1, Buyer: "alice", Amount: 300, Block: 3, SettledAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if err := SaveSettledOrder(r); err != nil {
			t.Fatalf("failed to save settled order: %v", err)
		}
	}

	all, err := ListSettledOrders("", 0)
	if err != nil {
		t.Fatalf("failed to list settled orders: %v", err)
	}
	if len(all) != 3 || all[0].Memo != 3 {
		t.Fatalf("unexpected settled orders: %+v", all)
	}

	alice, err := ListSettledOrders("alice", 0)
	if err != nil {
		t.Fatalf("failed to list alice's orders: %v", err)
	}
	if len(alice) != 2 {
		t.Fatalf("expected 2 orders for alice, got %d", len(alice))
	}
	for _, r := range alice {
		if r.Buyer != "alice" {
			t.Fatalf("filter leaked buyer %q", r.Buyer)
		}
	}
}

func TestOperationsRequireSetup(t *testing.T) {
	Close()

	if err := SaveDraw(DrawRecord{}); err == nil {
		t.Fatal("expected error before setup")
	}
	if err := SavePayout(PayoutRecord{}); err == nil {
		t.Fatal("expected error before setup")
	}
	if err := SaveSettledOrder(SettledOrderRecord{}); err == nil {
		t.Fatal("expected error before setup")
	}
	if _, err := ListDraws(0); err == nil {
		t.Fatal("expected error before setup")
	}
}
