package store

import (
	"errors"
	"testing"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetRound(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	winning := uint64(3)
	round := &types.Round{
		ID:            7,
		StartTime:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC),
		TicketsSold:   5,
		WinningTicket: &winning,
		Players: []types.Player{
			{ID: 1, RoundID: 7, Account: "alice", Tickets: []uint64{0, 1, 2}},
			{ID: 2, RoundID: 7, Account: "bob", Tickets: []uint64{3, 4}},
		},
		Stage: types.RoundDrawn,
	}
	if err := s.PutRound(round); err != nil {
		t.Fatalf("failed to put round: %v", err)
	}

	got, err := s.GetRound(7)
	if err != nil {
		t.Fatalf("failed to get round: %v", err)
	}
	if got.ID != 7 || got.TicketsSold != 5 || got.Stage != types.RoundDrawn {
		t.Fatalf("round mismatch: %+v", got)
	}
	if got.WinningTicket == nil || *got.WinningTicket != 3 {
		t.Fatalf("winning ticket mismatch: %v", got.WinningTicket)
	}
	if len(got.Players) != 2 || got.Players[1].Account != "bob" {
		t.Fatalf("players mismatch: %+v", got.Players)
	}
}

func TestListRoundsOrdered(t *testing.T) {
	s := openTestStore(t)

	// Insert out of order; big-endian keys must iterate ascending.
	for _, id := range []uint64{300, 2, 1000000, 45} {
		if err := s.PutRound(&types.Round{ID: id}); err != nil {
			t.Fatalf("failed to put round %d: %v", id, err)
		}
	}

	rounds, err := s.ListRounds()
	if err != nil {
		t.Fatalf("failed to list rounds: %v", err)
	}
	want := []uint64{2, 45, 300, 1000000}
	if len(rounds) != len(want) {
		t.Fatalf("expected %d rounds, got %d", len(want), len(rounds))
	}
	for i, id := range want {
		if rounds[i].ID != id {
			t.Fatalf("position %d: expected round %d, got %d", i, id, rounds[i].ID)
		}
	}
}

func TestDeleteRoundClearsIndex(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutRound(&types.Round{ID: 1}); err != nil {
		t.Fatalf("failed to put round: %v", err)
	}
	if err := s.PutRound(&types.Round{ID: 2}); err != nil {
		t.Fatalf("failed to put round: %v", err)
	}
	if err := s.PutPlayerPosition(1, "alice", 1); err != nil {
		t.Fatalf("failed to put position: %v", err)
	}
	if err := s.PutPlayerPosition(2, "alice", 1); err != nil {
		t.Fatalf("failed to put position: %v", err)
	}

	if err := s.DeleteRound(1); err != nil {
		t.Fatalf("failed to delete round: %v", err)
	}
	if _, err := s.GetRound(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted round gone, got %v", err)
	}
	if _, err := s.GetPlayerPosition(1, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected index entry gone with its round, got %v", err)
	}

	// Other rounds and their index entries survive.
	if _, err := s.GetRound(2); err != nil {
		t.Fatalf("unrelated round lost: %v", err)
	}
	if pos, err := s.GetPlayerPosition(2, "alice"); err != nil || pos != 1 {
		t.Fatalf("unrelated index entry lost: pos=%d err=%v", pos, err)
	}

	if err := s.DeleteRound(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestPendingOrderLifecycle(t *testing.T) {
	s := openTestStore(t)

	order := &types.Order{
		RoundID:   1,
		Amount:    200,
		Status:    types.OrderPaymentPending,
		Buyer:     "alice",
		Memo:      99,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.PutPendingOrder(order); err != nil {
		t.Fatalf("failed to put pending order: %v", err)
	}

	got, err := s.GetPendingOrder(99)
	if err != nil {
		t.Fatalf("failed to get pending order: %v", err)
	}
	if got.Buyer != "alice" || got.Amount != 200 {
		t.Fatalf("order mismatch: %+v", got)
	}

	if err := s.DeletePendingOrder(99); err != nil {
		t.Fatalf("failed to delete pending order: %v", err)
	}
	if err := s.DeletePendingOrder(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
	if _, err := s.GetPendingOrder(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletedOrdersOrderedByMemo(t *testing.T) {
	s := openTestStore(t)

	for _, memo := range []uint64{50, 3, 700} {
		if err := s.PutCompletedOrder(&types.Order{Memo: memo, Status: types.OrderCompleted}); err != nil {
			t.Fatalf("failed to put completed order: %v", err)
		}
	}

	orders, err := s.ListCompletedOrders()
	if err != nil {
		t.Fatalf("failed to list completed orders: %v", err)
	}
	want := []uint64{3, 50, 700}
	if len(orders) != len(want) {
		t.Fatalf("expected %d orders, got %d", len(want), len(orders))
	}
	for i, memo := range want {
		if orders[i].Memo != memo {
			t.Fatalf("position %d: expected memo %d, got %d", i, memo, orders[i].Memo)
		}
	}

	// Pending and completed spaces do not leak into each other.
	pending, err := s.ListPendingOrders()
	if err != nil {
		t.Fatalf("failed to list pending orders: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending orders, got %d", len(pending))
	}
}

func TestConfigSingleton(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetConfig(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before initialization, got %v", err)
	}

	id := uint64(4)
	cfg := &types.Config{
		TicketPrice:    100,
		RoundDuration:  time.Hour,
		CurrentRoundID: &id,
		ActiveRound:    &id,
		PrizePool:      5000,
	}
	if err := s.PutConfig(cfg); err != nil {
		t.Fatalf("failed to put config: %v", err)
	}

	got, err := s.GetConfig()
	if err != nil {
		t.Fatalf("failed to get config: %v", err)
	}
	if got.TicketPrice != 100 || got.RoundDuration != time.Hour || got.PrizePool != 5000 {
		t.Fatalf("config mismatch: %+v", got)
	}
	if got.ActiveRound == nil || *got.ActiveRound != 4 {
		t.Fatalf("active round mismatch: %v", got.ActiveRound)
	}
}

func TestMemoSequenceMonotonic(t *testing.T) {
	s := openTestStore(t)

	var prev uint64
	for i := 0; i < 10; i++ {
		n, err := s.NextMemoSeq()
		if err != nil {
			t.Fatalf("failed to advance sequence: %v", err)
		}
		if i > 0 && n <= prev {
			t.Fatalf("sequence went backwards: %d after %d", n, prev)
		}
		prev = n
	}
}

func TestMemoSequenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	first, err := s.NextMemoSeq()
	if err != nil {
		t.Fatalf("failed to advance sequence: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s2.Close()

	next, err := s2.NextMemoSeq()
	if err != nil {
		t.Fatalf("failed to advance sequence: %v", err)
	}
	if next <= first {
		t.Fatalf("sequence reissued after restart: %d after %d", next, first)
	}
}

func TestPlayerPositionPerRound(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutPlayerPosition(1, "alice", 1); err != nil {
		t.Fatalf("failed to put position: %v", err)
	}
	if err := s.PutPlayerPosition(1, "bob", 2); err != nil {
		t.Fatalf("failed to put position: %v", err)
	}
	if err := s.PutPlayerPosition(2, "alice", 1); err != nil {
		t.Fatalf("failed to put position: %v", err)
	}

	pos, err := s.GetPlayerPosition(1, "bob")
	if err != nil || pos != 2 {
		t.Fatalf("expected position 2, got %d (%v)", pos, err)
	}
	if _, err := s.GetPlayerPosition(2, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bob in round 2, got %v", err)
	}
}
