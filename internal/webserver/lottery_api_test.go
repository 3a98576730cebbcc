package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/history"
	"github.com/nantokaworks/ticket-lottery/internal/ledger"
	"github.com/nantokaworks/ticket-lottery/internal/lottery"
	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/types"
)

type stubLedger struct {
	blocks map[uint64][]ledger.Block
}

func (s *stubLedger) TransferFee(ctx context.Context) (uint64, error) { return 10, nil }

func (s *stubLedger) Transfer(ctx context.Context, args ledger.TransferArgs) (uint64, error) {
	return 99, nil
}

func (s *stubLedger) QueryBlocks(ctx context.Context, start, length uint64) ([]ledger.Block, error) {
	return s.blocks[start], nil
}

func newTestAPI(t *testing.T) (*httptest.Server, *lottery.Service, *stubLedger) {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sl := &stubLedger{blocks: make(map[uint64][]ledger.Block)}
	svc := lottery.NewService(st, sl, "service-account")
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	registerLotteryRoutes(mux, svc)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, svc, sl
}

func doJSON(t *testing.T, method, url string, body any, account string) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if account != "" {
		req.Header.Set("X-Account-ID", account)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, buf.Bytes()
}

func errorKind(t *testing.T, body []byte) string {
	t.Helper()
	var wrapper struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		t.Fatalf("failed to decode error body %s: %v", body, err)
	}
	return wrapper.Error.Kind
}

func TestAPIRoundLifecycle(t *testing.T) {
	srv, _, sl := newTestAPI(t)

	// State errors before initialization.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/lottery/rounds", nil, "admin")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before init, got %d", resp.StatusCode)
	}
	if kind := errorKind(t, body); kind != "ConfigError" {
		t.Fatalf("expected ConfigError, got %s", kind)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/lottery/initialize",
		initializeRequest{TicketPrice: 100, DurationSeconds: 3600}, "admin")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initialize failed with %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/lottery/rounds", nil, "admin")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start round failed with %d: %s", resp.StatusCode, body)
	}
	var round types.Round
	if err := json.Unmarshal(body, &round); err != nil {
		t.Fatalf("failed to decode round: %v", err)
	}

	// Buy tickets through the API.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/lottery/orders",
		createOrderRequest{RoundID: round.ID, TicketCount: 2}, "alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create order failed with %d: %s", resp.StatusCode, body)
	}
	var order types.Order
	if err := json.Unmarshal(body, &order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if order.Amount != 200 {
		t.Fatalf("expected amount 200, got %d", order.Amount)
	}

	sl.blocks[5] = []ledger.Block{{
		Index: 5,
		Memo:  order.Memo,
		Transfer: ledger.Transfer{
			From:   ledger.AccountAddress("alice"),
			To:     ledger.AccountAddress("service-account"),
			Amount: order.Amount,
		},
	}}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/lottery/orders/verify",
		verifyOrderRequest{RoundID: round.ID, TicketCount: 2, AmountPaid: order.Amount, Block: 5, Memo: order.Memo}, "alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify failed with %d: %s", resp.StatusCode, body)
	}

	// Closing before the end time is a state conflict.
	closeURL := fmt.Sprintf("%s/api/lottery/rounds/%d/close", srv.URL, round.ID)
	resp, body = doJSON(t, http.MethodPost, closeURL, nil, "admin")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 closing early, got %d", resp.StatusCode)
	}
	if kind := errorKind(t, body); kind != "StateError" {
		t.Fatalf("expected StateError, got %s", kind)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/lottery/config", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("config query failed with %d", resp.StatusCode)
	}
	var cfg lottery.ConfigurationView
	if err := json.Unmarshal(body, &cfg); err != nil {
		t.Fatalf("failed to decode config: %v", err)
	}
	if cfg.PrizePool != 200 {
		t.Fatalf("expected prize pool 200, got %d", cfg.PrizePool)
	}
}

func TestAPIErrorStatuses(t *testing.T) {
	srv, svc, sl := newTestAPI(t)

	if err := svc.Initialize(100, 200*time.Millisecond); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	// Unknown round: 404.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/lottery/rounds/42", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if kind := errorKind(t, body); kind != "NotFound" {
		t.Fatalf("expected NotFound, got %s", kind)
	}

	// Malformed body: 400.
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/lottery/orders", bytes.NewReader([]byte("{")))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp2.StatusCode)
	}

	// Forged verification proof: 402.
	round, err := svc.StartRound()
	if err != nil {
		t.Fatalf("failed to start round: %v", err)
	}
	order, err := svc.CreateOrder("alice", round.ID, 1)
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/lottery/orders/verify",
		verifyOrderRequest{RoundID: round.ID, TicketCount: 1, AmountPaid: order.Amount, Block: 1, Memo: order.Memo}, "alice")
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402 for unverifiable payment, got %d", resp.StatusCode)
	}
	if kind := errorKind(t, body); kind != "PaymentError" {
		t.Fatalf("expected PaymentError, got %s", kind)
	}

	// Alice holds the round's only ticket, so the draw must pick her.
	sl.blocks[1] = []ledger.Block{{
		Index: 1,
		Memo:  order.Memo,
		Transfer: ledger.Transfer{
			From:   ledger.AccountAddress("alice"),
			To:     ledger.AccountAddress("service-account"),
			Amount: order.Amount,
		},
	}}
	if _, err := svc.VerifyAndRegister(context.Background(), "alice", round.ID, 1, order.Amount, 1, order.Memo); err != nil {
		t.Fatalf("failed to verify order: %v", err)
	}

	time.Sleep(250 * time.Millisecond) // past the round's end time

	closeURL := fmt.Sprintf("%s/api/lottery/rounds/%d/close", srv.URL, round.ID)
	if resp, body := doJSON(t, http.MethodPost, closeURL, nil, "admin"); resp.StatusCode != http.StatusOK {
		t.Fatalf("close failed with %d: %s", resp.StatusCode, body)
	}

	// A non-participant's claim: 404.
	claimURL := fmt.Sprintf("%s/api/lottery/rounds/%d/claim", srv.URL, round.ID)
	resp, body = doJSON(t, http.MethodPost, claimURL, nil, "carol")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for non-participant, got %d", resp.StatusCode)
	}
	if kind := errorKind(t, body); kind != "NotFound" {
		t.Fatalf("expected NotFound, got %s", kind)
	}

	resp, body = doJSON(t, http.MethodPost, claimURL, nil, "alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("winner claim failed with %d: %s", resp.StatusCode, body)
	}

	// Claim on an already paid-out round: 409.
	resp, body = doJSON(t, http.MethodPost, claimURL, nil, "alice")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on repeat claim, got %d", resp.StatusCode)
	}
	if kind := errorKind(t, body); kind != "StateError" {
		t.Fatalf("expected StateError, got %s", kind)
	}

	// Missing caller identity: 400.
	resp, _ = doJSON(t, http.MethodPost, claimURL, nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without caller identity, got %d", resp.StatusCode)
	}
}

func TestAPIHistory(t *testing.T) {
	srv, _, _ := newTestAPI(t)

	history.Close()
	if _, err := history.SetupDB(filepath.Join(t.TempDir(), "history.db")); err != nil {
		t.Fatalf("failed to setup history database: %v", err)
	}
	t.Cleanup(history.Close)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := history.SaveDraw(history.DrawRecord{RoundID: 0, WinningTicket: 1, TicketsSold: 3, Players: 2, DrawnAt: now}); err != nil {
		t.Fatalf("failed to save draw: %v", err)
	}
	if err := history.SavePayout(history.PayoutRecord{RoundID: 0, Winner: "alice", Reward: 150, BlockIndex: 9, PaidAt: now}); err != nil {
		t.Fatalf("failed to save payout: %v", err)
	}
	if err := history.SaveSettledOrder(history.SettledOrderRecord{Memo: 1, RoundID: 0, Buyer: "alice", Amount: 100, Block: 5, SettledAt: now}); err != nil {
		t.Fatalf("failed to save settled order: %v", err)
	}
	if err := history.SaveSettledOrder(history.SettledOrderRecord{Memo: 2, RoundID: 0, Buyer: "bob", Amount: 200, Block: 6, SettledAt: now}); err != nil {
		t.Fatalf("failed to save settled order: %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/lottery/history", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history query failed with %d: %s", resp.StatusCode, body)
	}
	var result struct {
		Draws         []history.DrawRecord         `json:"draws"`
		Payouts       []history.PayoutRecord       `json:"payouts"`
		SettledOrders []history.SettledOrderRecord `json:"settled_orders"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(result.Draws) != 1 || len(result.Payouts) != 1 || len(result.SettledOrders) != 2 {
		t.Fatalf("unexpected history counts: %d draws, %d payouts, %d settled",
			len(result.Draws), len(result.Payouts), len(result.SettledOrders))
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/lottery/history?account=bob", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("filtered history query failed with %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(result.SettledOrders) != 1 || result.SettledOrders[0].Buyer != "bob" {
		t.Fatalf("expected only bob's settled orders, got %+v", result.SettledOrders)
	}
}

func TestWriteServiceErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{lottery.ErrNotInitialized, http.StatusConflict},
		{lottery.ErrRoundClosed, http.StatusConflict},
		{lottery.ErrOrderStatus, http.StatusConflict},
		{lottery.ErrRoundNotFound, http.StatusNotFound},
		{lottery.ErrPaymentVerification, http.StatusPaymentRequired},
		{lottery.ErrPaymentFailed, http.StatusPaymentRequired},
		{lottery.ErrInvalidInput, http.StatusBadRequest},
		{lottery.ErrNotWinner, http.StatusOK},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, c.err)
		if rec.Code != c.status {
			t.Fatalf("writeServiceError(%v) = %d, want %d", c.err, rec.Code, c.status)
		}
	}
}
