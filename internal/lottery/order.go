package lottery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/history"
	"github.com/nantokaworks/ticket-lottery/internal/ledger"
	"github.com/nantokaworks/ticket-lottery/internal/metrics"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/types"
	"go.uber.org/zap"
)

// OrderReservationPeriod is how long a pending order holds its reservation
// before the expiry task discards it.
const OrderReservationPeriod = 120 * time.Second

// CreateOrder reserves a ticket purchase: it prices the order, assigns a
// correlation memo, stores it pending, and schedules its expiry. The buyer
// pays the returned amount into the ledger with the memo attached, then
// calls VerifyAndRegister.
func (s *Service) CreateOrder(account string, roundID uint64, ticketCount uint32) (*types.Order, error) {
	if account == "" || ticketCount == 0 {
		return nil, fmt.Errorf("%w: account and ticket count are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		metrics.RecordOrder("fail")
		return nil, err
	}
	if cfg.TicketPrice == 0 {
		metrics.RecordOrder("fail")
		return nil, fmt.Errorf("%w: cannot buy tickets, price not set", ErrInvalidConfig)
	}
	if cfg.ActiveRound == nil {
		metrics.RecordOrder("fail")
		return nil, ErrNoOpenRound
	}

	round, err := s.round(roundID)
	if err != nil {
		metrics.RecordOrder("fail")
		return nil, err
	}
	now := s.now()
	if round.Stage != types.RoundOpen || !now.Before(round.EndTime) {
		metrics.RecordOrder("fail")
		return nil, ErrSalesClosed
	}

	memo, err := s.nextMemo()
	if err != nil {
		metrics.RecordOrder("fail")
		return nil, err
	}

	order := &types.Order{
		RoundID:   round.ID,
		Amount:    uint64(ticketCount) * cfg.TicketPrice,
		Status:    types.OrderPaymentPending,
		Buyer:     account,
		Memo:      memo,
		CreatedAt: now,
		ExpiresAt: now.Add(OrderReservationPeriod),
	}
	if err := s.store.PutPendingOrder(order); err != nil {
		metrics.RecordOrder("fail")
		return nil, err
	}
	s.expiry.Arm(memo, OrderReservationPeriod)

	metrics.RecordOrder("success")
	logger.Info("Ticket order created",
		zap.Uint64("round_id", round.ID),
		zap.String("buyer", account),
		zap.Uint32("ticket_count", ticketCount),
		zap.Uint64("amount", order.Amount),
		zap.Uint64("memo", memo))
	return order, nil
}

// expireOrder is the scheduled expiry task. Discarding is unconditional
// while the order is still pending; an already consumed order is a no-op.
func (s *Service) expireOrder(memo uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.DeletePendingOrder(memo)
	if errors.Is(err, store.ErrNotFound) {
		logger.Debug("Expiry fired for already consumed order", zap.Uint64("memo", memo))
		return
	}
	if err != nil {
		logger.Error("Failed to discard expired order", zap.Uint64("memo", memo), zap.Error(err))
		return
	}
	logger.Info("Pending order discarded after reservation window", zap.Uint64("memo", memo))
}

// VerifyAndRegister verifies a payment against the ledger and, on success,
// consumes the pending order exactly once and credits tickets to the buyer.
// Verification failure leaves the pending order untouched so the buyer can
// retry until the reservation expires.
func (s *Service) VerifyAndRegister(ctx context.Context, buyer string, roundID uint64, ticketCount uint32, amountPaid uint64, blockRef uint64, memo uint64) (*types.Order, error) {
	started := s.now()
	if buyer == "" || ticketCount == 0 {
		return nil, fmt.Errorf("%w: buyer and ticket count are required", ErrInvalidInput)
	}

	if _, err := s.config(); err != nil {
		return nil, err
	}

	// Ledger lookup happens outside the critical section; other calls may
	// interleave here, which is why ticket ranges are computed from the
	// round's live counter at credit time below.
	if err := s.verifyPayment(ctx, buyer, amountPaid, blockRef, memo); err != nil {
		metrics.RecordVerification("fail", started)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetPendingOrder(memo)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RecordVerification("fail", started)
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.Status != types.OrderPaymentPending {
		metrics.RecordVerification("fail", started)
		return nil, fmt.Errorf("%w: %s", ErrOrderStatus, order.Status)
	}
	// The order must match what the caller claims to have paid for.
	if order.Buyer != buyer || order.RoundID != roundID ||
		order.Amount != amountPaid || uint64(ticketCount)*cfg.TicketPrice != order.Amount {
		metrics.RecordVerification("fail", started)
		return nil, fmt.Errorf("%w: payment does not match order", ErrPaymentVerification)
	}

	round, err := s.round(order.RoundID)
	if err != nil {
		metrics.RecordVerification("fail", started)
		return nil, err
	}

	// Consuming the pending order is the exactly-once gate: a re-delivered
	// verification finds nothing to consume and fails with NotFound.
	if err := s.store.DeletePendingOrder(memo); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	s.expiry.Cancel(memo)

	if err := s.creditTickets(round, buyer, ticketCount); err != nil {
		return nil, err
	}

	order.Status = types.OrderCompleted
	order.PaidAtBlock = &blockRef
	if err := s.store.PutCompletedOrder(order); err != nil {
		return nil, err
	}

	cfg.PrizePool += amountPaid
	if err := s.store.PutConfig(cfg); err != nil {
		return nil, err
	}

	metrics.RecordVerification("success", started)
	metrics.AddTicketsSold(uint64(ticketCount))
	metrics.SetPrizePool(cfg.PrizePool)

	if err := history.SaveSettledOrder(history.SettledOrderRecord{
		Memo:      memo,
		RoundID:   order.RoundID,
		Buyer:     buyer,
		Amount:    amountPaid,
		Block:     blockRef,
		SettledAt: s.now(),
	}); err != nil {
		logger.Warn("Failed to record settled order", zap.Error(err))
	}

	logger.Info("Tickets registered",
		zap.Uint64("round_id", order.RoundID),
		zap.String("buyer", buyer),
		zap.Uint32("ticket_count", ticketCount),
		zap.Uint64("prize_pool", cfg.PrizePool))
	s.publish("tickets_credited", map[string]any{
		"round_id":     order.RoundID,
		"buyer":        buyer,
		"ticket_count": ticketCount,
	})
	return order, nil
}

// verifyPayment checks that the referenced ledger block records a transfer
// from the buyer to this service with the expected memo and amount.
func (s *Service) verifyPayment(ctx context.Context, buyer string, amountPaid, blockRef, memo uint64) error {
	blocks, err := s.ledger.QueryBlocks(ctx, blockRef, 1)
	if err != nil {
		return fmt.Errorf("%w: querying block %d: %v", ErrPaymentVerification, blockRef, err)
	}

	from := ledger.AccountAddress(buyer)
	to := ledger.AccountAddress(s.account)
	for _, b := range blocks {
		if b.Memo == memo && b.Transfer.From == from && b.Transfer.To == to && b.Transfer.Amount == amountPaid {
			return nil
		}
	}
	return ErrPaymentVerification
}

// nextMemo builds a correlation memo from the store's monotonic sequence
// (high bits) and a random salt (low 16 bits). Sequence monotonicity makes
// memos collision-free by construction.
func (s *Service) nextMemo() (uint64, error) {
	seq, err := s.store.NextMemoSeq()
	if err != nil {
		return 0, err
	}
	salt, err := memoSalt()
	if err != nil {
		return 0, err
	}
	return seq<<16 | salt, nil
}
