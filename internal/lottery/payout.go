package lottery

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nantokaworks/ticket-lottery/internal/history"
	"github.com/nantokaworks/ticket-lottery/internal/ledger"
	"github.com/nantokaworks/ticket-lottery/internal/metrics"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/types"
	"go.uber.org/zap"
)

// ClaimIfWinner pays out the reward when the caller holds the winning
// ticket of a drawn round. The prize pool is debited only after the
// ticket match succeeds and the ledger transfer completes, so a failed
// claim never biases the pool. The mutex is held across the transfer:
// the stage 1->2 transition is decided exactly once.
func (s *Service) ClaimIfWinner(ctx context.Context, roundID uint64, account string) (string, error) {
	if account == "" {
		return "", fmt.Errorf("%w: account is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		metrics.RecordClaim("fail")
		return "", err
	}

	round, err := s.round(roundID)
	if err != nil {
		metrics.RecordClaim("fail")
		return "", err
	}
	switch round.Stage {
	case types.RoundPaidOut:
		metrics.RecordClaim("fail")
		return "", ErrAlreadyPaidOut
	case types.RoundOpen:
		metrics.RecordClaim("fail")
		return "", ErrRoundNotDrawn
	}

	position, err := s.store.GetPlayerPosition(roundID, account)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RecordClaim("fail")
		return "", ErrNoParticipation
	}
	if err != nil {
		return "", err
	}
	if position < 1 || position > len(round.Players) {
		metrics.RecordClaim("fail")
		return "", ErrNoParticipation
	}
	player := round.Players[position-1]

	if !slices.Contains(player.Tickets, *round.WinningTicket) {
		metrics.RecordClaim("not_winner")
		logger.Debug("Claim by non-winning account",
			zap.Uint64("round_id", roundID),
			zap.String("account", account))
		return "", ErrNotWinner
	}

	if cfg.PrizePool == 0 {
		metrics.RecordClaim("fail")
		return "", ErrEmptyPrizePool
	}
	reward := cfg.PrizePool / 2

	fee, err := s.ledger.TransferFee(ctx)
	if err != nil {
		metrics.RecordClaim("fail")
		return "", fmt.Errorf("%w: fetching transfer fee: %v", ErrPaymentFailed, err)
	}
	blockIndex, err := s.ledger.Transfer(ctx, ledger.TransferArgs{
		Amount: reward,
		Fee:    fee,
		To:     ledger.AccountAddress(account),
	})
	if err != nil {
		metrics.RecordClaim("fail")
		return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	cfg.PrizePool -= reward
	if err := s.store.PutConfig(cfg); err != nil {
		return "", err
	}
	round.Winner = account
	round.Stage = types.RoundPaidOut
	if err := s.store.PutRound(round); err != nil {
		return "", err
	}

	metrics.RecordClaim("won")
	metrics.SetPrizePool(cfg.PrizePool)

	if err := history.SavePayout(history.PayoutRecord{
		RoundID:    roundID,
		Winner:     account,
		Reward:     reward,
		BlockIndex: blockIndex,
		PaidAt:     s.now(),
	}); err != nil {
		logger.Warn("Failed to record payout history", zap.Error(err))
	}

	logger.Info("Winner paid out",
		zap.Uint64("round_id", roundID),
		zap.String("winner", account),
		zap.Uint64("reward", reward),
		zap.Uint64("block_index", blockIndex))
	s.publish("round_paid_out", map[string]any{
		"round_id": roundID,
		"winner":   account,
		"reward":   reward,
	})
	return "congrats, you're the winner! check your balance", nil
}
