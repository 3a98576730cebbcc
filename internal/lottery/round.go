package lottery

import (
	"errors"
	"fmt"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/history"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/types"
	"go.uber.org/zap"
)

// Initialize sets the one-time lottery configuration. It fails once a
// configuration exists; the ticket price and round duration are fixed for
// the lifetime of the store.
func (s *Service) Initialize(ticketPrice uint64, roundDuration time.Duration) error {
	if ticketPrice == 0 || roundDuration <= 0 {
		return fmt.Errorf("%w: ticket price and round duration must be positive", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetConfig(); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	cfg := &types.Config{
		TicketPrice:   ticketPrice,
		RoundDuration: roundDuration,
	}
	if err := s.store.PutConfig(cfg); err != nil {
		return err
	}

	logger.Info("Lottery initialized",
		zap.Uint64("ticket_price", ticketPrice),
		zap.Duration("round_duration", roundDuration))
	return nil
}

// StartRound opens a new round in the active slot. Only one round can be
// open at a time; rounds awaiting payout do not block a new one.
func (s *Service) StartRound() (*types.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return nil, err
	}
	if cfg.RoundDuration <= 0 {
		return nil, fmt.Errorf("%w: cannot start lottery, duration not set", ErrInvalidConfig)
	}
	if cfg.ActiveRound != nil {
		return nil, ErrRoundInProgress
	}

	var id uint64
	if cfg.CurrentRoundID != nil {
		id = *cfg.CurrentRoundID + 1
	}

	now := s.now()
	round := &types.Round{
		ID:        id,
		StartTime: now,
		EndTime:   now.Add(cfg.RoundDuration),
		Players:   []types.Player{},
		Stage:     types.RoundOpen,
	}
	if err := s.store.PutRound(round); err != nil {
		return nil, err
	}

	cfg.CurrentRoundID = &id
	cfg.ActiveRound = &id
	if err := s.store.PutConfig(cfg); err != nil {
		return nil, err
	}

	logger.Info("Lottery round started",
		zap.Uint64("round_id", id),
		zap.Time("end_time", round.EndTime))
	s.publish("round_started", round)
	return round, nil
}

// CloseRound ends ticket sales for a round past its end time and draws the
// winning ticket. A round that sold no tickets goes straight to the
// terminal stage since there is nothing to claim.
func (s *Service) CloseRound(roundID uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return "", err
	}

	round, err := s.round(roundID)
	if err != nil {
		return "", err
	}
	if round.Stage != types.RoundOpen {
		return "", ErrRoundClosed
	}
	if s.now().Before(round.EndTime) {
		return "", ErrRoundNotOver
	}

	if round.TicketsSold == 0 {
		round.Stage = types.RoundPaidOut
		if err := s.store.PutRound(round); err != nil {
			return "", err
		}
		if err := s.releaseActiveSlot(cfg, roundID); err != nil {
			return "", err
		}
		logger.Info("Lottery round closed with no tickets sold", zap.Uint64("round_id", roundID))
		s.publish("round_closed", round)
		return "lottery ended with no tickets sold", nil
	}

	winning, err := drawRandomTicket(round.TicketsSold)
	if err != nil {
		return "", err
	}
	round.WinningTicket = &winning
	round.Stage = types.RoundDrawn
	if err := s.store.PutRound(round); err != nil {
		return "", err
	}
	if err := s.releaseActiveSlot(cfg, roundID); err != nil {
		return "", err
	}

	if err := history.SaveDraw(history.DrawRecord{
		RoundID:       round.ID,
		WinningTicket: winning,
		TicketsSold:   round.TicketsSold,
		Players:       len(round.Players),
		DrawnAt:       s.now(),
	}); err != nil {
		logger.Warn("Failed to record draw history", zap.Error(err))
	}

	logger.Info("Lottery round closed",
		zap.Uint64("round_id", roundID),
		zap.Uint64("winning_ticket", winning),
		zap.Uint64("tickets_sold", round.TicketsSold))
	s.publish("round_closed", round)
	return "lottery ended, winner can claim now", nil
}

// DeleteRound removes a paid-out round and its participation index.
// Deletion before payout finalization is rejected.
func (s *Service) DeleteRound(roundID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, err := s.round(roundID)
	if err != nil {
		return err
	}
	if round.Stage != types.RoundPaidOut {
		return ErrPayoutPending
	}

	if err := s.store.DeleteRound(roundID); err != nil {
		return err
	}
	logger.Info("Lottery round deleted", zap.Uint64("round_id", roundID))
	return nil
}

// releaseActiveSlot clears the active-round slot when it names roundID.
func (s *Service) releaseActiveSlot(cfg *types.Config, roundID uint64) error {
	if cfg.ActiveRound == nil || *cfg.ActiveRound != roundID {
		return nil
	}
	cfg.ActiveRound = nil
	return s.store.PutConfig(cfg)
}

// config loads the configuration, mapping absence to ErrNotInitialized.
func (s *Service) config() (*types.Config, error) {
	cfg, err := s.store.GetConfig()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInitialized
	}
	return cfg, err
}

// round loads a round, mapping absence to ErrRoundNotFound.
func (s *Service) round(id uint64) (*types.Round, error) {
	round, err := s.store.GetRound(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: id=%d", ErrRoundNotFound, id)
	}
	return round, err
}
