// Package lottery implements the order/payment/ticket state machine: round
// lifecycle, reservation orders, payment verification against the external
// ledger, idempotent ticket crediting, and winner payout.
package lottery

import (
	"errors"
	"sync"
	"time"

	"github.com/nantokaworks/ticket-lottery/internal/ledger"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/types"
	"go.uber.org/zap"
)

// Broadcaster receives lottery events for fan-out to connected UIs.
type Broadcaster interface {
	BroadcastEvent(eventType string, payload any)
}

// Service drives the lottery. A single mutex serializes every state
// transition, mirroring the run-to-completion model the state machine was
// designed for; read-only ledger verification runs outside the critical
// section, the payout transfer inside it so stage 1->2 is decided once.
type Service struct {
	mu      sync.Mutex
	store   *store.Store
	ledger  ledger.Client
	account string
	expiry  *expiryScheduler
	events  Broadcaster
	now     func() time.Time
}

// NewService wires the lottery over its store and ledger client.
// serviceAccount is this service's own ledger account; incoming payments
// must be addressed to it.
func NewService(st *store.Store, lc ledger.Client, serviceAccount string) *Service {
	s := &Service{
		store:   st,
		ledger:  lc,
		account: serviceAccount,
		now:     time.Now,
	}
	s.expiry = newExpiryScheduler(s.expireOrder)
	return s
}

// SetBroadcaster attaches the event sink. Optional; nil means no fan-out.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.events = b
}

// Start re-arms expiry timers for pending orders that survived a restart
// and reconciles the active-round slot invariant (the slot, when set, must
// name a round at the open stage).
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.store.ListPendingOrders()
	if err != nil {
		return err
	}
	now := s.now()
	for _, o := range pending {
		remaining := o.ExpiresAt.Sub(now)
		if remaining <= 0 {
			if err := s.store.DeletePendingOrder(o.Memo); err != nil && !errors.Is(err, store.ErrNotFound) {
				logger.Warn("Failed to discard stale pending order", zap.Uint64("memo", o.Memo), zap.Error(err))
			}
			continue
		}
		s.expiry.Arm(o.Memo, remaining)
	}

	cfg, err := s.store.GetConfig()
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.ActiveRound != nil {
		round, err := s.store.GetRound(*cfg.ActiveRound)
		if errors.Is(err, store.ErrNotFound) || (err == nil && round.Stage != types.RoundOpen) {
			logger.Warn("Clearing stale active-round slot", zap.Uint64p("round_id", cfg.ActiveRound))
			cfg.ActiveRound = nil
			return s.store.PutConfig(cfg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop cancels all expiry timers.
func (s *Service) Stop() {
	s.expiry.Stop()
}

// ConfigurationView is the configuration query result.
type ConfigurationView struct {
	State          types.LotteryState `json:"state"`
	TicketPrice    uint64             `json:"ticket_price"`
	RoundDuration  time.Duration      `json:"round_duration"`
	CurrentRoundID *uint64            `json:"current_round_id,omitempty"`
	ActiveRound    *uint64            `json:"active_round,omitempty"`
	PrizePool      uint64             `json:"prize_pool"`
}

// Configuration returns the current configuration and derived global state.
func (s *Service) Configuration() (*ConfigurationView, error) {
	cfg, err := s.store.GetConfig()
	if errors.Is(err, store.ErrNotFound) {
		return &ConfigurationView{State: types.StateUninitialized}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ConfigurationView{
		State:          cfg.State(),
		TicketPrice:    cfg.TicketPrice,
		RoundDuration:  cfg.RoundDuration,
		CurrentRoundID: cfg.CurrentRoundID,
		ActiveRound:    cfg.ActiveRound,
		PrizePool:      cfg.PrizePool,
	}, nil
}

// Rounds returns every round, ascending by id.
func (s *Service) Rounds() ([]types.Round, error) {
	return s.store.ListRounds()
}

// Round returns one round by id.
func (s *Service) Round(id uint64) (*types.Round, error) {
	round, err := s.store.GetRound(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoundNotFound
	}
	return round, err
}

// PendingOrders returns every payment-pending order.
func (s *Service) PendingOrders() ([]types.Order, error) {
	return s.store.ListPendingOrders()
}

// CompletedOrders returns completed orders, optionally filtered by buyer.
func (s *Service) CompletedOrders(buyer string) ([]types.Order, error) {
	orders, err := s.store.ListCompletedOrders()
	if err != nil || buyer == "" {
		return orders, err
	}
	filtered := orders[:0]
	for _, o := range orders {
		if o.Buyer == buyer {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (s *Service) publish(eventType string, payload any) {
	if s.events != nil {
		s.events.BroadcastEvent(eventType, payload)
	}
}
