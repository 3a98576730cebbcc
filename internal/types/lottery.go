package types

import "time"

// RoundStage is the per-round completion marker.
type RoundStage int

const (
	// RoundOpen means tickets are on sale (or sales ended, draw pending).
	RoundOpen RoundStage = 0
	// RoundDrawn means a winning ticket exists and the winner may claim.
	RoundDrawn RoundStage = 1
	// RoundPaidOut means the reward transfer completed; the round is terminal.
	RoundPaidOut RoundStage = 2
)

// Player is one account's participation in one round. ID is the player's
// 1-based position within the round.
type Player struct {
	ID      int      `json:"id"`
	RoundID uint64   `json:"round_id"`
	Account string   `json:"account"`
	Tickets []uint64 `json:"tickets"`
}

// Round is a single lottery instance. Ticket numbers issued across Players
// form the contiguous sequence [0, TicketsSold).
type Round struct {
	ID            uint64     `json:"id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	TicketsSold   uint64     `json:"tickets_sold"`
	Winner        string     `json:"winner,omitempty"`
	WinningTicket *uint64    `json:"winning_ticket,omitempty"`
	Players       []Player   `json:"players"`
	Stage         RoundStage `json:"stage"`
}

// OrderStatus tracks an order through payment.
type OrderStatus string

const (
	OrderPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderCompleted      OrderStatus = "COMPLETED"
)

// Order is a payment intent. Memo is the correlation token embedded in the
// external ledger transfer that pays for it.
type Order struct {
	RoundID     uint64      `json:"round_id"`
	Amount      uint64      `json:"amount"`
	Status      OrderStatus `json:"status"`
	Buyer       string      `json:"buyer"`
	PaidAtBlock *uint64     `json:"paid_at_block,omitempty"`
	Memo        uint64      `json:"memo"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Config is the process-wide lottery configuration plus its derived running
// fields. ActiveRound, when set, names the single round currently open for
// ticket sales; CurrentRoundID is the last allocated round id.
type Config struct {
	TicketPrice    uint64        `json:"ticket_price"`
	RoundDuration  time.Duration `json:"round_duration"`
	CurrentRoundID *uint64       `json:"current_round_id,omitempty"`
	ActiveRound    *uint64       `json:"active_round,omitempty"`
	PrizePool      uint64        `json:"prize_pool"`
}

// LotteryState is the coarse global state exposed by configuration queries.
type LotteryState int

const (
	StateUninitialized LotteryState = -1
	StateReady         LotteryState = 0
	StateStarted       LotteryState = 1
)

// State derives the global state from the active-round slot.
func (c *Config) State() LotteryState {
	if c == nil {
		return StateUninitialized
	}
	if c.ActiveRound != nil {
		return StateStarted
	}
	return StateReady
}
