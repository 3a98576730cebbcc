package lottery

import "errors"

// Sentinel errors for every failure the lottery reports to callers.
// Handlers map these to wire error kinds via KindOf.
var (
	ErrNotInitialized     = errors.New("lottery not yet initialized")
	ErrAlreadyInitialized = errors.New("lottery already initialized")
	ErrInvalidConfig      = errors.New("invalid lottery configuration")
	ErrEmptyPrizePool     = errors.New("prize pool is empty, please try again later")

	ErrRoundInProgress = errors.New("cannot start new lottery, a round is already open")
	ErrNoOpenRound     = errors.New("cannot buy tickets, no round is open")
	ErrRoundNotOver    = errors.New("lottery not yet over")
	ErrRoundClosed     = errors.New("lottery already ended")
	ErrSalesClosed     = errors.New("lottery over, can't buy tickets")
	ErrRoundNotDrawn   = errors.New("lottery not yet ended, winner not drawn")
	ErrAlreadyPaidOut  = errors.New("winner already selected")
	ErrPayoutPending   = errors.New("lottery payout not yet finalized")

	ErrRoundNotFound   = errors.New("lottery round not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNoParticipation = errors.New("no lottery information for this account")

	ErrPaymentVerification = errors.New("payment verification failed")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrOrderStatus         = errors.New("order is in an unexpected status")
	ErrNotWinner           = errors.New("sorry, you're not the winner")

	ErrInvalidInput = errors.New("invalid input")
)

// Kind is the wire-level error classification.
type Kind string

const (
	KindConfigError   Kind = "ConfigError"
	KindStateError    Kind = "StateError"
	KindNotFound      Kind = "NotFound"
	KindPaymentError  Kind = "PaymentError"
	KindPaymentFailed Kind = "PaymentFailed"
	KindOrderError    Kind = "OrderError"
	KindNotWinner     Kind = "NotWinner"
	KindInvalidInput  Kind = "InvalidInput"
	KindInternal      Kind = "Internal"
)

// KindOf classifies an error returned by the lottery service.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrAlreadyInitialized),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrEmptyPrizePool):
		return KindConfigError
	case errors.Is(err, ErrRoundInProgress),
		errors.Is(err, ErrNoOpenRound),
		errors.Is(err, ErrRoundNotOver),
		errors.Is(err, ErrRoundClosed),
		errors.Is(err, ErrSalesClosed),
		errors.Is(err, ErrRoundNotDrawn),
		errors.Is(err, ErrAlreadyPaidOut),
		errors.Is(err, ErrPayoutPending):
		return KindStateError
	case errors.Is(err, ErrRoundNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrNoParticipation):
		return KindNotFound
	case errors.Is(err, ErrPaymentVerification):
		return KindPaymentError
	case errors.Is(err, ErrPaymentFailed):
		return KindPaymentFailed
	case errors.Is(err, ErrOrderStatus):
		return KindOrderError
	case errors.Is(err, ErrNotWinner):
		return KindNotWinner
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
