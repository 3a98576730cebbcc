package lottery

import (
	crand "crypto/rand"
	"errors"
	"math/big"
)

var errNoTicketsSold = errors.New("no tickets sold")

// drawRandomTicket picks the winning ticket number. Swappable in tests.
var drawRandomTicket = secureRandomTicket

// secureRandomTicket returns a uniform random ticket in [0, ticketsSold).
func secureRandomTicket(ticketsSold uint64) (uint64, error) {
	if ticketsSold == 0 {
		return 0, errNoTicketsSold
	}

	n, err := crand.Int(crand.Reader, new(big.Int).SetUint64(ticketsSold))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// memoSalt returns 16 random bits mixed into correlation memos. The memo's
// uniqueness comes from the store's monotonic sequence; the salt only keeps
// memos unguessable enough that a stranger cannot trivially enumerate them.
func memoSalt() (uint64, error) {
	n, err := crand.Int(crand.Reader, big.NewInt(1<<16))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}
