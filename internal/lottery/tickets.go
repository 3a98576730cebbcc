package lottery

import (
	"errors"

	"github.com/nantokaworks/ticket-lottery/internal/store"
	"github.com/nantokaworks/ticket-lottery/internal/types"
)

// creditTickets assigns count tickets in round to account. Numbers are
// taken from the round's live ticketsSold counter, so ranges stay
// contiguous across interleaved buyers: every round's tickets are exactly
// [0, ticketsSold) with no gaps and no reuse. Caller holds s.mu.
func (s *Service) creditTickets(round *types.Round, account string, count uint32) error {
	numbers := ticketRange(round.TicketsSold, count)

	position, err := s.store.GetPlayerPosition(round.ID, account)
	switch {
	case errors.Is(err, store.ErrNotFound):
		position = 0
	case err != nil:
		return err
	}

	if position >= 1 && position <= len(round.Players) {
		// Top-up: the account already holds a player slot in this round.
		round.Players[position-1].Tickets = append(round.Players[position-1].Tickets, numbers...)
	} else {
		// No slot, or the index points past the stored player list (a round
		// write lost after the index entry was persisted). Either way the
		// account gets a fresh slot and the index entry is (re)recorded.
		position = len(round.Players) + 1
		round.Players = append(round.Players, types.Player{
			ID:      position,
			RoundID: round.ID,
			Account: account,
			Tickets: numbers,
		})
		if err := s.store.PutPlayerPosition(round.ID, account, position); err != nil {
			return err
		}
	}

	round.TicketsSold += uint64(count)
	return s.store.PutRound(round)
}

func ticketRange(start uint64, count uint32) []uint64 {
	numbers := make([]uint64, count)
	for i := range numbers {
		numbers[i] = start + uint64(i)
	}
	return numbers
}
