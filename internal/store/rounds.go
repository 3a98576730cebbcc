package store

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger"
	"github.com/nantokaworks/ticket-lottery/internal/types"
)

const roundPrefix = "round/"

// PutRound stores or replaces a round.
func (s *Store) PutRound(r *types.Round) error {
	return s.putJSON(u64Key(roundPrefix, r.ID), r)
}

// GetRound returns the round with the given id, or ErrNotFound.
func (s *Store) GetRound(id uint64) (*types.Round, error) {
	var r types.Round
	if err := s.getJSON(u64Key(roundPrefix, id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRound removes a round and every participation-index entry for it.
func (s *Store) DeleteRound(id uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := u64Key(roundPrefix, id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}

		// Participation-index entries share the round-id key prefix, so a
		// prefix scan finds them all without touching other rounds.
		prefix := u64Key(indexPrefix, id)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRounds returns every stored round in ascending id order.
func (s *Store) ListRounds() ([]types.Round, error) {
	rounds := []types.Round{}
	err := s.db.View(func(txn *badger.Txn) error {
		return listJSON(txn, []byte(roundPrefix), func(data []byte) error {
			var r types.Round
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			rounds = append(rounds, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rounds, nil
}
