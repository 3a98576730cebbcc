package store

import (
	"encoding/binary"
)

// The participation index maps (roundID, account) directly to the player's
// 1-based position within that round. The composite key replaces the
// token-set indirection a plain key-value lookup would otherwise need.
const indexPrefix = "idx/"

func indexKey(roundID uint64, account string) []byte {
	key := u64Key(indexPrefix, roundID)
	key = append(key, '/')
	return append(key, account...)
}

// PutPlayerPosition records the player position for an account in a round.
func (s *Store) PutPlayerPosition(roundID uint64, account string, position int) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(position))
	return s.putRaw(indexKey(roundID, account), buf[:])
}

// GetPlayerPosition returns the player position for an account in a round,
// or ErrNotFound when the account never participated.
func (s *Store) GetPlayerPosition(roundID uint64, account string) (int, error) {
	var data []byte
	if err := s.getRaw(indexKey(roundID, account), &data); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(data)), nil
}
