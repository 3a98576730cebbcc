package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
)

// ErrNotFound is returned when a key is absent from any of the maps.
var ErrNotFound = errors.New("record not found")

const memoSeqBandwidth = 64

// Store wraps a BadgerDB instance holding the lottery's five durable maps:
// rounds, the participation index, pending orders, completed orders, and
// the configuration singleton. Keys within each map iterate in order.
type Store struct {
	db      *badger.DB
	memoSeq *badger.Sequence
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	seq, err := db.GetSequence([]byte("seq/memo"), memoSeqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open memo sequence: %w", err)
	}

	logger.Info("Store opened")
	return &Store{db: db, memoSeq: seq}, nil
}

// Close releases the memo sequence and closes the database.
func (s *Store) Close() error {
	if err := s.memoSeq.Release(); err != nil {
		logger.Warn("Failed to release memo sequence")
	}
	return s.db.Close()
}

// NextMemoSeq returns the next value of the monotonic memo sequence. The
// sequence is durable: values are never reissued across restarts.
func (s *Store) NextMemoSeq() (uint64, error) {
	n, err := s.memoSeq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to advance memo sequence: %w", err)
	}
	return n, nil
}

func u64Key(prefix string, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}

func (s *Store) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *Store) putRaw(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *Store) getRaw(key []byte, out *[]byte) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		*out = data
		return nil
	})
}

func (s *Store) getJSON(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, v)
	})
}

// listJSON appends every value under prefix, in key order, via decode.
func listJSON(txn *badger.Txn, prefix []byte, decode func([]byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		data, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := decode(data); err != nil {
			return err
		}
	}
	return nil
}
