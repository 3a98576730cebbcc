package store

import (
	"encoding/json"

	"github.com/dgraph-io/badger"
	"github.com/nantokaworks/ticket-lottery/internal/types"
)

const (
	pendingOrderPrefix   = "order/pending/"
	completedOrderPrefix = "order/done/"
)

// PutPendingOrder stores a payment-pending order keyed by its memo.
func (s *Store) PutPendingOrder(o *types.Order) error {
	return s.putJSON(u64Key(pendingOrderPrefix, o.Memo), o)
}

// GetPendingOrder returns the pending order for a memo, or ErrNotFound.
func (s *Store) GetPendingOrder(memo uint64) (*types.Order, error) {
	var o types.Order
	if err := s.getJSON(u64Key(pendingOrderPrefix, memo), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DeletePendingOrder removes a pending order. Returns ErrNotFound when the
// order was already consumed or expired.
func (s *Store) DeletePendingOrder(memo uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := u64Key(pendingOrderPrefix, memo)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// ListPendingOrders returns every payment-pending order in memo order.
func (s *Store) ListPendingOrders() ([]types.Order, error) {
	return s.listOrders(pendingOrderPrefix)
}

// PutCompletedOrder stores a completed order keyed by its memo, preserving
// the full purchase history of every buyer.
func (s *Store) PutCompletedOrder(o *types.Order) error {
	return s.putJSON(u64Key(completedOrderPrefix, o.Memo), o)
}

// ListCompletedOrders returns every completed order in memo order.
func (s *Store) ListCompletedOrders() ([]types.Order, error) {
	return s.listOrders(completedOrderPrefix)
}

func (s *Store) listOrders(prefix string) ([]types.Order, error) {
	orders := []types.Order{}
	err := s.db.View(func(txn *badger.Txn) error {
		return listJSON(txn, []byte(prefix), func(data []byte) error {
			var o types.Order
			if err := json.Unmarshal(data, &o); err != nil {
				return err
			}
			orders = append(orders, o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
