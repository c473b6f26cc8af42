package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/swapmesh/swapmesh/pkg/order"
)

// OrderStore persists every order observed from the relay so a restart
// does not begin from zero liquidity. Write-through: the snapshot stays
// authoritative, the store only rehydrates it on boot.
type OrderStore struct {
	db *pebble.DB
}

func NewOrderStore(path string) (*OrderStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &OrderStore{db: db}, nil
}

func (s *OrderStore) Close() error { return s.db.Close() }

// keys: o:<32-byte-order-hash>
func kOrder(h common.Hash) []byte { return append([]byte("o:"), h[:]...) }

func (s *OrderStore) SaveOrder(h common.Hash, o order.Order) error {
	val, err := encodeGob(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if err := s.db.Set(kOrder(h), val, pebble.Sync); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (s *OrderStore) DeleteOrder(h common.Hash) error {
	if err := s.db.Delete(kOrder(h), pebble.Sync); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (s *OrderStore) GetOrder(h common.Hash) (order.Order, bool, error) {
	val, closer, err := s.db.Get(kOrder(h))
	if err == pebble.ErrNotFound {
		return order.Order{}, false, nil
	}
	if err != nil {
		return order.Order{}, false, fmt.Errorf("get order: %w", err)
	}
	defer closer.Close()

	var o order.Order
	if err := decodeGob(val, &o); err != nil {
		return order.Order{}, false, fmt.Errorf("decode order: %w", err)
	}
	return o, true, nil
}

// Each iterates every persisted order. Used on boot to rehydrate the
// snapshot; a decode failure skips the entry rather than aborting the
// whole rehydration.
func (s *OrderStore) Each(fn func(h common.Hash, o order.Order)) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("o:"),
		UpperBound: []byte("o;"), // ';' is ':'+1
	})
	if err != nil {
		return fmt.Errorf("order iter: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != 2+common.HashLength {
			continue
		}
		var h common.Hash
		copy(h[:], key[2:])

		var o order.Order
		if err := decodeGob(iter.Value(), &o); err != nil {
			continue
		}
		fn(h, o)
	}
	return iter.Error()
}
