package book

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/swapmesh/swapmesh/pkg/crypto"
	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/source"
	"github.com/swapmesh/swapmesh/pkg/util"
)

// pairKey identifies a (makerAsset, takerAsset) pair. Direction matters:
// WETH->ZRX and ZRX->WETH are distinct books.
type pairKey common.Hash

func keyFor(makerAsset, takerAsset common.Address) pairKey {
	h := sha3.NewLegacyKeccak256()
	h.Write(makerAsset.Bytes())
	h.Write(takerAsset.Bytes())
	var k pairKey
	copy(k[:], h.Sum(nil))
	return k
}

// Listener observes applied order events (e.g. the websocket hub, the
// persistent store). Listeners must not block.
type Listener func(ev order.Event)

// Snapshot is an eventually-consistent view of live orders observed from
// the relay network. A single background task applies events while request
// handlers read concurrently; readers only block for the critical section
// of a map swap.
type Snapshot struct {
	mu      sync.RWMutex
	orders  map[common.Hash]order.Order
	byPair  map[pairKey]map[common.Hash]struct{}
	hasher  *crypto.OrderHasher
	clock   util.Clock
	log     *zap.SugaredLogger
	listens []Listener
}

func NewSnapshot(hasher *crypto.OrderHasher, clock util.Clock, log *zap.SugaredLogger) *Snapshot {
	return &Snapshot{
		orders: make(map[common.Hash]order.Order),
		byPair: make(map[pairKey]map[common.Hash]struct{}),
		hasher: hasher,
		clock:  clock,
		log:    log,
	}
}

// Subscribe registers a listener for applied events. Safe to call while
// events are being applied; the listener observes only events applied
// after registration.
func (s *Snapshot) Subscribe(l Listener) {
	s.mu.Lock()
	s.listens = append(s.listens, l)
	s.mu.Unlock()
}

// Apply folds one relay event into the view. Duplicate adds (the relay
// gossips our own submissions back) and removes for unknown hashes are
// no-ops. Malformed orders are dropped with a log line, never an error:
// a stale or garbled gossip message must not take down the feed.
func (s *Snapshot) Apply(ev order.Event) {
	switch ev.Type {
	case order.EventAdded:
		s.applyAdd(ev)
	case order.EventRemoved, order.EventExpired:
		s.applyRemove(ev)
	default:
		if s.log != nil {
			s.log.Warnw("order_event_unknown_type", "type", int(ev.Type))
		}
	}
}

func (s *Snapshot) applyAdd(ev order.Event) {
	o := ev.Order
	if err := o.CheckAmounts(); err != nil {
		if s.log != nil {
			s.log.Warnw("order_rejected", "err", err, "source", string(o.Source))
		}
		return
	}
	h, err := s.hasher.Digest(&o)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("order_hash_failed", "err", err)
		}
		return
	}
	if o.Expired(uint64(s.clock.Now().Unix())) {
		return
	}

	s.mu.Lock()
	if _, dup := s.orders[h]; dup {
		s.mu.Unlock()
		return
	}
	s.orders[h] = o
	pk := keyFor(o.MakerAsset, o.TakerAsset)
	if s.byPair[pk] == nil {
		s.byPair[pk] = make(map[common.Hash]struct{})
	}
	s.byPair[pk][h] = struct{}{}
	s.mu.Unlock()

	ev.Hash = h
	s.notify(ev)
}

func (s *Snapshot) applyRemove(ev order.Event) {
	s.mu.Lock()
	o, ok := s.orders[ev.Hash]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.orders, ev.Hash)
	pk := keyFor(o.MakerAsset, o.TakerAsset)
	delete(s.byPair[pk], ev.Hash)
	if len(s.byPair[pk]) == 0 {
		delete(s.byPair, pk)
	}
	s.mu.Unlock()

	ev.Order = o
	s.notify(ev)
}

func (s *Snapshot) notify(ev order.Event) {
	s.mu.RLock()
	listens := make([]Listener, len(s.listens))
	copy(listens, s.listens)
	s.mu.RUnlock()

	for _, l := range listens {
		l(ev)
	}
}

// OrdersFor returns currently known, non-expired orders selling buyToken
// for sellToken, restricted to the given sources. Result ordering is
// stable (sorted by order hash) but otherwise unspecified; the resolver
// imposes its own price ordering. With no relay connection the view is
// simply empty: callers get "no liquidity", never an error.
func (s *Snapshot) OrdersFor(sellToken, buyToken common.Address, sources []source.ID) []order.Order {
	allowed := make(map[source.ID]struct{}, len(sources))
	for _, id := range sources {
		allowed[id] = struct{}{}
	}
	nowUnix := uint64(s.clock.Now().Unix())
	pk := keyFor(buyToken, sellToken) // maker gives buyToken, takes sellToken

	s.mu.RLock()
	hashes := make([]common.Hash, 0, len(s.byPair[pk]))
	for h := range s.byPair[pk] {
		hashes = append(hashes, h)
	}
	out := make([]order.Order, 0, len(hashes))
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Cmp(hashes[j]) < 0
	})
	for _, h := range hashes {
		o := s.orders[h]
		if o.Expired(nowUnix) {
			continue
		}
		if _, ok := allowed[o.Source]; !ok {
			continue
		}
		out = append(out, o)
	}
	s.mu.RUnlock()

	return out
}

// Prune drops expired orders and reports them as EventExpired to the
// listeners. Run periodically from the node's background loop.
func (s *Snapshot) Prune() int {
	nowUnix := uint64(s.clock.Now().Unix())

	s.mu.Lock()
	var dropped []order.Event
	for h, o := range s.orders {
		if !o.Expired(nowUnix) {
			continue
		}
		delete(s.orders, h)
		pk := keyFor(o.MakerAsset, o.TakerAsset)
		delete(s.byPair[pk], h)
		if len(s.byPair[pk]) == 0 {
			delete(s.byPair, pk)
		}
		dropped = append(dropped, order.Event{Type: order.EventExpired, Order: o, Hash: h})
	}
	s.mu.Unlock()

	for _, ev := range dropped {
		s.notify(ev)
	}
	if len(dropped) > 0 && s.log != nil {
		s.log.Infow("orders_pruned", "count", len(dropped))
	}
	return len(dropped)
}

// Len reports the number of live orders across all pairs.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// Get looks up a live order by hash.
func (s *Snapshot) Get(h common.Hash) (order.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[h]
	return o, ok
}
