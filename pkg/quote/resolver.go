package quote

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/swapmesh/swapmesh/pkg/book"
	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/source"
)

// Quote is the computed, non-binding answer to a swap request. Derived per
// request, never persisted.
type Quote struct {
	Price            string // decimal ratio buyAmount/sellAmount
	SellAmount       *big.Int
	BuyAmount        *big.Int
	SellTokenAddress common.Address
	BuyTokenAddress  common.Address
	Source           source.ID
	Orders           []order.Order // selected fills, iteration order = fill order
}

// Resolver turns a validated request into the best achievable quote
// against the current order snapshot. Resolution is a single bounded
// CPU-only computation: deterministic for a fixed snapshot, no I/O, no
// randomness.
type Resolver struct {
	sources *source.Registry
	book    *book.Snapshot
	guard   *FreshnessGuard
	digits  int
	log     *zap.SugaredLogger
}

func NewResolver(sources *source.Registry, bk *book.Snapshot, guard *FreshnessGuard, priceDigits int, log *zap.SugaredLogger) *Resolver {
	return &Resolver{sources: sources, book: bk, guard: guard, digits: priceDigits, log: log}
}

// route is one source's greedy fill for the requested side.
type route struct {
	src        source.ID
	sellAmount *big.Int
	buyAmount  *big.Int
	price      *big.Rat // buyAmount / sellAmount, higher is better for the taker
	orders     []order.Order
}

// Resolve picks the single best route across eligible sources. Within a
// source, orders are taken greedily best-rate-first until the requested
// side is covered. Across sources, the highest effective price wins; ties
// keep the earlier source in the registry's priority order. Before the
// quote is returned the selected orders pass through the freshness guard,
// which may log but never fails the request.
func (r *Resolver) Resolve(req *Request) (*Quote, error) {
	eligible := r.sources.Eligible(req.Excluded)
	if len(eligible) == 0 {
		return nil, ErrInsufficientLiquidity
	}

	candidates := r.book.OrdersFor(req.SellToken.Address, req.BuyToken.Address, eligible)

	bySource := make(map[source.ID][]order.Order, len(eligible))
	for _, o := range candidates {
		if err := o.CheckAmounts(); err != nil {
			// The book filters malformed orders on ingest, so hitting one
			// here is an invariant violation, not a client problem.
			r.log.Errorw("pricing_invariant_violated",
				"err", err,
				"maker", o.Maker.Hex(),
				"source", string(o.Source))
			return nil, fmt.Errorf("%w: %v", ErrInternalPricing, err)
		}
		bySource[o.Source] = append(bySource[o.Source], o)
	}

	var best *route
	for _, src := range eligible { // priority order; strict improvement keeps ties on the earlier source
		orders, ok := bySource[src]
		if !ok {
			continue
		}
		rt := buildRoute(src, orders, req)
		if rt == nil {
			continue
		}
		if best == nil || rt.price.Cmp(best.price) > 0 {
			best = rt
		}
	}
	if best == nil {
		return nil, ErrInsufficientLiquidity
	}

	r.guard.Check(best.orders, fmt.Sprintf("quote %s->%s via %s",
		req.SellToken.Symbol, req.BuyToken.Symbol, best.src))

	return &Quote{
		Price:            formatPrice(best.price, r.digits),
		SellAmount:       best.sellAmount,
		BuyAmount:        best.buyAmount,
		SellTokenAddress: req.SellToken.Address,
		BuyTokenAddress:  req.BuyToken.Address,
		Source:           best.src,
		Orders:           best.orders,
	}, nil
}

// buildRoute runs the greedy best-rate-first selection for one source.
// Returns nil when the source cannot cover the requested side.
func buildRoute(src source.ID, orders []order.Order, req *Request) *route {
	// Best maker/taker rate first. Input arrives hash-sorted from the
	// snapshot, so the stable sort keeps selection deterministic.
	sorted := make([]order.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rate().Cmp(sorted[j].Rate()) > 0
	})

	if req.BuyAmount != nil {
		return fillBuyExact(src, sorted, req.BuyAmount)
	}
	return fillSellExact(src, sorted, req.SellAmount)
}

// fillBuyExact covers an exact buy amount, minimizing the sell amount
// spent. Partial fills of the marginal order round the sell side up: the
// maker's rate is never undercut.
func fillBuyExact(src source.ID, sorted []order.Order, buyAmount *big.Int) *route {
	remaining := new(big.Int).Set(buyAmount)
	sellSum := new(big.Int)
	var used []order.Order

	for _, o := range sorted {
		if remaining.Sign() == 0 {
			break
		}
		take := min(remaining, o.MakerAmount)
		// ceil(take * takerAmount / makerAmount)
		num := new(big.Int).Mul(take, o.TakerAmount)
		sell := new(big.Int)
		rem := new(big.Int)
		sell.DivMod(num, o.MakerAmount, rem)
		if rem.Sign() != 0 {
			sell.Add(sell, big.NewInt(1))
		}
		sellSum.Add(sellSum, sell)
		remaining.Sub(remaining, take)
		used = append(used, o)
	}
	if remaining.Sign() != 0 || sellSum.Sign() == 0 {
		return nil
	}
	return &route{
		src:        src,
		sellAmount: sellSum,
		buyAmount:  new(big.Int).Set(buyAmount),
		price:      new(big.Rat).SetFrac(buyAmount, sellSum),
		orders:     used,
	}
}

// fillSellExact spends an exact sell amount, maximizing the buy amount
// received. Partial fills round the buy side down.
func fillSellExact(src source.ID, sorted []order.Order, sellAmount *big.Int) *route {
	remaining := new(big.Int).Set(sellAmount)
	buySum := new(big.Int)
	var used []order.Order

	for _, o := range sorted {
		if remaining.Sign() == 0 {
			break
		}
		take := min(remaining, o.TakerAmount)
		// floor(take * makerAmount / takerAmount)
		buy := new(big.Int).Mul(take, o.MakerAmount)
		buy.Div(buy, o.TakerAmount)
		buySum.Add(buySum, buy)
		remaining.Sub(remaining, take)
		used = append(used, o)
	}
	if remaining.Sign() != 0 || buySum.Sign() == 0 {
		return nil
	}
	return &route{
		src:        src,
		sellAmount: new(big.Int).Set(sellAmount),
		buyAmount:  buySum,
		price:      new(big.Rat).SetFrac(buySum, sellAmount),
		orders:     used,
	}
}

func min(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// formatPrice renders a ratio as a decimal string with up to digits
// fractional places, trailing zeros trimmed. Fixed-point all the way:
// float64 cannot hold 18-decimal token amounts.
func formatPrice(p *big.Rat, digits int) string {
	s := p.FloatString(digits)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
