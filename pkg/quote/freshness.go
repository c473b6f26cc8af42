package quote

import (
	"time"

	"go.uber.org/zap"

	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/util"
)

// Alert is the diagnostic record emitted when a selected order's expiry
// lies suspiciously far in the future. It exists only for the duration of
// a sink emission; nothing persists it.
type Alert struct {
	Order  order.Order
	Index  int // position of the offender in the checked batch
	Buffer time.Duration
	Detail string
}

// AlertSink receives advisory alerts. Emission is fire-and-forget: the
// core never awaits or depends on its completion.
type AlertSink interface {
	RecordError(a Alert)
}

// ZapAlertSink logs alerts through a zap sugared logger.
type ZapAlertSink struct {
	Log *zap.SugaredLogger
}

func (s ZapAlertSink) RecordError(a Alert) {
	s.Log.Warnw("order_expiry_exceeds_buffer",
		"maker", a.Order.Maker.Hex(),
		"maker_asset", a.Order.MakerAsset.Hex(),
		"taker_asset", a.Order.TakerAsset.Hex(),
		"expiry", a.Order.Expiry,
		"buffer_seconds", int64(a.Buffer/time.Second),
		"index", a.Index,
		"detail", a.Detail,
	)
}

// FreshnessGuard flags orders whose expiry exceeds now+buffer. Long-tail
// "sleeper" orders are not invalid, but they are suspicious enough (stale
// inventory, replay exposure) to warrant operator visibility.
type FreshnessGuard struct {
	buffer time.Duration
	clock  util.Clock
	sink   AlertSink
}

func NewFreshnessGuard(buffer time.Duration, clock util.Clock, sink AlertSink) *FreshnessGuard {
	return &FreshnessGuard{buffer: buffer, clock: clock, sink: sink}
}

// Check scans the batch once and emits at most one alert, for the first
// offender in iteration order. A sampling signal, not an exhaustive audit:
// one flagged order is enough to tell an operator to look. Empty batch is
// a no-op. Strict greater-than: expiry == now+buffer is acceptable.
// Never returns anything and never blocks the caller's flow.
func (g *FreshnessGuard) Check(orders []order.Order, detail string) {
	if len(orders) == 0 {
		return
	}
	threshold := uint64(g.clock.Now().Unix()) + uint64(g.buffer/time.Second)
	for i, o := range orders {
		if o.Expiry > threshold {
			g.sink.RecordError(Alert{Order: o, Index: i, Buffer: g.buffer, Detail: detail})
			return
		}
	}
}
