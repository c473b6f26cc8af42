package quote

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/util"
)

// recordingSink captures alerts for assertions.
type recordingSink struct {
	alerts []Alert
}

func (s *recordingSink) RecordError(a Alert) { s.alerts = append(s.alerts, a) }

func orderExpiring(expiry uint64) order.Order {
	return order.Order{
		Maker:       common.HexToAddress("0x1000000000000000000000000000000000000001"),
		MakerAsset:  common.HexToAddress("0x2000000000000000000000000000000000000002"),
		TakerAsset:  common.HexToAddress("0x3000000000000000000000000000000000000003"),
		MakerAmount: big.NewInt(100),
		TakerAmount: big.NewInt(50),
		Expiry:      expiry,
		Source:      "mesh",
	}
}

func TestFreshnessGuard_Check(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	buffer := 120 * time.Second
	threshold := uint64(now.Unix()) + 120

	tests := []struct {
		name       string
		expiries   []uint64
		wantAlerts int
		wantIndex  int
	}{
		{
			name:       "empty batch is a no-op",
			expiries:   nil,
			wantAlerts: 0,
		},
		{
			name:       "all within buffer",
			expiries:   []uint64{threshold - 60, threshold - 1, threshold},
			wantAlerts: 0,
		},
		{
			name:       "boundary expiry equal to now+buffer is not flagged",
			expiries:   []uint64{threshold},
			wantAlerts: 0,
		},
		{
			name:       "one second past the boundary is flagged",
			expiries:   []uint64{threshold + 1},
			wantAlerts: 1,
			wantIndex:  0,
		},
		{
			name:       "single offender mid-batch",
			expiries:   []uint64{threshold - 10, threshold + 500, threshold - 5},
			wantAlerts: 1,
			wantIndex:  1,
		},
		{
			name:       "multiple offenders report only the first by position",
			expiries:   []uint64{threshold - 10, threshold + 500, threshold + 9000, threshold + 1},
			wantAlerts: 1,
			wantIndex:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			guard := NewFreshnessGuard(buffer, util.FixedClock{T: now}, sink)

			batch := make([]order.Order, len(tt.expiries))
			for i, e := range tt.expiries {
				batch[i] = orderExpiring(e)
			}
			guard.Check(batch, "test batch")

			if len(sink.alerts) != tt.wantAlerts {
				t.Fatalf("alerts = %d, want %d", len(sink.alerts), tt.wantAlerts)
			}
			if tt.wantAlerts == 0 {
				return
			}
			a := sink.alerts[0]
			if a.Index != tt.wantIndex {
				t.Errorf("alert index = %d, want %d", a.Index, tt.wantIndex)
			}
			if a.Order.Expiry != tt.expiries[tt.wantIndex] {
				t.Errorf("alert expiry = %d, want %d", a.Order.Expiry, tt.expiries[tt.wantIndex])
			}
			if a.Buffer != buffer {
				t.Errorf("alert buffer = %v, want %v", a.Buffer, buffer)
			}
			if a.Detail != "test batch" {
				t.Errorf("alert detail = %q", a.Detail)
			}
		})
	}
}

func TestFreshnessGuard_ZeroBuffer(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sink := &recordingSink{}
	guard := NewFreshnessGuard(0, util.FixedClock{T: now}, sink)

	// With a zero buffer anything expiring after now is an offender.
	guard.Check([]order.Order{orderExpiring(uint64(now.Unix()) + 1)}, "")
	if len(sink.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(sink.alerts))
	}

	sink.alerts = nil
	guard.Check([]order.Order{orderExpiring(uint64(now.Unix()))}, "")
	if len(sink.alerts) != 0 {
		t.Fatalf("alerts = %d, want 0", len(sink.alerts))
	}
}
