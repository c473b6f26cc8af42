package order

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapmesh/swapmesh/pkg/source"
)

// Order is a signed, off-chain commitment to exchange MakerAmount of
// MakerAsset for TakerAmount of TakerAsset, valid until Expiry. Orders are
// immutable once observed; identity is the EIP-712 digest of the struct.
type Order struct {
	Maker       common.Address
	MakerAsset  common.Address
	TakerAsset  common.Address
	MakerAmount *big.Int
	TakerAmount *big.Int
	Expiry      uint64 // Unix seconds
	Salt        *big.Int
	Source      source.ID
	Signature   []byte // [R || S || V], 65 bytes, opaque to the core
}

var (
	ErrNilAmount     = errors.New("order amount is nil")
	ErrNonPositive   = errors.New("order amount must be positive")
	ErrMissingAsset  = errors.New("order asset address is zero")
	ErrMissingSource = errors.New("order source is empty")
)

// CheckAmounts rejects orders whose amounts cannot price: nil, zero or
// negative values would produce a non-finite or meaningless ratio.
func (o *Order) CheckAmounts() error {
	if o.MakerAmount == nil || o.TakerAmount == nil {
		return ErrNilAmount
	}
	if o.MakerAmount.Sign() <= 0 || o.TakerAmount.Sign() <= 0 {
		return ErrNonPositive
	}
	if o.MakerAsset == (common.Address{}) || o.TakerAsset == (common.Address{}) {
		return ErrMissingAsset
	}
	if o.Source == "" {
		return ErrMissingSource
	}
	return nil
}

// Expired reports whether the order is past its expiry at the given Unix
// second. Boundary: an order expiring exactly now is still live.
func (o *Order) Expired(nowUnix uint64) bool {
	return o.Expiry < nowUnix
}

// Rate returns the maker-per-taker price ratio. Callers must have checked
// amounts first; a zero taker amount panics in big.Rat.
func (o *Order) Rate() *big.Rat {
	return new(big.Rat).SetFrac(o.MakerAmount, o.TakerAmount)
}

// EventType tags relay network order events.
type EventType int

const (
	EventAdded EventType = iota + 1
	EventRemoved // filled, cancelled or dropped upstream
	EventExpired
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event is a single order-added/order-removed notification from the relay
// network subscription.
type Event struct {
	Type  EventType
	Order Order       // populated for EventAdded
	Hash  common.Hash // populated for EventRemoved/EventExpired
}
