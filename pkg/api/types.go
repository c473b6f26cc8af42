package api

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/quote"
	"github.com/swapmesh/swapmesh/pkg/source"
)

// API request/response types. Amounts travel as base-10 integer strings:
// 18-decimal token units exceed JSON's safe integer range.

// QuoteResponse is the body of a successful GET /swap/v1/quote.
type QuoteResponse struct {
	Price            string `json:"price"`
	BuyAmount        string `json:"buyAmount"`
	SellTokenAddress string `json:"sellTokenAddress"`
	BuyTokenAddress  string `json:"buyTokenAddress"`
}

func toQuoteResponse(q *quote.Quote) QuoteResponse {
	return QuoteResponse{
		Price:            q.Price,
		BuyAmount:        q.BuyAmount.String(),
		SellTokenAddress: q.SellTokenAddress.Hex(),
		BuyTokenAddress:  q.BuyTokenAddress.Hex(),
	}
}

// ErrorResponse is returned for all errors. ValidationErrors is populated
// only for aggregated request-validation failures.
type ErrorResponse struct {
	Code             int                `json:"code"`
	Reason           string             `json:"reason"`
	ValidationErrors []quote.FieldError `json:"validationErrors,omitempty"`
}

// SourceInfo describes one registered liquidity source. Priority is the
// tiebreak rank applied when two routes price identically (lower wins).
type SourceInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Priority int    `json:"priority"`
}

// OrderEntry is the JSON form of a signed order.
type OrderEntry struct {
	Maker       string `json:"maker"`
	MakerAsset  string `json:"makerAsset"`
	TakerAsset  string `json:"takerAsset"`
	MakerAmount string `json:"makerAmount"`
	TakerAmount string `json:"takerAmount"`
	Expiry      uint64 `json:"expiry"`
	Salt        string `json:"salt"`
	Source      string `json:"source"`
	Signature   string `json:"signature"` // 0x-prefixed hex, 65 bytes
}

func toOrderEntry(o order.Order) OrderEntry {
	salt := "0"
	if o.Salt != nil {
		salt = o.Salt.String()
	}
	return OrderEntry{
		Maker:       o.Maker.Hex(),
		MakerAsset:  o.MakerAsset.Hex(),
		TakerAsset:  o.TakerAsset.Hex(),
		MakerAmount: o.MakerAmount.String(),
		TakerAmount: o.TakerAmount.String(),
		Expiry:      o.Expiry,
		Salt:        salt,
		Source:      string(o.Source),
		Signature:   hexutil.Encode(o.Signature),
	}
}

func (e OrderEntry) toOrder() (order.Order, error) {
	var o order.Order
	for _, f := range []struct {
		name, val string
	}{
		{"maker", e.Maker}, {"makerAsset", e.MakerAsset}, {"takerAsset", e.TakerAsset},
	} {
		if !common.IsHexAddress(f.val) {
			return o, fmt.Errorf("%s: not a valid address", f.name)
		}
	}
	makerAmount, ok := new(big.Int).SetString(e.MakerAmount, 10)
	if !ok {
		return o, fmt.Errorf("makerAmount: not a base-10 integer")
	}
	takerAmount, ok := new(big.Int).SetString(e.TakerAmount, 10)
	if !ok {
		return o, fmt.Errorf("takerAmount: not a base-10 integer")
	}
	salt := big.NewInt(0)
	if e.Salt != "" {
		if salt, ok = new(big.Int).SetString(e.Salt, 10); !ok {
			return o, fmt.Errorf("salt: not a base-10 integer")
		}
	}
	sig, err := hexutil.Decode(e.Signature)
	if err != nil {
		return o, fmt.Errorf("signature: %v", err)
	}

	o = order.Order{
		Maker:       common.HexToAddress(e.Maker),
		MakerAsset:  common.HexToAddress(e.MakerAsset),
		TakerAsset:  common.HexToAddress(e.TakerAsset),
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Expiry:      e.Expiry,
		Salt:        salt,
		Source:      source.ID(e.Source),
		Signature:   sig,
	}
	return o, nil
}

// SubmitOrdersRequest is the body of POST /swap/v1/orders.
type SubmitOrdersRequest struct {
	Orders []OrderEntry `json:"orders"`
}

// RejectedOrder reports one order in a submitted batch that failed
// verification. Index refers to the request batch.
type RejectedOrder struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type SubmitOrdersResponse struct {
	Accepted int             `json:"accepted"`
	Rejected []RejectedOrder `json:"rejected,omitempty"`
}

// OrderbookResponse lists live orders for a pair.
type OrderbookResponse struct {
	Orders    []OrderEntry `json:"orders"`
	Timestamp int64        `json:"timestamp"` // Unix milliseconds
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by a client to manage channel subscriptions,
// e.g. {"op":"subscribe","channels":["orders"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// OrderEventUpdate is broadcast on every applied order event.
type OrderEventUpdate struct {
	Type      string      `json:"type"` // "order_added" | "order_removed" | "order_expired"
	Hash      string      `json:"hash"`
	Order     *OrderEntry `json:"order,omitempty"`
	Timestamp int64       `json:"timestamp"`
}
