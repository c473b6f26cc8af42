package relay

import (
	"bytes"
	"encoding/gob"
)

func init() {
	gob.Register(OrderAddedWire{})
	gob.Register(OrderRemovedWire{})
}

type OrderAddedWire struct {
	Order []byte // gob-encoded order.Order
}

type OrderRemovedWire struct {
	Hash   [32]byte
	Reason string // "filled" | "cancelled" | "expired"
}

func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
