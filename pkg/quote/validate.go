package quote

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapmesh/swapmesh/pkg/order"
)

// RawRequest is an incoming swap-quote request before validation, fields
// exactly as the HTTP layer parsed them from the query string. Empty
// string means absent.
type RawRequest struct {
	SellToken       string
	BuyToken        string
	TakerAddress    string
	SellAmount      string
	BuyAmount       string
	ExcludedSources string // comma-separated source names
}

// Request is a normalized, fully-typed quote request. Invariant: exactly
// one of SellAmount/BuyAmount is non-nil.
type Request struct {
	SellToken  order.Token
	BuyToken   order.Token
	Taker      common.Address
	SellAmount *big.Int
	BuyAmount  *big.Int
	Excluded   map[string]struct{}
}

// Validator checks request shape and resolves token identifiers. Pure:
// no clock, no network, no book access.
type Validator struct {
	tokens *order.TokenRegistry
}

func NewValidator(tokens *order.TokenRegistry) *Validator {
	return &Validator{tokens: tokens}
}

// Validate runs every applicable check and aggregates the failures rather
// than short-circuiting, so a client sees the full problem set in one
// round trip. Check order is fixed: required fields in declaration order,
// then the sellAmount/buyAmount exclusivity, then value parsing.
func (v *Validator) Validate(raw RawRequest) (*Request, *ValidationError) {
	var fields []FieldError

	required := []struct {
		name  string
		value string
	}{
		{"sellToken", raw.SellToken},
		{"buyToken", raw.BuyToken},
		{"takerAddress", raw.TakerAddress},
	}
	for _, f := range required {
		if f.value == "" {
			fields = append(fields, FieldError{
				Field:  f.name,
				Code:   CodeRequiredField,
				Reason: fmt.Sprintf("requires property %q", f.name),
			})
		}
	}

	hasSell := raw.SellAmount != ""
	hasBuy := raw.BuyAmount != ""
	if hasSell == hasBuy {
		fields = append(fields, FieldError{
			Field:  "instance",
			Code:   CodeMutualExclusivity,
			Reason: "sellAmount and buyAmount are mutually exclusive; exactly one must be provided",
		})
	}

	req := &Request{Excluded: make(map[string]struct{})}

	if raw.SellToken != "" {
		if tok, err := v.tokens.Resolve(raw.SellToken); err != nil {
			fields = append(fields, invalidValue("sellToken", err))
		} else {
			req.SellToken = tok
		}
	}
	if raw.BuyToken != "" {
		if tok, err := v.tokens.Resolve(raw.BuyToken); err != nil {
			fields = append(fields, invalidValue("buyToken", err))
		} else {
			req.BuyToken = tok
		}
	}
	if raw.TakerAddress != "" {
		if !common.IsHexAddress(raw.TakerAddress) {
			fields = append(fields, invalidValue("takerAddress", fmt.Errorf("not a valid address")))
		} else {
			req.Taker = common.HexToAddress(raw.TakerAddress)
		}
	}
	if hasSell {
		if amt, err := parseAmount(raw.SellAmount); err != nil {
			fields = append(fields, invalidValue("sellAmount", err))
		} else {
			req.SellAmount = amt
		}
	}
	if hasBuy {
		if amt, err := parseAmount(raw.BuyAmount); err != nil {
			fields = append(fields, invalidValue("buyAmount", err))
		} else {
			req.BuyAmount = amt
		}
	}
	for _, name := range strings.Split(raw.ExcludedSources, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Excluded[name] = struct{}{}
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{
			Code:   CodeValidationFailed,
			Reason: "Validation Failed",
			Fields: fields,
		}
	}
	return req, nil
}

func invalidValue(field string, err error) FieldError {
	return FieldError{Field: field, Code: CodeInvalidFieldValue, Reason: err.Error()}
}

// parseAmount parses a base-10 unsigned integer amount string. Amounts
// travel as strings end to end; 18-decimal token units overflow float64
// and JSON safe integers.
func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", s)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return n, nil
}
