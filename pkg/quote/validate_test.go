package quote

import (
	"testing"

	"github.com/swapmesh/swapmesh/pkg/order"
)

func newTestValidator() *Validator {
	return NewValidator(order.NewTokenRegistry(order.DefaultTokens()))
}

const takerAddr = "0x5409ED021D9299bf6814279A6A1411A7e866A631"

func TestValidate_Success(t *testing.T) {
	v := newTestValidator()

	req, verr := v.Validate(RawRequest{
		SellToken:       "WETH",
		BuyToken:        "ZRX",
		TakerAddress:    takerAddr,
		BuyAmount:       "100000000000000000000",
		ExcludedSources: "pool0, pool1",
	})
	if verr != nil {
		t.Fatalf("unexpected validation failure: %v", verr)
	}

	if req.SellToken.Symbol != "WETH" {
		t.Errorf("sell token = %s, want WETH", req.SellToken.Symbol)
	}
	if req.BuyToken.Symbol != "ZRX" {
		t.Errorf("buy token = %s, want ZRX", req.BuyToken.Symbol)
	}
	if req.SellAmount != nil {
		t.Error("sellAmount should be nil for a buy-exact request")
	}
	if req.BuyAmount == nil || req.BuyAmount.String() != "100000000000000000000" {
		t.Errorf("buyAmount = %v", req.BuyAmount)
	}
	if len(req.Excluded) != 2 {
		t.Errorf("excluded = %v, want 2 entries", req.Excluded)
	}
	if _, ok := req.Excluded["pool0"]; !ok {
		t.Error("pool0 not excluded")
	}
}

func TestValidate_TokenAsAddress(t *testing.T) {
	v := newTestValidator()

	req, verr := v.Validate(RawRequest{
		SellToken:    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		BuyToken:     "ZRX",
		TakerAddress: takerAddr,
		SellAmount:   "1000",
	})
	if verr != nil {
		t.Fatalf("unexpected validation failure: %v", verr)
	}
	if req.SellToken.Symbol != "WETH" {
		t.Errorf("address did not resolve to WETH, got %s", req.SellToken.Symbol)
	}
}

func TestValidate_Failures(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		raw  RawRequest
		want []FieldError
	}{
		{
			name: "both amounts set",
			raw: RawRequest{
				SellToken: "WETH", BuyToken: "ZRX", TakerAddress: takerAddr,
				SellAmount: "100", BuyAmount: "100",
			},
			want: []FieldError{
				{Field: "instance", Code: CodeMutualExclusivity},
			},
		},
		{
			name: "neither amount set",
			raw: RawRequest{
				SellToken: "WETH", BuyToken: "ZRX", TakerAddress: takerAddr,
			},
			want: []FieldError{
				{Field: "instance", Code: CodeMutualExclusivity},
			},
		},
		{
			name: "missing taker address",
			raw: RawRequest{
				SellToken: "WETH", BuyToken: "ZRX", SellAmount: "100",
			},
			want: []FieldError{
				{Field: "takerAddress", Code: CodeRequiredField},
			},
		},
		{
			name: "everything missing yields four errors in declaration order",
			raw:  RawRequest{},
			want: []FieldError{
				{Field: "sellToken", Code: CodeRequiredField},
				{Field: "buyToken", Code: CodeRequiredField},
				{Field: "takerAddress", Code: CodeRequiredField},
				{Field: "instance", Code: CodeMutualExclusivity},
			},
		},
		{
			name: "unknown token symbol",
			raw: RawRequest{
				SellToken: "NOPE", BuyToken: "ZRX", TakerAddress: takerAddr, SellAmount: "100",
			},
			want: []FieldError{
				{Field: "sellToken", Code: CodeInvalidFieldValue},
			},
		},
		{
			name: "malformed amount",
			raw: RawRequest{
				SellToken: "WETH", BuyToken: "ZRX", TakerAddress: takerAddr, SellAmount: "12x4",
			},
			want: []FieldError{
				{Field: "sellAmount", Code: CodeInvalidFieldValue},
			},
		},
		{
			name: "negative amount",
			raw: RawRequest{
				SellToken: "WETH", BuyToken: "ZRX", TakerAddress: takerAddr, BuyAmount: "-5",
			},
			want: []FieldError{
				{Field: "buyAmount", Code: CodeInvalidFieldValue},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, verr := v.Validate(tt.raw)
			if verr == nil {
				t.Fatalf("expected validation failure, got request %+v", req)
			}
			if verr.Code != CodeValidationFailed {
				t.Errorf("top-level code = %d, want %d", verr.Code, CodeValidationFailed)
			}
			if verr.Reason != "Validation Failed" {
				t.Errorf("top-level reason = %q", verr.Reason)
			}
			if len(verr.Fields) != len(tt.want) {
				t.Fatalf("got %d field errors %v, want %d", len(verr.Fields), verr.Fields, len(tt.want))
			}
			for i, want := range tt.want {
				got := verr.Fields[i]
				if got.Field != want.Field || got.Code != want.Code {
					t.Errorf("error[%d] = {%s %d}, want {%s %d}", i, got.Field, got.Code, want.Field, want.Code)
				}
				if got.Reason == "" {
					t.Errorf("error[%d] has empty reason", i)
				}
			}
		})
	}
}
