package order

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token is already-resolved token metadata. The core never reads chain
// state; the table is seeded at startup.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// TokenRegistry resolves request token identifiers (symbol or hex address)
// to token metadata.
type TokenRegistry struct {
	mu       sync.RWMutex
	bySymbol map[string]Token
	byAddr   map[common.Address]Token
}

func NewTokenRegistry(tokens []Token) *TokenRegistry {
	r := &TokenRegistry{
		bySymbol: make(map[string]Token, len(tokens)),
		byAddr:   make(map[common.Address]Token, len(tokens)),
	}
	for _, t := range tokens {
		r.bySymbol[strings.ToUpper(t.Symbol)] = t
		r.byAddr[t.Address] = t
	}
	return r
}

// DefaultTokens is the mainnet seed table.
func DefaultTokens() []Token {
	return []Token{
		{Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18},
		{Symbol: "ZRX", Address: common.HexToAddress("0xE41d2489571d322189246DaFA5EbDe1F4699F498"), Decimals: 18},
		{Symbol: "DAI", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18},
		{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6},
		{Symbol: "WBTC", Address: common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), Decimals: 8},
	}
}

// Resolve accepts a ticker symbol ("WETH") or a 0x-prefixed hex address and
// returns the token metadata. Unknown addresses resolve to a bare token so
// quoting works for any pair the book carries.
func (r *TokenRegistry) Resolve(ident string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if common.IsHexAddress(ident) {
		addr := common.HexToAddress(ident)
		if t, ok := r.byAddr[addr]; ok {
			return t, nil
		}
		return Token{Symbol: addr.Hex(), Address: addr, Decimals: 18}, nil
	}
	if t, ok := r.bySymbol[strings.ToUpper(ident)]; ok {
		return t, nil
	}
	return Token{}, fmt.Errorf("unknown token %q", ident)
}
