package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/swapmesh/swapmesh/pkg/crypto"
	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/source"
)

// Generates a keypair, builds a signed WETH->ZRX order and prints the JSON
// body for POST /swap/v1/orders. Test/integration harness, not core logic.
func main() {
	fmt.Println("Generating new keypair...")
	signer, err := crypto.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())

	tokens := order.NewTokenRegistry(order.DefaultTokens())
	weth, _ := tokens.Resolve("WETH")
	zrx, _ := tokens.Resolve("ZRX")

	// Maker sells 200 ZRX for 100 WETH-wei-scale units, valid for an hour.
	o := order.Order{
		Maker:       signer.Address(),
		MakerAsset:  zrx.Address,
		TakerAsset:  weth.Address,
		MakerAmount: new(big.Int).Mul(big.NewInt(200), big.NewInt(1e18)),
		TakerAmount: new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		Expiry:      uint64(time.Now().Add(time.Hour).Unix()),
		Salt:        big.NewInt(time.Now().UnixNano()),
		Source:      source.ID("mesh"),
	}

	hasher := crypto.NewOrderHasher(crypto.DefaultDomain())
	sig, err := hasher.SignOrder(signer, &o)
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	o.Signature = sig

	digest, _ := hasher.Digest(&o)
	fmt.Printf("Order hash: %s\n", digest.Hex())
	fmt.Printf("Signature: %s\n\n", hexutil.Encode(sig))

	recovered, valid, err := hasher.VerifyOrder(&o)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("signature INVALID")
		os.Exit(1)
	}
	fmt.Printf("Signature valid, signer %s\n\n", recovered.Hex())

	body := map[string]interface{}{
		"orders": []map[string]interface{}{{
			"maker":       o.Maker.Hex(),
			"makerAsset":  o.MakerAsset.Hex(),
			"takerAsset":  o.TakerAsset.Hex(),
			"makerAmount": o.MakerAmount.String(),
			"takerAmount": o.TakerAmount.String(),
			"expiry":      o.Expiry,
			"salt":        o.Salt.String(),
			"source":      string(o.Source),
			"signature":   hexutil.Encode(sig),
		}},
	}
	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("To submit this order:")
	fmt.Println("  POST http://localhost:8547/swap/v1/orders")
	fmt.Println("  Content-Type: application/json")
	fmt.Println("  Body:")
	fmt.Println(string(out))
}
