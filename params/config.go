package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Quote struct {
	// ExpiryBuffer bounds the acceptable lookahead on an order's expiry.
	// Any selected order expiring later than now+ExpiryBuffer is flagged
	// to the alert sink (advisory only, never blocks a quote).
	ExpiryBuffer time.Duration

	// SourcePriority is the operator-configured tiebreak order across
	// liquidity sources when two routes price identically.
	SourcePriority []string

	// PriceDigits is the number of significant digits in the decimal
	// price string of a quote response.
	PriceDigits int
}

type API struct {
	ListenAddr     string
	AllowedOrigins []string
}

type Relay struct {
	ListenAddr string
	Bootstrap  []string
}

type Node struct {
	DBPath  string
	LogFile string

	// ChainID scopes order signatures via the EIP-712 domain separator.
	ChainID int64

	// PruneInterval throttles the background sweep that drops expired
	// orders from the book and the store.
	PruneInterval time.Duration
}

type Config struct {
	Quote Quote
	API   API
	Relay Relay
	Node  Node
}

func Default() Config {
	return Config{
		Quote: Quote{
			ExpiryBuffer:   120 * time.Second,
			SourcePriority: []string{"mesh", "pool0", "pool1"},
			PriceDigits:    18,
		},
		API: API{
			ListenAddr:     ":8547",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Relay: Relay{
			ListenAddr: "/ip4/0.0.0.0/tcp/0",
		},
		Node: Node{
			DBPath:        "data/orders",
			LogFile:       "data/quoted.log",
			ChainID:       1,
			PruneInterval: 5 * time.Second,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if buf := os.Getenv("EXPIRY_BUFFER_SECONDS"); buf != "" {
		if sec, err := strconv.Atoi(buf); err == nil && sec >= 0 {
			cfg.Quote.ExpiryBuffer = time.Duration(sec) * time.Second
		}
	}
	if prio := os.Getenv("SOURCE_PRIORITY"); prio != "" {
		cfg.Quote.SourcePriority = splitCSV(prio)
	}
	if digits := os.Getenv("PRICE_DIGITS"); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			cfg.Quote.PriceDigits = n
		}
	}

	if addr := os.Getenv("API_LISTEN"); addr != "" {
		cfg.API.ListenAddr = addr
	}
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitCSV(origins)
	}

	if addr := os.Getenv("P2P_LISTEN"); addr != "" {
		cfg.Relay.ListenAddr = addr
	}
	if bs := os.Getenv("P2P_BOOTSTRAP"); bs != "" {
		cfg.Relay.Bootstrap = splitCSV(bs)
	}

	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Node.DBPath = path
	}
	if path := os.Getenv("LOG_FILE"); path != "" {
		cfg.Node.LogFile = path
	}
	if id := os.Getenv("CHAIN_ID"); id != "" {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			cfg.Node.ChainID = n
		}
	}
	if iv := os.Getenv("PRUNE_INTERVAL_MS"); iv != "" {
		if ms, err := strconv.Atoi(iv); err == nil && ms > 0 {
			cfg.Node.PruneInterval = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
