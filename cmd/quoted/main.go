package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapmesh/swapmesh/params"
	"github.com/swapmesh/swapmesh/pkg/api"
	"github.com/swapmesh/swapmesh/pkg/book"
	"github.com/swapmesh/swapmesh/pkg/crypto"
	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/quote"
	"github.com/swapmesh/swapmesh/pkg/relay"
	"github.com/swapmesh/swapmesh/pkg/source"
	"github.com/swapmesh/swapmesh/pkg/storage"
	"github.com/swapmesh/swapmesh/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Domain wiring ----
	tokens := order.NewTokenRegistry(order.DefaultTokens())

	sources := make([]source.Source, 0, len(cfg.Quote.SourcePriority))
	for _, name := range cfg.Quote.SourcePriority {
		kind := source.Pool
		if name == "mesh" {
			kind = source.Orderbook
		}
		sources = append(sources, source.Source{ID: source.ID(name), Kind: kind})
	}
	registry := source.NewRegistry(sources)

	domain := crypto.DefaultDomain()
	domain.ChainID = big.NewInt(cfg.Node.ChainID)
	hasher := crypto.NewOrderHasher(domain)

	clock := util.RealClock{}
	snapshot := book.NewSnapshot(hasher, clock, sugar)

	// ---- Persistence: write-through store, rehydrated on boot ----
	store, err := storage.NewOrderStore(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("order_store_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer store.Close()

	// Rehydrate before wiring listeners so boot does not echo every stored
	// order back into the store or onto the wire.
	var stale []common.Hash
	nowUnix := uint64(clock.Now().Unix())
	if err := store.Each(func(h common.Hash, o order.Order) {
		if o.Expired(nowUnix) {
			stale = append(stale, h)
			return
		}
		snapshot.Apply(order.Event{Type: order.EventAdded, Order: o})
	}); err != nil {
		sugar.Warnw("order_rehydrate_failed", "err", err)
	}
	for _, h := range stale {
		if err := store.DeleteOrder(h); err != nil {
			sugar.Warnw("order_delete_failed", "hash", h.Hex(), "err", err)
		}
	}

	snapshot.Subscribe(func(ev order.Event) {
		switch ev.Type {
		case order.EventAdded:
			if err := store.SaveOrder(ev.Hash, ev.Order); err != nil {
				sugar.Warnw("order_persist_failed", "hash", ev.Hash.Hex(), "err", err)
			}
		case order.EventRemoved, order.EventExpired:
			if err := store.DeleteOrder(ev.Hash); err != nil {
				sugar.Warnw("order_delete_failed", "hash", ev.Hash.Hex(), "err", err)
			}
		}
	})

	// ---- Relay network ----
	relayClient, err := relay.NewClient(ctx, relay.Config{
		ListenAddr: cfg.Relay.ListenAddr,
		Bootstrap:  cfg.Relay.Bootstrap,
		Logger:     sugar,
	})
	if err != nil {
		sugar.Fatalw("relay_init_failed", "err", err)
	}
	defer relayClient.Close()

	// ---- Quote pipeline ----
	guard := quote.NewFreshnessGuard(cfg.Quote.ExpiryBuffer, clock, quote.ZapAlertSink{Log: sugar})
	validator := quote.NewValidator(tokens)
	resolver := quote.NewResolver(registry, snapshot, guard, cfg.Quote.PriceDigits, sugar)

	server := api.NewServer(api.ServerConfig{
		Validator: validator,
		Resolver:  resolver,
		Sources:   registry,
		Book:      snapshot,
		Tokens:    tokens,
		Hasher:    hasher,
		Relay:     relayClient,
		Logger:    sugar,
	})
	snapshot.Subscribe(server.BroadcastOrderEvent)

	// Every listener is wired; start consuming gossip.
	relayClient.SetHandler(snapshot.Apply)

	// ---- Background expiry sweep ----
	go func() {
		ticker := time.NewTicker(cfg.Node.PruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot.Prune()
			}
		}
	}()

	sugar.Infow("quoted_starting",
		"api", cfg.API.ListenAddr,
		"sources", cfg.Quote.SourcePriority,
		"expiry_buffer_s", int64(cfg.Quote.ExpiryBuffer/time.Second),
		"orders_restored", snapshot.Len())

	if err := server.Start(ctx, cfg.API.ListenAddr, cfg.API.AllowedOrigins); err != nil {
		sugar.Fatalw("api_server_failed", "err", err)
	}
	sugar.Info("shutdown complete")
}
