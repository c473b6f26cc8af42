package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/swapmesh/swapmesh/pkg/book"
	"github.com/swapmesh/swapmesh/pkg/crypto"
	"github.com/swapmesh/swapmesh/pkg/order"
	"github.com/swapmesh/swapmesh/pkg/quote"
	"github.com/swapmesh/swapmesh/pkg/relay"
	"github.com/swapmesh/swapmesh/pkg/source"
)

// Error codes surfaced alongside quote.Code* for non-validation failures.
const (
	codeInsufficientLiquidity = 101
	codeInternalError         = 102
)

// Server exposes the quote API over REST and streams order events over
// WebSocket.
type Server struct {
	validator *quote.Validator
	resolver  *quote.Resolver
	sources   *source.Registry
	book      *book.Snapshot
	tokens    *order.TokenRegistry
	hasher    *crypto.OrderHasher
	relay     *relay.Client // nil when running without a network (tests)
	router    *mux.Router
	hub       *Hub
	log       *zap.SugaredLogger
}

type ServerConfig struct {
	Validator *quote.Validator
	Resolver  *quote.Resolver
	Sources   *source.Registry
	Book      *book.Snapshot
	Tokens    *order.TokenRegistry
	Hasher    *crypto.OrderHasher
	Relay     *relay.Client
	Logger    *zap.SugaredLogger
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		validator: cfg.Validator,
		resolver:  cfg.Resolver,
		sources:   cfg.Sources,
		book:      cfg.Book,
		tokens:    cfg.Tokens,
		hasher:    cfg.Hasher,
		relay:     cfg.Relay,
		router:    mux.NewRouter(),
		hub:       NewHub(cfg.Logger),
		log:       cfg.Logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/swap/v1").Subrouter()

	v1.HandleFunc("/quote", s.handleQuote).Methods("GET")
	v1.HandleFunc("/sources", s.handleGetSources).Methods("GET")
	v1.HandleFunc("/orderbook", s.handleGetOrderbook).Methods("GET")
	v1.HandleFunc("/orders", s.handleSubmitOrders).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router exposes the handler tree for embedding and tests.
func (s *Server) Router() http.Handler { return s.router }

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string, allowedOrigins []string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{Addr: addr, Handler: c.Handler(s.router)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Infow("api_listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// BroadcastOrderEvent pushes an applied order event to subscribed
// WebSocket clients. Wired as a snapshot listener.
func (s *Server) BroadcastOrderEvent(ev order.Event) {
	update := OrderEventUpdate{
		Type:      "order_" + ev.Type.String(),
		Hash:      ev.Hash.Hex(),
		Timestamp: time.Now().UnixMilli(),
	}
	if ev.Type == order.EventAdded {
		entry := toOrderEntry(ev.Order)
		update.Order = &entry
	}
	s.hub.BroadcastToChannel("orders", update)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := quote.RawRequest{
		SellToken:       q.Get("sellToken"),
		BuyToken:        q.Get("buyToken"),
		TakerAddress:    q.Get("takerAddress"),
		SellAmount:      q.Get("sellAmount"),
		BuyAmount:       q.Get("buyAmount"),
		ExcludedSources: q.Get("excludedSources"),
	}

	req, verr := s.validator.Validate(raw)
	if verr != nil {
		// Client-caused; not a system error, so no log line here.
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:             verr.Code,
			Reason:           verr.Reason,
			ValidationErrors: verr.Fields,
		})
		return
	}

	result, err := s.resolver.Resolve(req)
	switch {
	case errors.Is(err, quote.ErrInsufficientLiquidity):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:   codeInsufficientLiquidity,
			Reason: "Insufficient Liquidity",
		})
		return
	case err != nil:
		s.log.Errorw("quote_failed", "err", err,
			"sell", raw.SellToken, "buy", raw.BuyToken)
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:   codeInternalError,
			Reason: "Internal Server Error",
		})
		return
	}

	respondJSON(w, http.StatusOK, toQuoteResponse(result))
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	all := s.sources.All()
	out := make([]SourceInfo, len(all))
	for i, src := range all {
		out[i] = SourceInfo{
			Name:     string(src.ID),
			Kind:     src.Kind.String(),
			Priority: s.sources.Priority(src.ID),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sellTok, err := s.tokens.Resolve(q.Get("sellToken"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Code: quote.CodeValidationFailed, Reason: err.Error()})
		return
	}
	buyTok, err := s.tokens.Resolve(q.Get("buyToken"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Code: quote.CodeValidationFailed, Reason: err.Error()})
		return
	}

	eligible := s.sources.Eligible(nil)
	orders := s.book.OrdersFor(sellTok.Address, buyTok.Address, eligible)

	entries := make([]OrderEntry, len(orders))
	for i, o := range orders {
		entries[i] = toOrderEntry(o)
	}
	respondJSON(w, http.StatusOK, OrderbookResponse{
		Orders:    entries,
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleSubmitOrders accepts a batch of signed orders, verifies each
// signature, applies accepted orders to the local view and gossips them
// to the relay network. One bad order never rejects the batch.
func (s *Server) handleSubmitOrders(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:   quote.CodeValidationFailed,
			Reason: "invalid JSON body",
		})
		return
	}
	if len(req.Orders) == 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:   quote.CodeValidationFailed,
			Reason: "orders must be non-empty",
		})
		return
	}

	resp := SubmitOrdersResponse{}
	for i, entry := range req.Orders {
		o, err := entry.toOrder()
		if err != nil {
			resp.Rejected = append(resp.Rejected, RejectedOrder{Index: i, Reason: err.Error()})
			continue
		}
		if err := o.CheckAmounts(); err != nil {
			resp.Rejected = append(resp.Rejected, RejectedOrder{Index: i, Reason: err.Error()})
			continue
		}
		if _, ok := s.sources.Get(o.Source); !ok {
			resp.Rejected = append(resp.Rejected, RejectedOrder{Index: i, Reason: "unknown source"})
			continue
		}
		recovered, valid, err := s.hasher.VerifyOrder(&o)
		if err != nil {
			resp.Rejected = append(resp.Rejected, RejectedOrder{Index: i, Reason: err.Error()})
			continue
		}
		if !valid {
			resp.Rejected = append(resp.Rejected, RejectedOrder{
				Index:  i,
				Reason: "signature does not match maker " + recovered.Hex(),
			})
			continue
		}

		s.book.Apply(order.Event{Type: order.EventAdded, Order: o})
		if s.relay != nil {
			if err := s.relay.PublishOrder(r.Context(), o); err != nil {
				s.log.Warnw("order_gossip_failed", "err", err)
			}
		}
		resp.Accepted++
	}

	s.log.Infow("orders_submitted", "accepted", resp.Accepted, "rejected", len(resp.Rejected))
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"orders": s.book.Len(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
