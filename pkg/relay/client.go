package relay

import (
	"context"
	"sync"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapmesh/swapmesh/pkg/order"
)

const (
	topicOrderAdd    = "mesh-order-add"
	topicOrderRemove = "mesh-order-remove"
)

// Handler receives decoded order events from the relay network. Called
// from the subscription read loops; must not block.
type Handler func(ev order.Event)

// Client is the order-relay network client: a libp2p gossipsub node that
// propagates signed orders between peers without executing trades.
type Client struct {
	h   host.Host
	ps  *pubsub.PubSub
	log *zap.SugaredLogger

	tAdd, tRemove     *pubsub.Topic
	subAdd, subRemove *pubsub.Subscription

	muH     sync.RWMutex
	handler Handler
}

type Config struct {
	ListenAddr string
	Bootstrap  []string
	Logger     *zap.SugaredLogger
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}

	c := &Client{h: h, ps: ps, log: cfg.Logger}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil && cfg.Logger != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	if err := c.joinTopics(); err != nil {
		return nil, err
	}

	go c.handleAdded(ctx)
	go c.handleRemoved(ctx)

	if cfg.Logger != nil {
		cfg.Logger.Infow("relay_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr)
	}
	return c, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

func (c *Client) joinTopics() error {
	var err error
	if c.tAdd, err = c.ps.Join(topicOrderAdd); err != nil {
		return err
	}
	if c.tRemove, err = c.ps.Join(topicOrderRemove); err != nil {
		return err
	}
	if c.subAdd, err = c.tAdd.Subscribe(); err != nil {
		return err
	}
	if c.subRemove, err = c.tRemove.Subscribe(); err != nil {
		return err
	}
	return nil
}

// SetHandler wires the event consumer. The snapshot dedups by order hash,
// so loopback delivery of our own publishes is harmless.
func (c *Client) SetHandler(h Handler) {
	c.muH.Lock()
	c.handler = h
	c.muH.Unlock()
}

func (c *Client) Host() host.Host { return c.h }

func (c *Client) Close() error { return c.h.Close() }

// PublishOrder gossips a signed order to the network.
func (c *Client) PublishOrder(ctx context.Context, o order.Order) error {
	ob, err := gobEncode(o)
	if err != nil {
		return err
	}
	data, err := gobEncode(OrderAddedWire{Order: ob})
	if err != nil {
		return err
	}
	return c.tAdd.Publish(ctx, data)
}

// PublishRemoval gossips a fill/cancel/expiry notice for an order hash.
func (c *Client) PublishRemoval(ctx context.Context, h common.Hash, reason string) error {
	data, err := gobEncode(OrderRemovedWire{Hash: h, Reason: reason})
	if err != nil {
		return err
	}
	return c.tRemove.Publish(ctx, data)
}

func (c *Client) dispatch(ev order.Event) {
	c.muH.RLock()
	h := c.handler
	c.muH.RUnlock()
	if h != nil {
		h(ev)
	}
}

func (c *Client) handleAdded(ctx context.Context) {
	for {
		msg, err := c.subAdd.Next(ctx)
		if err != nil {
			return // context cancelled or subscription closed
		}
		var wire OrderAddedWire
		if err := gobDecode(msg.Data, &wire); err != nil {
			c.warn("order_add_decode_failed", err)
			continue
		}
		var o order.Order
		if err := gobDecode(wire.Order, &o); err != nil {
			c.warn("order_decode_failed", err)
			continue
		}
		c.dispatch(order.Event{Type: order.EventAdded, Order: o})
	}
}

func (c *Client) handleRemoved(ctx context.Context) {
	for {
		msg, err := c.subRemove.Next(ctx)
		if err != nil {
			return
		}
		var wire OrderRemovedWire
		if err := gobDecode(msg.Data, &wire); err != nil {
			c.warn("order_remove_decode_failed", err)
			continue
		}
		typ := order.EventRemoved
		if wire.Reason == "expired" {
			typ = order.EventExpired
		}
		c.dispatch(order.Event{Type: typ, Hash: common.Hash(wire.Hash)})
	}
}

func (c *Client) warn(msg string, err error) {
	if c.log != nil {
		c.log.Warnw(msg, "err", err)
	}
}
