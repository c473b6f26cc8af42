package api

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(hub *Hub, id string, channels ...string) *Client {
	subs := make(map[string]bool, len(channels))
	for _, ch := range channels {
		subs[ch] = true
	}
	return &Client{
		hub:           hub,
		send:          make(chan []byte, 4),
		id:            id,
		subscriptions: subs,
	}
}

func TestHub_BroadcastToChannel(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	go hub.Run()

	subscribed := newTestClient(hub, "sub", "orders")
	other := newTestClient(hub, "other")

	// register is unbuffered; once the second send returns, the first
	// client is fully in the map.
	hub.register <- subscribed
	hub.register <- other
	hub.register <- newTestClient(hub, "sync")

	hub.BroadcastToChannel("orders", OrderEventUpdate{
		Type: "order_added",
		Hash: "0x01",
	})

	select {
	case msg := <-subscribed.send:
		var upd OrderEventUpdate
		if err := json.Unmarshal(msg, &upd); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if upd.Type != "order_added" || upd.Hash != "0x01" {
			t.Errorf("broadcast payload = %+v", upd)
		}
	case <-time.After(time.Second):
		t.Fatal("subscribed client received nothing")
	}

	select {
	case msg := <-other.send:
		t.Fatalf("unsubscribed client received %s", msg)
	default:
	}
}

func TestHub_SubscriptionLifecycle(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	c := newTestClient(hub, "c")

	if c.IsSubscribed("orders") {
		t.Error("fresh client should have no subscriptions")
	}
	c.Subscribe("orders")
	if !c.IsSubscribed("orders") {
		t.Error("subscribe did not register the channel")
	}
	c.Unsubscribe("orders")
	if c.IsSubscribed("orders") {
		t.Error("unsubscribe did not remove the channel")
	}
}
