// Package websocket pushes market events to connected clients. Channels:
// "markets" carries the global feed (new markets, resolutions), and
// "market:{id}" carries per-market price ticks.
package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openclaim/claimdex/metrics"
)

// Hub maintains the set of active clients and routes broadcasts by channel.
type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest

	mu sync.RWMutex

	config *HubConfig
}

// HubConfig contains hub configuration
type HubConfig struct {
	MaxSubscriptions int
	MessageRateLimit int // client messages per second
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		MaxSubscriptions: 50,
		MessageRateLimit: 20,
	}
}

// SubscriptionRequest represents a subscription request
type SubscriptionRequest struct {
	Client  *Client
	Channel string
	Action  string // "subscribe" or "unsubscribe"
}

// NewHub creates a new Hub
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}

	return &Hub{
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscriptionRequest, 256),
		unsubscribe: make(chan *SubscriptionRequest, 256),
		config:      config,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	metrics.Get().WSConnectionsActive.Inc()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		for channel, clients := range h.channels {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}

		close(client.send)
		metrics.Get().WSConnectionsActive.Dec()
	}
}

func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[req.Channel]; !ok {
		h.channels[req.Channel] = make(map[*Client]bool)
	}
	h.channels[req.Channel][req.Client] = true

	confirmation := &WSMessage{Type: "subscribed", Channel: req.Channel}
	data, _ := json.Marshal(confirmation)
	req.Client.Send(data)
}

func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.channels[req.Channel]; ok {
		delete(clients, req.Client)
		if len(clients) == 0 {
			delete(h.channels, req.Channel)
		}
	}

	confirmation := &WSMessage{Type: "unsubscribed", Channel: req.Channel}
	data, _ := json.Marshal(confirmation)
	req.Client.Send(data)
}

// BroadcastToChannel sends a message to all clients subscribed to a channel.
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	for _, client := range clientList {
		client.Send(data)
	}
}

// ============ Event broadcasts ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// TickMessage is a per-market price update.
type TickMessage struct {
	MarketID      string `json:"market_id"`
	Price         string `json:"price"`
	TotalBetTrue  string `json:"total_bet_true"`
	TotalBetFalse string `json:"total_bet_false"`
	Timestamp     int64  `json:"timestamp"`
}

// ResolutionMessage announces a terminal market transition.
type ResolutionMessage struct {
	MarketID  string `json:"market_id"`
	Status    string `json:"status"`
	Outcome   string `json:"outcome,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewMarketMessage announces a freshly submitted market.
type NewMarketMessage struct {
	MarketID  string `json:"market_id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// BroadcastTick pushes a price update to the market's channel.
func (h *Hub) BroadcastTick(tick *TickMessage) {
	channel := "market:" + tick.MarketID
	h.BroadcastToChannel(channel, &WSMessage{Type: "market_tick", Channel: channel, Data: tick})
}

// BroadcastResolution pushes a terminal transition to both the market
// channel and the global feed.
func (h *Hub) BroadcastResolution(res *ResolutionMessage) {
	channel := "market:" + res.MarketID
	h.BroadcastToChannel(channel, &WSMessage{Type: "market_resolved", Channel: channel, Data: res})
	h.BroadcastToChannel("markets", &WSMessage{Type: "market_resolved", Channel: "markets", Data: res})
}

// BroadcastNewMarket pushes a new market onto the global feed.
func (h *Hub) BroadcastNewMarket(m *NewMarketMessage) {
	h.BroadcastToChannel("markets", &WSMessage{Type: "market_created", Channel: "markets", Data: m})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles WebSocket upgrade requests
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = fmt.Sprintf("%d", time.Now().UnixNano())
	}

	client := NewClient(h, conn, clientID)

	h.register <- client

	go client.writePump()
	go client.readPump()
}
