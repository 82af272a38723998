package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Hub tracks websocket clients and pushes state to them
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	session   *Session
	log       *Logger
	broadcast time.Duration

	// Connection limiting (accessed from HTTP handlers)
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int
	maxMsgRate    int
}

// NewHub creates a hub serving session
func NewHub(session *Session, cfg *Config, log *Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		session:       session,
		log:           log.Component("hub"),
		broadcast:     cfg.Loops.Broadcast.Duration(),
		ipConns:       make(map[string]int),
		maxConnsPerIP: cfg.Network.MaxConnsPerIP,
		maxTotalConns: cfg.Network.MaxTotalConns,
		maxMsgRate:    cfg.Network.MaxMessagesRate,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns {
		return false
	}
	return h.ipConns[ip] < h.maxConnsPerIP
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events and broadcasts state until ctx
// is done or the session quits.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.broadcast)
	defer ticker.Stop()
	quit := h.session.Engine.Quit()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case <-ticker.C:
			h.broadcastState()

		case <-quit:
			h.closeAll(Envelope{T: MsgBye})
			quit = nil

		case <-ctx.Done():
			h.closeAll(Envelope{T: MsgBye})
			return
		}
	}
}

// broadcastState sends the current snapshot to every client in its chosen
// encoding, marshaling each encoding at most once.
func (h *Hub) broadcastState() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	snap := h.session.Engine.Snapshot()
	var text, binary []byte
	for c := range h.clients {
		if c.binary {
			if binary == nil {
				data, err := msgpack.Marshal(&snap)
				if err != nil {
					h.log.Error("msgpack marshal", "error", err)
					return
				}
				binary = data
			}
			c.SendBinary(binary)
			continue
		}
		if text == nil {
			data, err := json.Marshal(Envelope{T: MsgState, Data: snap})
			if err != nil {
				h.log.Error("json marshal", "error", err)
				return
			}
			text = data
		}
		c.SendRaw(text)
	}
}

// closeAll sends a final message to every client and drops them
func (h *Hub) closeAll(msg Envelope) {
	data, _ := json.Marshal(msg)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SendRaw(data)
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
