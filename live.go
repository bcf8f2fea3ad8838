package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// leaderboardHub pushes leaderboard snapshots to connected admin clients.
// Every state mutation triggers a broadcast, so the admin page never polls.
type leaderboardHub struct {
	mu      sync.Mutex
	clients map[*liveClient]bool
}

type liveClient struct {
	conn *websocket.Conn
	send chan []leaderboardRow
}

func newLeaderboardHub() *leaderboardHub {
	return &leaderboardHub{
		clients: make(map[*liveClient]bool),
	}
}

func (h *leaderboardHub) add(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
}

func (h *leaderboardHub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast drops clients whose send buffer is full rather than blocking
// the request that triggered the update.
func (h *leaderboardHub) broadcast(rows []leaderboardRow) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- rows:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == cfg.origin
		},
	}
}

func (g *killerGame) serveLeaderboardWS(cfg *Config) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade from %s: %v", realIP(r), err)

			return
		}

		client := &liveClient{
			conn: conn,
			send: make(chan []leaderboardRow, 8),
		}

		g.live.add(client)

		// Snapshot on connect, before any mutation happens.
		if rows, err := g.leaderboard(); err == nil {
			client.send <- rows
		}

		logf(cfg, "LIVE: Leaderboard feed opened for %s", realIP(r))

		go client.writePump()
		client.readPump(g.live)

		logf(cfg, "LIVE: Leaderboard feed closed for %s", realIP(r))
	}
}

// readPump discards client messages; the feed is one-way. A read error
// means the client is gone.
func (c *liveClient) readPump(h *leaderboardHub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *liveClient) writePump() {
	defer c.conn.Close()

	for rows := range c.send {
		if err := c.conn.WriteJSON(rows); err != nil {
			return
		}
	}
}
