// Package notifications provides real-time delivery of notifications and post
// events over websockets, backed by Redis pub/sub so broadcasts reach every
// API instance.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"devlink/internal/middleware"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps userID -> websocket clients and postID -> watching clients. User
// channels carry notifications, post rooms carry live like/comment/repost
// counters for posts the client currently has on screen.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	postRooms  map[uint]map[*Client]struct{}
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
	presence   *PresenceTracker
}

// NewHub creates a new Hub. The Redis client is optional; without it presence
// is tracked locally only.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	return &Hub{
		conns:     make(map[uint]map[*Client]struct{}),
		postRooms: make(map[uint]map[*Client]struct{}),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		presence:  NewPresenceTracker(redisClient, PresenceConfig{}),
	}
}

// Register a connection for a given userID. Returns the Client or an error if
// limits are exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}

	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) {
		if h.presence != nil {
			h.presence.Touch(context.Background(), uid)
		}
	}

	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	middleware.ActiveWebSockets.Inc()

	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}

	return client, nil
}

// UnregisterClient removes a client from the user map and any post rooms it
// joined.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removedClient := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removedClient = true
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	for postID, room := range h.postRooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.postRooms, postID)
			}
		}
	}
	h.mu.Unlock()

	if removedClient {
		middleware.ActiveWebSockets.Dec()
		if h.presence != nil {
			h.presence.Unregister(context.Background(), client.UserID)
		}
	}
}

// JoinPost subscribes the client to live updates for a post.
func (h *Hub) JoinPost(client *Client, postID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.postRooms[postID]
	if !ok {
		room = make(map[*Client]struct{})
		h.postRooms[postID] = room
	}
	room[client] = struct{}{}
}

// LeavePost unsubscribes the client from a post's updates.
func (h *Hub) LeavePost(client *Client, postID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.postRooms[postID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.postRooms, postID)
		}
	}
}

func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	if h.presence == nil {
		return
	}
	h.presence.SetCallbacks(onOnline, onOffline)
}

// Broadcast sends message to all connections for userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[userID]; ok {
		data := []byte(message)
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// BroadcastPost sends message to every client watching the post.
func (h *Hub) BroadcastPost(postID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.postRooms[postID]; ok {
		data := []byte(message)
		for c := range room {
			c.TrySend(data)
		}
	}
}

// BroadcastAll sends message to every connected websocket client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// IsOnline reports whether a user currently has at least one active websocket
// connection, here or on another instance.
func (h *Hub) IsOnline(userID uint) bool {
	if h.presence != nil {
		return h.presence.IsOnline(context.Background(), userID)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.conns[userID]
	return ok && len(clients) > 0
}

// StartWiring connects the Notifier to this hub: it subscribes to the Redis
// patterns and forwards messages to matching user connections or post rooms.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		switch {
		case channel == broadcastChannel:
			h.BroadcastAll(payload)
		case strings.HasPrefix(channel, userChannelPrefix):
			userID, ok := parseChannelID(channel, userChannelPrefix)
			if !ok {
				middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
				return
			}
			h.Broadcast(userID, payload)
		case strings.HasPrefix(channel, postChannelPrefix):
			postID, ok := parseChannelID(channel, postChannelPrefix)
			if !ok {
				middleware.Logger.Warn("invalid post channel", slog.String("channel", channel))
				return
			}
			h.BroadcastPost(postID, payload)
		default:
			middleware.Logger.Warn("unexpected pub/sub channel", slog.String("channel", channel))
		}
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	if h.presence != nil {
		h.presence.Stop()
	}

	h.mu.Lock()
	for userID, userConns := range h.conns {
		for client := range userConns {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Warn("failed to write close message",
					slog.Any("user_id", userID), slog.String("error", err.Error()))
			}
			if err := client.Conn.Close(); err != nil {
				middleware.Logger.Warn("failed to close websocket",
					slog.Any("user_id", userID), slog.String("error", err.Error()))
			}
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.postRooms = make(map[uint]map[*Client]struct{})
	h.mu.Unlock()

	close(h.done)

	return nil
}
