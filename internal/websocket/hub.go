// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/metrics"
	"github.com/tomtom215/trunkcast/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeConnect  = "connect"
	MessageTypeJoin     = "join"
	MessageTypeLeave    = "leave"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeEcho     = "echo"
	MessageTypeMutation = "mutation"
	MessageTypeError    = "error"
)

// ErrUnknownConnection is returned by Join and Leave for an id that is not connected.
var ErrUnknownConnection = errors.New("unknown connection")

// ErrHubRunning is returned by RunWithContext when the hub is already running.
var ErrHubRunning = errors.New("websocket hub already running")

// Message is the frame exchanged with clients in both directions.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	Room string `json:"room,omitempty"`
}

// Hub tracks connected clients and their rooms. Emits never block: a client
// whose send buffer is full is dropped.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	runMu   sync.Mutex
	running bool
	// stopped is closed whenever RunWithContext is not serving the channels.
	stopped chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	stopped := make(chan struct{})
	close(stopped)
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    stopped,
	}
}

// RunWithContext serves Register and Unregister from client pumps until ctx
// is done, then closes every client and returns ctx.Err(). It may be called
// again after it returns, but not concurrently.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.runMu.Lock()
	if h.running {
		h.runMu.Unlock()
		return ErrHubRunning
	}
	h.running = true
	h.stopped = make(chan struct{})
	h.runMu.Unlock()

	defer func() {
		h.runMu.Lock()
		h.running = false
		close(h.stopped)
		h.runMu.Unlock()
	}()

	for {
		// Shutdown wins over pending lifecycle events.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.Register:
			h.Connect(c)
		case c := <-h.Unregister:
			h.Disconnect(c)
		}
	}
}

func (h *Hub) stoppedCh() <-chan struct{} {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	return h.stopped
}

// register hands c to the running hub. It reports false when the hub is not
// running, in which case c was not added.
func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.stoppedCh():
		return false
	}
}

// unregister hands c to the running hub, or removes it directly when the hub
// is not running.
func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.stoppedCh():
		h.Disconnect(c)
	}
}

// Connect adds c and sends it the connect frame carrying its id.
func (h *Hub) Connect(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.sendLocked(c, Message{Type: MessageTypeConnect, Data: map[string]string{"id": c.id}})
	h.mu.Unlock()

	metrics.TrackWebSocketConnection(true)
	logging.Debug().Str("conn_id", c.id).Int("total_clients", total).Msg("websocket client connected")
}

// Disconnect removes c from the hub and from every room it joined.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		logging.Debug().Str("conn_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// removeLocked must be called with mu held.
func (h *Hub) removeLocked(c *Client) bool {
	if cur, ok := h.clients[c.id]; !ok || cur != c {
		return false
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	close(c.send)
	metrics.TrackWebSocketConnection(false)
	return true
}

// Join adds a connection to room.
func (h *Hub) Join(connID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return ErrUnknownConnection
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return nil
}

// Leave removes a connection from room. Leaving a room never joined is a no-op.
func (h *Hub) Leave(connID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return ErrUnknownConnection
	}
	h.leaveLocked(c, room)
	return nil
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Emit sends event to the clients selected by scope and returns how many
// clients it was queued for.
func (h *Hub) Emit(event string, data any, scope Scope) int {
	msg := Message{Type: event, Data: data}
	if scope.Kind == ScopeRoom {
		msg.Room = scope.Target
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var recipients []*Client
	switch scope.Kind {
	case ScopeGlobal:
		recipients = make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			recipients = append(recipients, c)
		}
	case ScopeRoom:
		for c := range h.rooms[scope.Target] {
			recipients = append(recipients, c)
		}
	case ScopeConnection:
		if c, ok := h.clients[scope.Target]; ok {
			recipients = append(recipients, c)
		}
	}

	// Deterministic delivery order.
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].seq < recipients[j].seq
	})

	sent := 0
	for _, c := range recipients {
		if h.sendLocked(c, msg) {
			sent++
		}
	}
	return sent
}

// sendLocked queues msg for c without blocking and drops c when its buffer
// is full. mu must be held.
func (h *Hub) sendLocked(c *Client, msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		metrics.RecordWebSocketDrop()
		logging.Warn().Str("conn_id", c.id).Str("type", msg.Type).Msg("websocket client buffer full, dropping client")
		h.removeLocked(c)
		return false
	}
}

// EmitMutation tells every client that an entity changed.
func (h *Hub) EmitMutation(id, entityType, eventType string) int {
	return h.Emit(MessageTypeMutation, models.Mutation{UUID: id, Type: entityType, Event: eventType}, Global())
}

// handleMessage processes one inbound frame from c.
func (h *Hub) handleMessage(c *Client, msg *Message) {
	switch msg.Type {
	case MessageTypePing:
		h.reply(c, Message{Type: MessageTypePong})

	case MessageTypeJoin, MessageTypeLeave:
		room := roomOf(msg)
		if room == "" {
			h.reply(c, Message{Type: MessageTypeError, Data: msg.Type + " requires a room"})
			return
		}
		var err error
		if msg.Type == MessageTypeJoin {
			err = h.Join(c.id, room)
		} else {
			err = h.Leave(c.id, room)
		}
		if err != nil {
			logging.Debug().Err(err).Str("conn_id", c.id).Msg("room change for departed client")
		}

	case MessageTypeEcho:
		if msg.Room == "" || !h.IsMember(c.id, msg.Room) {
			h.reply(c, Message{Type: MessageTypeError, Data: "echo requires membership of the target room"})
			return
		}
		h.Emit(MessageTypeEcho, msg.Data, ToRoom(msg.Room))

	default:
		logging.Debug().Str("conn_id", c.id).Str("type", msg.Type).Msg("ignoring unknown websocket message")
	}
}

func (h *Hub) reply(c *Client, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		h.sendLocked(c, msg)
	}
}

// roomOf accepts the room either in the room field or as string data.
func roomOf(msg *Message) string {
	if msg.Room != "" {
		return msg.Room
	}
	if s, ok := msg.Data.(string); ok {
		return s
	}
	return ""
}

// IsMember reports whether connID is in room.
func (h *Hub) IsMember(connID, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	_, ok = c.rooms[room]
	return ok
}

// Rooms returns the sorted rooms a connection belongs to.
func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	return rooms
}

// RoomSize returns the number of members in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	for _, c := range clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	// ctx.Err() is expected here and is not logged as an error.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
