// Package rooms implements the room-aware connection registry the Session
// Controller treats as its Broadcaster. It generalizes the teacher's
// per-connection writer-pump pattern (a buffered send channel drained by one
// goroutine per connection) into something that can join a connection to
// many rooms, emit to one connection, or emit to every connection in a room.
package rooms

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizroom/internal/app"
)

const sendBufferSize = 16

// Connection wraps one upgraded websocket connection with the buffered
// channel + writer-pump goroutine the teacher's ws_handler.go uses to keep
// writes to a single gorilla/websocket.Conn serialized.
type Connection struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newConnection(conn *websocket.Conn) *Connection {
	c := &Connection{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *Connection) writePump() {
	defer c.conn.Close()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("rooms: write to %s failed: %v", c.ID, err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send marshals v and enqueues it for delivery, dropping it if the
// connection's writer pump has already exited.
func (c *Connection) Send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("rooms: marshal failed for %s: %v", c.ID, err)
		return
	}
	select {
	case c.send <- b:
	case <-c.done:
	}
}

// Close stops the writer pump and closes the underlying connection.
func (c *Connection) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// ReadJSON blocks for the next text frame and decodes it into v.
func (c *Connection) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

// Manager is the Broadcaster implementation consumed by app.Controller. A
// room is named by session id; membership is many-to-many (one connection
// may be in several rooms, as when a participant also owns a different
// session in another tab).
type Manager struct {
	mu    sync.Mutex
	conns map[string]*Connection
	rooms map[string]map[string]struct{} // room -> connID set
}

// NewManager builds an empty Manager.
func NewManager() *Manager {
	return &Manager{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register upgrades a new connection into the registry.
func (m *Manager) Register(conn *websocket.Conn) *Connection {
	c := newConnection(conn)
	m.mu.Lock()
	m.conns[c.ID] = c
	m.mu.Unlock()
	return c
}

// Unregister removes a connection from every room it had joined and stops
// its writer pump, returning the rooms it had been part of so the caller
// can drive the disconnect cascade (spec.md 4.4.13).
func (m *Manager) Unregister(connID string) []string {
	m.mu.Lock()
	var joined []string
	for room, members := range m.rooms {
		if _, ok := members[connID]; ok {
			joined = append(joined, room)
			delete(members, connID)
			if len(members) == 0 {
				delete(m.rooms, room)
			}
		}
	}
	c, ok := m.conns[connID]
	delete(m.conns, connID)
	m.mu.Unlock()

	if ok {
		c.Close()
	}
	return joined
}

// JoinRoom adds connID to room's membership.
func (m *Manager) JoinRoom(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		m.rooms[room] = members
	}
	members[connID] = struct{}{}
}

// LeaveRoom removes connID from room's membership, without closing the
// connection itself.
func (m *Manager) LeaveRoom(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, room)
	}
}

// ForceLeave removes connID from room's membership the same way LeaveRoom
// does; the distinct name mirrors the Controller's use sites (eviction,
// not a voluntary leave) and leaves room for transports that need to tell
// the client it was kicked versus that it left.
func (m *Manager) ForceLeave(connID, room string) {
	m.LeaveRoom(connID, room)
}

// ForceAllLeave removes every connection from room's membership.
func (m *Manager) ForceAllLeave(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, room)
}

func (m *Manager) envelope(room, event string, data any) app.Envelope {
	session := room
	return app.Envelope{Status: app.StatusOK, Event: event, Session: &session, Data: data, Errors: nil}
}

func (m *Manager) connection(connID string) (*Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[connID]
	return c, ok
}

func (m *Manager) roomMembers(room string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.rooms[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// EmitToOne sends event/data to exactly one connection, regardless of room
// membership (used for owner-only acks like question-response tallies). The
// Broadcaster interface carries no session id here, so the envelope's
// session field is left nil; the event name and payload already identify
// what the message is about.
func (m *Manager) EmitToOne(connID, event string, data any) {
	c, ok := m.connection(connID)
	if !ok {
		return
	}
	c.Send(app.Envelope{Status: app.StatusOK, Event: event, Session: nil, Data: data, Errors: nil})
}

// EmitToRoom sends event/data to every connection currently in room.
func (m *Manager) EmitToRoom(room, event string, data any) {
	env := m.envelope(room, event, data)
	for _, id := range m.roomMembers(room) {
		if c, ok := m.connection(id); ok {
			c.Send(env)
		}
	}
}

// EmitToRoomExcept sends event/data to every connection in room other than
// exceptConnID (the usual shape: the actor already knows the outcome from
// its own ack).
func (m *Manager) EmitToRoomExcept(room, exceptConnID, event string, data any) {
	env := m.envelope(room, event, data)
	for _, id := range m.roomMembers(room) {
		if id == exceptConnID {
			continue
		}
		if c, ok := m.connection(id); ok {
			c.Send(env)
		}
	}
}
