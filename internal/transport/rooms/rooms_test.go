package rooms

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func dial(t *testing.T, m *Manager) (*websocket.Conn, *Connection) {
	t.Helper()
	var conn *Connection
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn = m.Register(c)
		close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server never registered the connection")
	}
	return client, conn
}

func TestEmitToRoomReachesMembersOnly(t *testing.T) {
	m := NewManager()
	clientA, connA := dial(t, m)
	clientB, connB := dial(t, m)

	m.JoinRoom(connA.ID, "room-1")
	m.JoinRoom(connB.ID, "room-1")
	m.LeaveRoom(connB.ID, "room-1")

	m.EmitToRoom("room-1", "ping", map[string]string{"hello": "world"})

	var msg map[string]any
	clientA.SetReadDeadline(time.Now().Add(time.Second))
	if err := clientA.ReadJSON(&msg); err != nil {
		t.Fatalf("expected message on room member, got error: %v", err)
	}
	if msg["event"] != "ping" {
		t.Fatalf("expected event ping, got %+v", msg)
	}

	clientB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := clientB.ReadJSON(&msg); err == nil {
		t.Fatalf("expected connection that left the room to receive nothing")
	}
}

func TestEmitToRoomExceptSkipsTheException(t *testing.T) {
	m := NewManager()
	clientA, connA := dial(t, m)
	clientB, connB := dial(t, m)

	m.JoinRoom(connA.ID, "room-1")
	m.JoinRoom(connB.ID, "room-1")

	m.EmitToRoomExcept("room-1", connA.ID, "ping", nil)

	clientB.SetReadDeadline(time.Now().Add(time.Second))
	var msg map[string]any
	if err := clientB.ReadJSON(&msg); err != nil {
		t.Fatalf("expected non-excepted member to receive message: %v", err)
	}

	clientA.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := clientA.ReadJSON(&msg); err == nil {
		t.Fatalf("expected excepted connection to receive nothing")
	}
}

func TestUnregisterReturnsJoinedRooms(t *testing.T) {
	m := NewManager()
	_, conn := dial(t, m)

	m.JoinRoom(conn.ID, "room-1")
	m.JoinRoom(conn.ID, "room-2")

	rooms := m.Unregister(conn.ID)
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %+v", rooms)
	}
	if _, ok := m.connection(conn.ID); ok {
		t.Fatalf("expected connection removed from registry")
	}
}
