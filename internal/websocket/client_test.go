// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// startHubServer runs a hub behind the /ws handler.
func startHubServer(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()

	srv := httptest.NewServer(NewHandler(hub, origins))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func connectionID(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	msg := readFrame(t, conn)
	if msg.Type != MessageTypeConnect {
		t.Fatalf("first frame = %q, want connect", msg.Type)
	}
	data, _ := msg.Data.(map[string]any)
	id, _ := data["id"].(string)
	if id == "" {
		t.Fatalf("connect frame without id: %+v", msg)
	}
	return id
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestClient_Constants(t *testing.T) {
	t.Parallel()

	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
}

func TestClient_JoinAndReceiveRoomEvent(t *testing.T) {
	t.Parallel()

	hub, srv := startHubServer(t, []string{"*"})

	member, resp, err := dial(t, srv, "https://ui.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer member.Close()
	memberID := connectionID(t, member)

	other, resp2, err := dial(t, srv, "https://ui.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp2.Body.Close()
	defer other.Close()
	connectionID(t, other)

	if err := member.WriteJSON(Message{Type: MessageTypeJoin, Data: "system:7"}); err != nil {
		t.Fatalf("WriteJSON(join) error = %v", err)
	}
	waitFor(t, func() bool { return hub.IsMember(memberID, "system:7") })

	hub.Emit("transmission", map[string]any{"id": "tx-7"}, ToRoom("system:7"))
	msg := readFrame(t, member)
	if msg.Type != "transmission" || msg.Room != "system:7" {
		t.Errorf("member frame = %+v", msg)
	}

	// The outsider only sees its pong, never the room event.
	if err := other.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON(ping) error = %v", err)
	}
	if msg := readFrame(t, other); msg.Type != MessageTypePong {
		t.Errorf("outsider frame = %q, want pong", msg.Type)
	}
}

func TestClient_DisconnectStopsDelivery(t *testing.T) {
	t.Parallel()

	hub, srv := startHubServer(t, []string{"*"})

	conn, resp, err := dial(t, srv, "https://ui.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	id := connectionID(t, conn)

	_ = conn.WriteJSON(Message{Type: MessageTypeJoin, Data: "system:1"})
	waitFor(t, func() bool { return hub.IsMember(id, "system:1") })

	_ = conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	if n := hub.Emit("transmission", nil, ToRoom("system:1")); n != 0 {
		t.Errorf("Emit() after disconnect reached %d clients, want 0", n)
	}
}

func TestHandler_OriginCheck(t *testing.T) {
	t.Parallel()

	_, srv := startHubServer(t, []string{"https://allowed.example"})

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"listed origin", "https://allowed.example", true},
		{"same host", srv.URL, true},
		{"foreign origin", "https://evil.example", false},
		{"missing origin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dial(t, srv, tt.origin)
			if resp != nil && resp.Body != nil {
				defer resp.Body.Close()
			}
			if tt.ok {
				if err != nil {
					t.Fatalf("dial error = %v, want success", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("dial succeeded, want rejection")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("rejection status = %v, want 403", resp)
			}
		})
	}
}
