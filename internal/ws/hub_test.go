package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(context.Background(), zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	return hub
}

func newFeedServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	var next atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		NewClient(fmt.Sprintf("c%d", next.Add(1)), conn, hub).Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialFeed(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastDeliversTypedFramesInOrder(t *testing.T) {
	hub := newRunningHub(t)
	srv := newFeedServer(t, hub)

	conn := dialFeed(t, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, hub, 1)

	frames := []Message{
		{Type: "units", Data: json.RawMessage(`{"seq":1}`)},
		{Type: "sos_signals", Data: json.RawMessage(`{"seq":2}`)},
		{Type: "mission_log", Data: json.RawMessage(`{"seq":3}`)},
	}
	for _, f := range frames {
		hub.Broadcast(f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, want := range frames {
		var got Message
		if err := wsjson.Read(ctx, conn, &got); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if got.Type != want.Type {
			t.Fatalf("frame %d type = %q, want %q", i, got.Type, want.Type)
		}
		var payload struct {
			Seq int `json:"seq"`
		}
		if err := json.Unmarshal(got.Data, &payload); err != nil {
			t.Fatalf("frame %d data: %v", i, err)
		}
		if payload.Seq != i+1 {
			t.Fatalf("frame %d seq = %d, want %d", i, payload.Seq, i+1)
		}
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := newRunningHub(t)
	srv := newFeedServer(t, hub)

	connA := dialFeed(t, srv.URL)
	defer connA.Close(websocket.StatusNormalClosure, "")
	connB := dialFeed(t, srv.URL)
	defer connB.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, hub, 2)

	hub.Broadcast(Message{Type: "broadcast_alerts", Data: json.RawMessage(`{"id":"latest"}`)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, conn := range []*websocket.Conn{connA, connB} {
		var got Message
		if err := wsjson.Read(ctx, conn, &got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Type != "broadcast_alerts" {
			t.Fatalf("type = %q, want broadcast_alerts", got.Type)
		}
	}
}

func TestShutdownDisconnectsClients(t *testing.T) {
	hub := NewHub(context.Background(), zerolog.Nop())
	go hub.Run()
	srv := newFeedServer(t, hub)

	conn := dialFeed(t, srv.URL)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, hub, 1)

	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var discard Message
	if err := wsjson.Read(ctx, conn, &discard); err == nil {
		t.Fatal("read after shutdown succeeded, want closed connection")
	}

	// A connection arriving after shutdown must not wedge on registration;
	// its feed just closes immediately.
	late := dialFeed(t, srv.URL)
	defer late.Close(websocket.StatusNormalClosure, "")
	if err := wsjson.Read(ctx, late, &discard); err == nil {
		t.Fatal("read on post-shutdown connection succeeded, want closed connection")
	}
}
