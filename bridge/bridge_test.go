package bridge

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robomesh/meshkit/mesh"
	"github.com/robomesh/meshkit/node"
	"github.com/robomesh/meshkit/rmw"
)

// --- Unit Tests ---

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxMessageSize != 1024*1024 {
		t.Errorf("MaxMessageSize = %d, want 1MB", cfg.MaxMessageSize)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"subscribe", `{"op":"subscribe","topic":"chatter"}`, false},
		{"unsubscribe", `{"op":"unsubscribe","topic":"chatter"}`, false},
		{"publish", `{"op":"publish","topic":"chatter","data":{"x":1}}`, false},
		{"subscribe without topic", `{"op":"subscribe"}`, true},
		{"publish without data", `{"op":"publish","topic":"chatter"}`, true},
		{"unknown op", `{"op":"ping"}`, true},
		{"not json", `nope`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFrame(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

// --- Integration Tests ---

func newTestBridge(t *testing.T) (*Bridge, *node.Node, *mesh.Context) {
	t.Helper()
	t.Setenv(rmw.DomainEnvVar, "")

	ctx, err := mesh.New(nil)
	if err != nil {
		t.Fatalf("mesh.New error: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })

	n, err := node.New(ctx, "bridge")
	if err != nil {
		t.Fatalf("node.New error: %v", err)
	}
	t.Cleanup(func() { n.Close() })

	b := New(n, Config{PingInterval: -1})
	t.Cleanup(func() { b.Close() })
	return b, n, ctx
}

func dialBridge(t *testing.T, b *Bridge) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(b.Handler())
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) *Frame {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	if err := ws.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	return &f
}

func TestBridgePublishReachesNodeSubscribers(t *testing.T) {
	b, n, _ := newTestBridge(t)
	ws := dialBridge(t, b)

	got := make(chan []byte, 1)
	if _, err := n.CreateSubscription("chatter", func(in *node.Incoming) {
		got <- in.Data
	}); err != nil {
		t.Fatalf("CreateSubscription error: %v", err)
	}

	err := ws.WriteJSON(&Frame{
		Op:    OpPublish,
		Topic: "chatter",
		Data:  json.RawMessage(`{"text":"hello"}`),
	})
	if err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	if !node.SpinOnce(n, 5*time.Second) {
		t.Fatal("expected the bridged publish to dispatch")
	}
	select {
	case data := <-got:
		if string(data) != `{"text":"hello"}` {
			t.Errorf("payload = %s, want the original JSON", data)
		}
	default:
		t.Fatal("callback did not run")
	}
}

func TestBridgeSubscribeReceivesTopicMessages(t *testing.T) {
	b, n, _ := newTestBridge(t)
	ws := dialBridge(t, b)

	if err := ws.WriteJSON(&Frame{Op: OpSubscribe, Topic: "chatter"}); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}
	// Give the subscribe frame time to take effect before publishing.
	time.Sleep(100 * time.Millisecond)

	pub, err := n.CreatePublisher("chatter")
	if err != nil {
		t.Fatalf("CreatePublisher error: %v", err)
	}
	if err := pub.Publish(map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	f := readFrame(t, ws)
	if f.Op != OpMessage || f.Topic != "chatter" {
		t.Fatalf("frame = %+v, want a chatter message", f)
	}
	var payload map[string]string
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if payload["text"] != "hi" {
		t.Errorf("payload = %v, want text=hi", payload)
	}
}

func TestBridgeRejectsMalformedFrames(t *testing.T) {
	b, _, _ := newTestBridge(t)
	ws := dialBridge(t, b)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"op":"bogus"}`)); err != nil {
		t.Fatalf("WriteMessage error: %v", err)
	}

	f := readFrame(t, ws)
	if f.Op != OpError || f.Error == "" {
		t.Errorf("frame = %+v, want an error frame", f)
	}
}

func TestBridgeClosesClientsOnShutdown(t *testing.T) {
	b, _, ctx := newTestBridge(t)
	ws := dialBridge(t, b)

	ctx.Shutdown()

	// The watcher notices within its poll interval and closes the client.
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func TestBridgeHandlerAfterClose(t *testing.T) {
	b, _, _ := newTestBridge(t)
	b.Close()

	server := httptest.NewServer(b.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Error("expected dial to fail against a closed bridge")
	}
}
