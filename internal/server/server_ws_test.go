package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"partydeck/internal/config"
	"partydeck/internal/pools"
	"partydeck/internal/store"

	"github.com/gorilla/websocket"
)

func dialStoreWS(t *testing.T, tsURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(tsURL, "http") + "/ws/store"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWSFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode ws frame: %v", err)
	}
	return frame
}

func sendWSFrame(t *testing.T, conn *websocket.Conn, frame wsFrame) {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal ws frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write ws frame: %v", err)
	}
}

func TestWSDocSubscription(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStoreWS(t, ts.URL)

	sendWSFrame(t, conn, wsFrame{Action: "subscribe", ID: "room", Path: "rooms/abc"})

	first := readWSFrame(t, conn, 5*time.Second)
	if first["type"] != "snapshot" || first["exists"] != false {
		t.Fatalf("expected missing-doc snapshot, got %v", first)
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/store/merge", mergeRequest{
		Path:   "rooms/abc",
		Fields: map[string]any{"roomId": "abc", "active": true},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("merge failed with status %d", resp.StatusCode)
	}

	second := readWSFrame(t, conn, 5*time.Second)
	if second["type"] != "snapshot" || second["exists"] != true {
		t.Fatalf("expected live snapshot, got %v", second)
	}
	fields, ok := second["fields"].(map[string]any)
	if !ok || fields["roomId"] != "abc" {
		t.Fatalf("expected roomId=abc in snapshot, got %v", second["fields"])
	}
}

func TestWSQuerySubscription(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStoreWS(t, ts.URL)

	sendWSFrame(t, conn, wsFrame{
		Action:     "subscribe",
		ID:         "players",
		Collection: "rooms/abc/players",
		OrderBy:    "stageIndex",
		Desc:       true,
	})

	first := readWSFrame(t, conn, 5*time.Second)
	if first["type"] != "query" {
		t.Fatalf("expected query frame, got %v", first)
	}

	for _, player := range []mergeRequest{
		{Path: "rooms/abc/players/u1", Fields: map[string]any{"uid": "u1", "stageIndex": 1}},
		{Path: "rooms/abc/players/u2", Fields: map[string]any{"uid": "u2", "stageIndex": 3}},
	} {
		if resp := doRequest(t, ts, http.MethodPost, "/api/store/merge", player); resp.StatusCode != http.StatusOK {
			t.Fatalf("merge failed with status %d", resp.StatusCode)
		}
	}

	var docs []any
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		frame := readWSFrame(t, conn, 5*time.Second)
		if frame["type"] != "query" {
			t.Fatalf("expected query frame, got %v", frame)
		}
		docs, _ = frame["docs"].([]any)
		if len(docs) == 2 {
			break
		}
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	top, ok := docs[0].(map[string]any)
	if !ok {
		t.Fatalf("expected object doc, got %v", docs[0])
	}
	topFields, _ := top["fields"].(map[string]any)
	if topFields["uid"] != "u2" {
		t.Fatalf("expected u2 first by stageIndex desc, got %v", topFields["uid"])
	}
}

func TestWSUnsubscribeStopsDelivery(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStoreWS(t, ts.URL)

	sendWSFrame(t, conn, wsFrame{Action: "subscribe", ID: "room", Path: "rooms/xyz"})
	first := readWSFrame(t, conn, 5*time.Second)
	if first["type"] != "snapshot" {
		t.Fatalf("expected snapshot frame, got %v", first)
	}

	sendWSFrame(t, conn, wsFrame{Action: "unsubscribe", ID: "room"})
	// Give the teardown a beat before writing.
	time.Sleep(100 * time.Millisecond)

	resp := doRequest(t, ts, http.MethodPost, "/api/store/merge", mergeRequest{
		Path:   "rooms/xyz",
		Fields: map[string]any{"active": true},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("merge failed with status %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no frame after unsubscribe, got %s", data)
	}
}

func TestWSRejectsMalformedFrames(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStoreWS(t, ts.URL)

	sendWSFrame(t, conn, wsFrame{Action: "subscribe", ID: "bad", Path: "rooms/abc/players"})
	frame := readWSFrame(t, conn, 5*time.Second)
	if frame["type"] != "error" {
		t.Fatalf("expected error frame for collection path, got %v", frame)
	}

	sendWSFrame(t, conn, wsFrame{Action: "subscribe", Path: "rooms/abc"})
	frame = readWSFrame(t, conn, 5*time.Second)
	if frame["type"] != "error" {
		t.Fatalf("expected error frame for missing id, got %v", frame)
	}

	sendWSFrame(t, conn, wsFrame{Action: "teleport", ID: "x"})
	frame = readWSFrame(t, conn, 5*time.Second)
	if frame["type"] != "error" {
		t.Fatalf("expected error frame for unknown action, got %v", frame)
	}
}

func TestWSGuessFeedIsWindowed(t *testing.T) {
	library := pools.NewLibrary()
	cfg := config.Default()
	cfg.GuessWindow = 2
	srv := New(store.NewMemory(), library, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for _, text := range []string{"boat", "ship", "ferry"} {
		resp := doRequest(t, ts, http.MethodPost, "/api/store/append", appendRequest{
			Collection: "rooms/abc/pictionary/live/guesses",
			Fields:     map[string]any{"uid": "u1", "text": text, "createdAt": time.Now().UTC().Format(time.RFC3339Nano)},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("append failed with status %d", resp.StatusCode)
		}
	}

	conn := dialStoreWS(t, ts.URL)
	sendWSFrame(t, conn, wsFrame{
		Action:     "subscribe",
		ID:         "guesses",
		Collection: "rooms/abc/pictionary/live/guesses",
		OrderBy:    "createdAt",
		Desc:       true,
	})

	frame := readWSFrame(t, conn, 5*time.Second)
	if frame["type"] != "query" {
		t.Fatalf("expected query frame, got %v", frame)
	}
	docs, _ := frame["docs"].([]any)
	if len(docs) != 2 {
		t.Fatalf("expected window of 2 guesses, got %d", len(docs))
	}
}

func TestWSDuplicateSubscriptionID(t *testing.T) {
	ts := newTestServer(t)
	conn := dialStoreWS(t, ts.URL)

	sendWSFrame(t, conn, wsFrame{Action: "subscribe", ID: "dup", Path: "rooms/abc"})
	first := readWSFrame(t, conn, 5*time.Second)
	if first["type"] != "snapshot" {
		t.Fatalf("expected snapshot frame, got %v", first)
	}

	sendWSFrame(t, conn, wsFrame{Action: "subscribe", ID: "dup", Path: "rooms/def"})
	frame := readWSFrame(t, conn, 5*time.Second)
	if frame["type"] != "error" {
		t.Fatalf("expected error frame for duplicate id, got %v", frame)
	}
}
