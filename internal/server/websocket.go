package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"partydeck/internal/store"

	"github.com/gorilla/websocket"
)

// wsFrame is what clients send: subscribe to a document or a collection
// query, or unsubscribe a previous id. Each frame carries a client-chosen id
// so responses can be routed back to the right watcher.
type wsFrame struct {
	Action     string `json:"action"`
	ID         string `json:"id"`
	Path       string `json:"path,omitempty"`
	Collection string `json:"collection,omitempty"`
	OrderBy    string `json:"order_by,omitempty"`
	Desc       bool   `json:"desc,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type wsSnapshot struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Seq    uint64         `json:"seq"`
	Path   string         `json:"path"`
	Exists bool           `json:"exists"`
	Fields map[string]any `json:"fields,omitempty"`
}

type wsQueryResult struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	Seq  uint64  `json:"seq"`
	Docs []wsDoc `json:"docs"`
}

type wsDoc struct {
	Path   string         `json:"path"`
	Fields map[string]any `json:"fields"`
}

type wsError struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// wsClient owns one websocket connection and its open subscriptions. Writes
// are serialized through writeMu; each subscription pumps snapshots from the
// store on its own goroutine.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]func()
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		subs: make(map[string]func()),
	}
}

func (c *wsClient) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) add(id string, closeSub func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.subs[id]; exists {
		return false
	}
	c.subs[id] = closeSub
	return true
}

func (c *wsClient) remove(id string) {
	c.mu.Lock()
	closeSub := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if closeSub != nil {
		closeSub()
	}
}

func (c *wsClient) closeAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]func())
	c.mu.Unlock()
	for _, closeSub := range subs {
		closeSub()
	}
	_ = c.conn.Close()
}

func (s *Server) handleStoreWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected remote=%s", r.RemoteAddr)
	client := newWSClient(conn)
	go s.readStoreWS(client, r.RemoteAddr)
}

func (s *Server) readStoreWS(client *wsClient, remote string) {
	defer client.closeAll()
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected remote=%s error=%v", remote, err)
			return
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = client.send(wsError{Type: "error", Error: "invalid frame"})
			continue
		}
		s.handleWSFrame(client, frame)
	}
}

func (s *Server) handleWSFrame(client *wsClient, frame wsFrame) {
	if frame.ID == "" {
		_ = client.send(wsError{Type: "error", Error: "frame id is required"})
		return
	}
	switch frame.Action {
	case "subscribe":
		switch {
		case frame.Path != "":
			s.subscribeDoc(client, frame)
		case frame.Collection != "":
			s.subscribeQuery(client, frame)
		default:
			_ = client.send(wsError{Type: "error", ID: frame.ID, Error: "path or collection is required"})
		}
	case "unsubscribe":
		client.remove(frame.ID)
	default:
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: "unknown action"})
	}
}

func (s *Server) subscribeDoc(client *wsClient, frame wsFrame) {
	if !store.ValidDocPath(frame.Path) {
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: "malformed document path"})
		return
	}
	sub, err := s.store.Subscribe(frame.Path)
	if err != nil {
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: err.Error()})
		return
	}
	if !client.add(frame.ID, sub.Close) {
		sub.Close()
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: "id already subscribed"})
		return
	}
	go func() {
		var seq uint64
		for snap := range sub.Snapshots {
			seq++
			err := client.send(wsSnapshot{
				Type:   "snapshot",
				ID:     frame.ID,
				Seq:    seq,
				Path:   snap.Path,
				Exists: snap.Exists,
				Fields: snap.Fields,
			})
			if err != nil {
				client.remove(frame.ID)
				return
			}
		}
		if err := sub.Err(); err != nil {
			_ = client.send(wsError{Type: "error", ID: frame.ID, Error: err.Error()})
		}
	}()
}

func (s *Server) subscribeQuery(client *wsClient, frame wsFrame) {
	if !store.ValidCollectionPath(frame.Collection) {
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: "malformed collection path"})
		return
	}
	limit := frame.Limit
	// Guess feeds are windowed: an unbounded subscription on a busy round
	// would replay the whole collection to every phone on each append.
	if strings.HasSuffix(frame.Collection, "/guesses") {
		if limit <= 0 || limit > s.cfg.GuessWindow {
			limit = s.cfg.GuessWindow
		}
	}
	sub, err := s.store.SubscribeQuery(frame.Collection, store.Query{
		OrderBy: frame.OrderBy,
		Desc:    frame.Desc,
		Limit:   limit,
	})
	if err != nil {
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: err.Error()})
		return
	}
	if !client.add(frame.ID, sub.Close) {
		sub.Close()
		_ = client.send(wsError{Type: "error", ID: frame.ID, Error: "id already subscribed"})
		return
	}
	go func() {
		var seq uint64
		for snaps := range sub.Results {
			seq++
			docs := make([]wsDoc, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, wsDoc{Path: snap.Path, Fields: snap.Fields})
			}
			if err := client.send(wsQueryResult{Type: "query", ID: frame.ID, Seq: seq, Docs: docs}); err != nil {
				client.remove(frame.ID)
				return
			}
		}
		if err := sub.Err(); err != nil {
			_ = client.send(wsError{Type: "error", ID: frame.ID, Error: err.Error()})
		}
	}()
}
