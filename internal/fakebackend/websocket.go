package fakebackend

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// conn pairs a socket with its write lock; WriteJSON is not safe for concurrent use
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// hub groups connections by channel path
type hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*conn]struct{}
	ready map[string]chan struct{}
}

func newHub() *hub {
	return &hub{
		rooms: make(map[string]map[*conn]struct{}),
		ready: make(map[string]chan struct{}),
	}
}

func (h *hub) join(room string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*conn]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if ch, ok := h.ready[room]; ok {
		close(ch)
		delete(h.ready, room)
	}
}

func (h *hub) leave(room string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], c)
}

// joined returns a channel closed once someone is connected to room
func (h *hub) joined(room string) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan struct{})
	if len(h.rooms[room]) > 0 {
		close(ch)
		return ch
	}
	if existing, ok := h.ready[room]; ok {
		return existing
	}
	h.ready[room] = ch
	return ch
}

func (h *hub) broadcast(room string, v any) {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		_ = c.writeJSON(v)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for c := range room {
			c.ws.Close()
		}
	}
}

func (b *Backend) initWebSocketRoutes() {
	ws := b.router.PathPrefix("/ws").Subrouter()
	ws.HandleFunc("/realtimechat/", b.serveRoom(func(r *http.Request) string { return "chat" }, b.relayChat))
	ws.HandleFunc("/notify_{userID}/", b.serveRoom(func(r *http.Request) string { return "notify_" + mux.Vars(r)["userID"] }, nil))
	ws.HandleFunc("/upbit/{symbol}/", b.serveRoom(func(r *http.Request) string { return "upbit_" + mux.Vars(r)["symbol"] }, nil))
}

// serveRoom upgrades, joins the room and hands every incoming frame to onMessage
func (b *Backend) serveRoom(room func(*http.Request) string, onMessage func(room string, raw []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		name := room(r)
		c := &conn{ws: ws}
		b.hub.join(name, c)
		defer func() {
			b.hub.leave(name, c)
			ws.Close()
		}()

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if onMessage != nil {
				onMessage(name, raw)
			}
		}
	}
}

type chatIn struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

type chatOut struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

func (b *Backend) relayChat(room string, raw []byte) {
	var in chatIn
	if err := json.Unmarshal(raw, &in); err != nil || in.ID == "" {
		return
	}
	b.hub.broadcast(room, chatOut{ID: in.ID, Sender: in.Sender, Message: in.Text, Time: in.Time})
}

// WaitForSubscriber returns a channel closed once a client has joined the channel path,
// e.g. "notify_7", "upbit_KRW-BTC" or "chat"
func (b *Backend) WaitForSubscriber(room string) <-chan struct{} {
	return b.hub.joined(room)
}

// Notify pushes {"message": ...} to the user's notification channel
func (b *Backend) Notify(userID string, message string) {
	b.hub.broadcast("notify_"+userID, map[string]string{"message": message})
}

// PushTick pushes a market tick to a symbol's channel
func (b *Backend) PushTick(symbol string, tick any) {
	b.hub.broadcast("upbit_"+symbol, tick)
}

// BroadcastChat sends a chat frame as if another user had sent it
func (b *Backend) BroadcastChat(id, sender, message, at string) {
	b.hub.broadcast("chat", chatOut{ID: id, Sender: sender, Message: message, Time: at})
}
