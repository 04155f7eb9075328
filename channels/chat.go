package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
)

const chatPath = "realtimechat/"

// ChatID identifies a chat message. Browser clients send numeric ids, so
// numbers are accepted and kept in their decimal form.
type ChatID string

func (id *ChatID) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ChatID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("chat id: %w", err)
	}
	*id = ChatID(n.String())
	return nil
}

// ChatMessage is a message in the shared room
type ChatMessage struct {
	ID     ChatID
	Sender string
	Text   string
	Time   string
}

// The server relays the text under "message"
type incomingChat struct {
	ID      ChatID `json:"id"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Text    string `json:"text"`
	Time    string `json:"time"`
}

type outgoingChat struct {
	ID     ChatID `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

// ChatRoom is the shared real-time chat. Every message is delivered to fn
// once: echoes of our own messages and repeated ids are dropped. Only the
// most recent ids are remembered, so a long-running room stays bounded.
type ChatRoom struct {
	ch *Channel

	lock   sync.Mutex
	seen   map[ChatID]struct{}
	recent []ChatID // ring of remembered ids, oldest at next once full
	next   int
	limit  int
}

const defaultSeenLimit = 1024

type ChatOption func(*ChatRoom)

// WithSeenLimit sets how many recent message ids are kept for de-duplication
func WithSeenLimit(n int) ChatOption {
	return func(r *ChatRoom) {
		if n > 0 {
			r.limit = n
		}
	}
}

// Chat joins the shared chat room
func (d *Dialer) Chat(ctx context.Context, fn func(ChatMessage), opts ...ChatOption) (*ChatRoom, error) {
	room := &ChatRoom{seen: make(map[ChatID]struct{}), limit: defaultSeenLimit}
	for _, opt := range opts {
		opt(room)
	}
	logger := d.logger
	ch, err := d.Subscribe(ctx, chatPath, func(raw []byte) {
		var in incomingChat
		if err := json.Unmarshal(raw, &in); err != nil {
			warnUndecodable(logger, chatPath, err)
			return
		}
		if in.ID == "" || !room.markSeen(in.ID) {
			return
		}
		text := in.Message
		if text == "" {
			text = in.Text
		}
		fn(ChatMessage{ID: in.ID, Sender: in.Sender, Text: text, Time: in.Time})
	})
	if err != nil {
		return nil, err
	}
	room.ch = ch
	return room, nil
}

// markSeen records id and reports whether it was new. When the ring is full
// the oldest id is forgotten.
func (r *ChatRoom) markSeen(id ChatID) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.seen[id]; ok {
		return false
	}
	if len(r.recent) < r.limit {
		r.recent = append(r.recent, id)
	} else {
		delete(r.seen, r.recent[r.next])
		r.recent[r.next] = id
		r.next = (r.next + 1) % r.limit
	}
	r.seen[id] = struct{}{}
	return true
}

// Send posts text as sender. The returned message carries a fresh id; its
// echo from the server will not be delivered.
func (r *ChatRoom) Send(sender, text string) (ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return ChatMessage{}, fmt.Errorf("[channels ChatRoom.Send] %w: text is required", tverrors.ErrInvalidRequest)
	}
	msg := ChatMessage{
		ID:     ChatID(uuid.NewString()),
		Sender: sender,
		Text:   text,
		Time:   time.Now().Format(time.TimeOnly),
	}
	r.markSeen(msg.ID)
	if err := r.ch.Send(outgoingChat{ID: msg.ID, Sender: msg.Sender, Text: msg.Text, Time: msg.Time}); err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

func (r *ChatRoom) Close() error {
	return r.ch.Close()
}

func (r *ChatRoom) Done() <-chan struct{} {
	return r.ch.Done()
}
