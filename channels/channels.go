// Package channels subscribes to the backend's WebSocket channels:
// per-user notifications, market ticks and the shared chat room.
// There is no reconnection; a Channel ends when the socket does.
package channels

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dialer opens channels under a WebSocket base URL such as ws://host:8000/ws/
type Dialer struct {
	baseURL *url.URL
	dialer  *websocket.Dialer
	header  http.Header
	logger  zerolog.Logger
}

type Option func(*Dialer)

func WithWebSocketDialer(d *websocket.Dialer) Option {
	return func(dl *Dialer) { dl.dialer = d }
}

// WithHeader adds headers to the upgrade request
func WithHeader(h http.Header) Option {
	return func(dl *Dialer) { dl.header = h }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(dl *Dialer) { dl.logger = logger }
}

func NewDialer(baseURL string, opts ...Option) (*Dialer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[channels NewDialer] invalid base url: %w", err)
	}
	if base.Scheme != "ws" && base.Scheme != "wss" {
		return nil, fmt.Errorf("[channels NewDialer] %w: scheme must be ws or wss, got %q", tverrors.ErrInvalidRequest, base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	d := &Dialer{
		baseURL: base,
		dialer:  websocket.DefaultDialer,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Channel is one open subscription
type Channel struct {
	path    string
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	logger  zerolog.Logger

	closeOnce sync.Once
	closing   atomic.Bool
	err       error // read loop exit reason, set before done is closed
}

// Subscribe connects to path (relative to the base URL) and calls onMessage
// with every frame from a single goroutine until the channel ends.
func (d *Dialer) Subscribe(ctx context.Context, path string, onMessage func([]byte)) (*Channel, error) {
	target := d.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	ws, resp, err := d.dialer.DialContext(ctx, target.String(), d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("[channels Subscribe] %s: %w: handshake status %d: %w", path, tverrors.ErrTransport, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("[channels Subscribe] %s: %w: %w", path, tverrors.ErrTransport, err)
	}

	ch := &Channel{
		path:   path,
		ws:     ws,
		done:   make(chan struct{}),
		logger: d.logger.With().Str("channel", path).Logger(),
	}
	ch.logger.Debug().Msg("Channel open")
	go ch.readLoop(onMessage)
	return ch, nil
}

func (c *Channel) readLoop(onMessage func([]byte)) {
	defer close(c.done)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				c.logger.Debug().Msg("Channel closed")
			} else {
				c.logger.Warn().Err(err).Msg("Channel ended")
				c.err = err
			}
			return
		}
		if onMessage != nil {
			onMessage(raw)
		}
	}
}

// Send writes v as a JSON text frame
func (c *Channel) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("[channels Send] %s: %w: %w", c.path, tverrors.ErrTransport, err)
	}
	return nil
}

// Close sends a close frame, closes the socket and waits for the read loop.
// It must not be called from inside onMessage.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
		<-c.done
	})
	return err
}

// Done is closed once the channel has ended, from either side
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err reports why the channel ended, nil for a normal close. Valid after Done.
func (c *Channel) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
