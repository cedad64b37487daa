// Package client provides a WebSocket client for the escrow server.
package client

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/rpsbet/internal/protocol"
)

// ErrNotConnected is returned when sending before Connect or after Close.
var ErrNotConnected = errors.New("client: not connected")

// EventHandler handles an incoming message.
type EventHandler func(*protocol.Message)

// Client is a WebSocket client with per-message-type handlers.
type Client struct {
	serverURL string
	logger    zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	handlers  map[protocol.MessageType][]EventHandler
	connected bool
	done      chan struct{}
}

// New creates a client for the given server URL. http/https schemes are
// rewritten to ws/wss.
func New(serverURL string, logger zerolog.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		logger:    logger.With().Str("component", "client").Logger(),
		handlers:  make(map[protocol.MessageType][]EventHandler),
	}
}

// On registers a handler for a message type. Handlers run on the read loop
// goroutine; register them before Connect.
func (c *Client) On(t protocol.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], handler)
}

// Connect dials the server and starts the read loop.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	c.logger.Debug().Str("url", u.String()).Msg("connecting")
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop()
	return nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.conn.Close()
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

// Send writes a typed message to the server.
func (c *Client) Send(t protocol.MessageType, data interface{}) error {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		return err
	}
	raw, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// Join registers the player identity.
func (c *Client) Join(name string) error {
	return c.Send(protocol.TypeJoin, protocol.JoinData{Name: name})
}

// Commit submits a funded choice.
func (c *Client) Commit(choice string, value int64) error {
	return c.Send(protocol.TypeCommit, protocol.CommitData{Choice: choice, Value: value})
}

// Distribute asks the host to settle the round.
func (c *Client) Distribute() error {
	return c.Send(protocol.TypeDistribute, nil)
}

// Withdraw pulls pending credit.
func (c *Client) Withdraw() error {
	return c.Send(protocol.TypeWithdraw, nil)
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		done := c.done
		c.mu.Unlock()
		close(done)
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("read loop ended")
			}
			return
		}
		msg, err := protocol.Unmarshal(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		c.mu.RLock()
		handlers := c.handlers[msg.Type]
		c.mu.RUnlock()
		for _, handler := range handlers {
			handler(msg)
		}
	}
}
