package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/rpsbet/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Connection wraps one WebSocket client. A connection gains an address by
// joining; calls before that are rejected.
type Connection struct {
	conn      *websocket.Conn
	send      chan *protocol.Message
	address   string
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *Service
}

// NewConnection creates a connection wrapper.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger, service *Service) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *protocol.Message, 64),
		logger:  logger.With().Str("component", "conn").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins the read and write loops.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send queues a message for the client. A full buffer closes the connection
// rather than blocking the caller.
func (c *Connection) Send(msg *protocol.Message) error {
	defer func() {
		if r := recover(); r != nil {
			// send was closed under us during shutdown
			c.logger.Debug().Interface("recovered", r).Msg("send on closed connection")
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn().Str("address", c.Address()).Msg("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Address returns the joined address, or empty before join.
func (c *Connection) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

func (c *Connection) setAddress(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = addr
}

func (c *Connection) readPump() {
	defer c.cancel()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Connection) writePump() {
	for msg := range c.send {
		data, err := protocol.Marshal(msg)
		if err != nil {
			c.logger.Error().Err(err).Msg("marshal outgoing message")
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.logger.Debug().Err(err).Msg("write error")
			c.cancel()
			return
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	msg, err := protocol.Unmarshal(data)
	if err != nil {
		c.sendError(protocol.CodeBadRequest, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeJoin:
		var join protocol.JoinData
		if len(msg.Data) > 0 {
			if err := msg.DecodeData(&join); err != nil {
				c.sendError(protocol.CodeBadRequest, err.Error())
				return
			}
		}
		joined, err := c.service.Join(join.Name)
		if err != nil {
			c.sendFailure(err)
			return
		}
		c.setAddress(joined.Address)
		c.reply(protocol.TypeJoined, joined)

	case protocol.TypeCommit:
		addr, ok := c.requireJoined()
		if !ok {
			return
		}
		var commit protocol.CommitData
		if err := msg.DecodeData(&commit); err != nil {
			c.sendError(protocol.CodeBadRequest, err.Error())
			return
		}
		if err := c.service.Commit(addr, commit.Choice, commit.Value); err != nil {
			c.sendFailure(err)
			return
		}
		c.reply(protocol.TypeAck, nil)

	case protocol.TypeDistribute:
		addr, ok := c.requireJoined()
		if !ok {
			return
		}
		if err := c.service.Distribute(addr); err != nil {
			c.sendFailure(err)
			return
		}
		c.reply(protocol.TypeAck, nil)

	case protocol.TypeWithdraw:
		addr, ok := c.requireJoined()
		if !ok {
			return
		}
		amount, err := c.service.Withdraw(addr)
		if err != nil {
			c.sendFailure(err)
			return
		}
		c.reply(protocol.TypeWithdrawal, protocol.WithdrawalData{Address: addr, Amount: amount})

	case protocol.TypeGetState:
		c.reply(protocol.TypeState, c.service.Snapshot())

	case protocol.TypeGetBalance:
		addr, ok := c.requireJoined()
		if !ok {
			return
		}
		c.reply(protocol.TypeBalance, c.service.Balance(addr))

	case protocol.TypeLock, protocol.TypeUnlock, protocol.TypeAbort:
		c.handleAdmin(msg)

	default:
		c.sendError(protocol.CodeBadRequest, "unexpected message type: "+string(msg.Type))
	}
}

func (c *Connection) handleAdmin(msg *protocol.Message) {
	var admin protocol.AdminData
	if len(msg.Data) > 0 {
		if err := msg.DecodeData(&admin); err != nil {
			c.sendError(protocol.CodeBadRequest, err.Error())
			return
		}
	}

	switch msg.Type {
	case protocol.TypeLock:
		if err := c.service.Lock(admin.Token); err != nil {
			c.sendFailure(err)
			return
		}
	case protocol.TypeUnlock:
		if err := c.service.Unlock(admin.Token); err != nil {
			c.sendFailure(err)
			return
		}
	case protocol.TypeAbort:
		if _, err := c.service.Abort(admin.Token); err != nil {
			c.sendFailure(err)
			return
		}
	}
	c.reply(protocol.TypeAck, nil)
}

func (c *Connection) requireJoined() (string, bool) {
	addr := c.Address()
	if addr == "" {
		c.sendFailure(ErrNotJoined)
		return "", false
	}
	return addr, true
}

func (c *Connection) reply(t protocol.MessageType, data interface{}) {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(t)).Msg("encode reply")
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) sendFailure(err error) {
	c.sendError(errorCode(err), err.Error())
}

func (c *Connection) sendError(code, message string) {
	c.reply(protocol.TypeError, protocol.ErrorData{Code: code, Message: message})
}
