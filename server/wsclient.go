package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/mesh-rooms/mesh-rooms/server/identifiers"
	"github.com/mesh-rooms/mesh-rooms/server/message"
	"github.com/mesh-rooms/mesh-rooms/server/uuid"
	"nhooyr.io/websocket"
)

type WSWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, msg []byte) error
}

type WSReader interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
}

type WSReadWriter interface {
	WSReader
	WSWriter
}

// WSCloser is implemented by connections that can be closed with a status
// code, such as *websocket.Conn. Test fakes may omit it.
type WSCloser interface {
	Close(code websocket.StatusCode, reason string) error
}

const defaultWriteTimeout = 5 * time.Second

// Client wraps a websocket connection together with the identity supplied at
// connect time. It exposes channel-based reads and timed writes.
type Client struct {
	id   identifiers.ClientID
	name string
	conn WSReadWriter

	errMu sync.RWMutex
	err   error
}

// NewClient creates a client with a generated identifier.
func NewClient(conn WSReadWriter) *Client {
	return NewClientWithID(conn, "", "")
}

// NewClientWithID creates a client with the provided identifier and display
// name. Empty values fall back to a generated id and a default name.
func NewClientWithID(conn WSReadWriter, id identifiers.ClientID, name string) *Client {
	if id == "" {
		id = identifiers.ClientID(uuid.New())
	}

	if name == "" {
		name = "User"
	}

	return &Client{
		id:   id,
		name: name,
		conn: conn,
	}
}

func (c *Client) ID() identifiers.ClientID {
	return c.id
}

func (c *Client) Name() string {
	return c.name
}

// WriteTimeout writes a message to the websocket, giving up after timeout.
func (c *Client) WriteTimeout(ctx context.Context, timeout time.Duration, msg message.Message) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Annotate(err, "serialize message")
	}

	return errors.Annotate(
		c.conn.Write(ctx, websocket.MessageText, data),
		"write message",
	)
}

// Write writes a message to the client socket with the default timeout.
func (c *Client) Write(msg message.Message) error {
	err := c.WriteTimeout(context.Background(), defaultWriteTimeout, msg)

	return errors.Trace(err)
}

// Close closes the underlying connection when it supports closing. Closing a
// plain read-writer is a no-op.
func (c *Client) Close(reason string) error {
	closer, ok := c.conn.(WSCloser)
	if !ok {
		return nil
	}

	return errors.Trace(closer.Close(websocket.StatusNormalClosure, reason))
}

// Err returns the error that terminated the Subscribe loop, if any.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.err
}

// Subscribe reads messages from the connection until it fails or ctx is
// done, and emits them on the returned channel. Frames that do not parse as
// a known message are dropped without terminating the loop. The channel is
// closed on exit and the terminating error is available via Err.
func (c *Client) Subscribe(ctx context.Context) <-chan message.Message {
	msgChan := make(chan message.Message)

	go func() {
		for {
			_, data, err := c.conn.Read(ctx)
			if err != nil {
				c.errMu.Lock()
				c.err = errors.Annotate(err, "read message")
				close(msgChan)
				c.errMu.Unlock()

				return
			}

			var msg message.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				// Malformed inbound frames are dropped, never fatal.
				continue
			}

			select {
			case msgChan <- msg:
			case <-ctx.Done():
				c.errMu.Lock()
				c.err = errors.Trace(ctx.Err())
				close(msgChan)
				c.errMu.Unlock()

				return
			}
		}
	}()

	return msgChan
}
