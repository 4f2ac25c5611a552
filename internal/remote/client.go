// ABOUTME: Websocket client for the remote control protocol
// ABOUTME: Handles connection, handshake, commands and event routing
package remote

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	ServerAddr string
	Name       string
}

// Client controls a remote player
type Client struct {
	config ClientConfig
	conn   *websocket.Conn
	mu     sync.RWMutex
	server ServerHello

	// Message channels
	Results chan Result
	States  chan State
	Events  chan Message // track_changed, track_finished and error events

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient creates a new remote client
func NewClient(config ClientConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		Results: make(chan Result, 10),
		States:  make(chan State, 10),
		Events:  make(chan Message, 10),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	log.Debug("Connecting", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := Message{
		Type: TypeClientHello,
		Payload: ClientHello{
			ClientID: uuid.NewString(),
			Name:     c.config.Name,
		},
	}
	if err := c.sendJSON(hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer c.conn.SetReadDeadline(time.Time{})

	var msg envelope
	if err := c.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	if msg.Type != TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}
	if err := msg.decode(&c.server); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	log.Debug("Handshake complete", "server", c.server.Name)
	return nil
}

// Server returns the server hello received during the handshake
func (c *Client) Server() ServerHello {
	return c.server
}

func (c *Client) sendJSON(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.done)
	defer c.Close()

	for {
		var msg envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Debug("Read error", "err", err)
			}
			return
		}
		c.route(msg)
	}
}

func (c *Client) route(msg envelope) {
	switch msg.Type {
	case TypeResult:
		var r Result
		if err := msg.decode(&r); err != nil {
			log.Warn("Bad result payload", "err", err)
			return
		}
		deliver(c.ctx, c.Results, r)

	case TypeState:
		var st State
		if err := msg.decode(&st); err != nil {
			log.Warn("Bad state payload", "err", err)
			return
		}
		deliver(c.ctx, c.States, st)

	case TypeTrackChanged:
		var tc TrackChanged
		if err := msg.decode(&tc); err != nil {
			log.Warn("Bad track_changed payload", "err", err)
			return
		}
		deliver(c.ctx, c.Events, Message{Type: msg.Type, Payload: tc})

	case TypeError:
		var e ErrorEvent
		if err := msg.decode(&e); err != nil {
			log.Warn("Bad error payload", "err", err)
			return
		}
		deliver(c.ctx, c.Events, Message{Type: msg.Type, Payload: e})

	case TypeTrackFinished:
		deliver(c.ctx, c.Events, Message{Type: msg.Type})

	default:
		log.Debug("Unknown message type", "type", msg.Type)
	}
}

func deliver[T any](ctx context.Context, ch chan T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}

// Play asks the player to start path
func (c *Client) Play(path string) error {
	return c.sendJSON(Message{Type: TypePlay, Payload: PlayCommand{Path: path}})
}

// Pause asks the player to pause
func (c *Client) Pause() error { return c.command(TypePause) }

// Resume asks the player to resume
func (c *Client) Resume() error { return c.command(TypeResume) }

// Stop asks the player to stop
func (c *Client) Stop() error { return c.command(TypeStop) }

// Next asks the player to skip to the next playlist entry
func (c *Client) Next() error { return c.command(TypeNext) }

// Previous asks the player to go back one playlist entry
func (c *Client) Previous() error { return c.command(TypePrevious) }

// Status asks the player for a player/state message
func (c *Client) Status() error { return c.command(TypeStatus) }

func (c *Client) command(msgType string) error {
	return c.sendJSON(Message{Type: msgType})
}

// Await waits for the next command result
func (c *Client) Await(timeout time.Duration) (Result, error) {
	select {
	case r := <-c.Results:
		return r, nil
	case <-c.done:
		return Result{}, fmt.Errorf("connection closed")
	case <-time.After(timeout):
		return Result{}, fmt.Errorf("timed out waiting for result")
	}
}

// Done is closed when the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.conn.Close()
		log.Debug("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
