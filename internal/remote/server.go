// ABOUTME: Websocket remote control server
// ABOUTME: Accepts clients, dispatches commands to the player and broadcasts events
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/cadence/internal/version"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Player is the playback surface driven by remote commands
type Player interface {
	Play(path string) error
	Pause() error
	Resume() error
	Stop() error
	Next() error
	Previous() error
	Status() State
}

// Config holds server configuration
type Config struct {
	Port int
	Name string
}

// Server serves the remote control endpoint
type Server struct {
	config   Config
	serverID string
	player   Player

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux
	listener   net.Listener

	clients   map[string]*client
	clientsMu sync.RWMutex

	wg         sync.WaitGroup
	shutdownMu sync.RWMutex
	isShutdown bool
}

type client struct {
	id       string
	name     string
	conn     *websocket.Conn
	sendChan chan Message
}

// NewServer creates a remote control server for player
func NewServer(config Config, player Player) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.NewString(),
		player:   player,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Non-browser clients send no Origin header; the endpoint is meant
			// for trusted local networks
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured port and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	log.Info("Remote control listening", "addr", ln.Addr().String(), "path", Path)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Remote server failed", "err", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes client connections and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.clientsMu.RUnlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast queues a message for every client. Slow clients miss messages
// rather than stalling the player.
func (s *Server) Broadcast(msgType string, payload interface{}) {
	msg := Message{Type: msgType, Payload: payload}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		select {
		case c.sendChan <- msg:
		default:
			log.Warn("Dropping remote message for slow client", "client", c.name, "type", msgType)
		}
	}
}

// NotifyState broadcasts the current player state
func (s *Server) NotifyState() {
	s.Broadcast(TypeState, s.player.Status())
}

// NotifyTrackChanged broadcasts a track change
func (s *Server) NotifyTrackChanged(path string) {
	s.Broadcast(TypeTrackChanged, TrackChanged{Path: path})
}

// NotifyTrackFinished broadcasts the natural end of a track
func (s *Server) NotifyTrackFinished() {
	s.Broadcast(TypeTrackFinished, nil)
}

// NotifyError broadcasts a terminal playback error
func (s *Server) NotifyError(err error) {
	s.Broadcast(TypeError, ErrorEvent{Message: err.Error()})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade error", "err", err)
		return
	}

	log.Debug("New remote connection", "remote", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection performs the handshake and serves one client
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		return
	}
	s.shutdownMu.RUnlock()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello envelope
	if err := conn.ReadJSON(&hello); err != nil {
		log.Warn("Error reading hello", "err", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	if hello.Type != TypeClientHello {
		log.Warn("Expected client/hello", "got", hello.Type)
		return
	}
	var h ClientHello
	if err := hello.decode(&h); err != nil || h.ClientID == "" {
		log.Warn("Invalid client hello", "err", err)
		return
	}

	c := &client{
		id:       h.ClientID,
		name:     h.Name,
		conn:     conn,
		sendChan: make(chan Message, 32),
	}

	s.clientsMu.Lock()
	if _, exists := s.clients[c.id]; exists {
		s.clientsMu.Unlock()
		log.Warn("Rejecting duplicate client id", "client", c.id)
		conn.WriteJSON(Message{Type: TypeError, Payload: ErrorEvent{Message: "client id already connected"}})
		return
	}
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	log.Info("Remote client connected", "name", c.name, "id", c.id)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.sendChan)
		log.Info("Remote client disconnected", "name", c.name)
	}()

	// Handshake replies go out before the writer starts
	if err := conn.WriteJSON(Message{Type: TypeServerHello, Payload: ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  ProtocolVersion,
		Software: version.String(),
	}}); err != nil {
		log.Warn("Error sending server hello", "err", err)
		return
	}
	if err := conn.WriteJSON(Message{Type: TypeState, Payload: s.player.Status()}); err != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("Remote read error", "err", err)
			}
			return
		}
		s.handleCommand(c, msg)
	}
}

// clientWriter sends queued messages and keepalive pings
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warn("Error marshaling message", "err", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("Error writing to client", "client", c.name, "err", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleCommand runs one command and answers with player/result
func (s *Server) handleCommand(c *client, msg envelope) {
	var err error

	switch msg.Type {
	case TypePlay:
		var cmd PlayCommand
		if err = msg.decode(&cmd); err == nil {
			err = s.player.Play(cmd.Path)
		}
	case TypePause:
		err = s.player.Pause()
	case TypeResume:
		err = s.player.Resume()
	case TypeStop:
		err = s.player.Stop()
	case TypeNext:
		err = s.player.Next()
	case TypePrevious:
		err = s.player.Previous()
	case TypeStatus:
		s.send(c, Message{Type: TypeState, Payload: s.player.Status()})
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}

	log.Debug("Remote command", "client", c.name, "type", msg.Type, "err", err)

	result := Result{Command: msg.Type, OK: err == nil}
	if err != nil {
		result.Error = err.Error()
	}
	s.send(c, Message{Type: TypeResult, Payload: result})
}

func (s *Server) send(c *client, msg Message) {
	select {
	case c.sendChan <- msg:
	default:
		log.Warn("Dropping reply for slow client", "client", c.name, "type", msg.Type)
	}
}
