// ABOUTME: Remote control message definitions
// ABOUTME: JSON envelope, commands and events exchanged over the websocket
package remote

import "encoding/json"

// ProtocolVersion is sent in server/hello
const ProtocolVersion = 1

// Path is the websocket endpoint and the mDNS TXT path
const Path = "/cadence"

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"

	TypePlay     = "player/play"
	TypePause    = "player/pause"
	TypeResume   = "player/resume"
	TypeStop     = "player/stop"
	TypeNext     = "player/next"
	TypePrevious = "player/previous"
	TypeStatus   = "player/status"

	TypeResult        = "player/result"
	TypeState         = "player/state"
	TypeTrackChanged  = "player/track_changed"
	TypeTrackFinished = "player/track_finished"
	TypeError         = "player/error"
)

// Message is the top-level wrapper for all remote messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// envelope is a received message with its payload left undecoded
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// decode unmarshals the payload into v; an absent payload leaves v untouched
func (e envelope) decode(v interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// ServerHello is the player's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Software string `json:"software"`
}

// PlayCommand starts a track. An empty path resumes a paused track.
type PlayCommand struct {
	Path string `json:"path"`
}

// Result answers every command
type Result struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// State reports the player state
type State struct {
	State     string `json:"state"`
	Track     string `json:"track,omitempty"`
	Buffered  int    `json:"buffered"`
	Capacity  int    `json:"capacity"`
	Delivered int64  `json:"delivered"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
}

// TrackChanged reports that a new track started
type TrackChanged struct {
	Path string `json:"path"`
}

// ErrorEvent reports a terminal playback error
type ErrorEvent struct {
	Message string `json:"message"`
}
