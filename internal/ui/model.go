// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Defines display state, key handling and status updates
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model represents the TUI state
type Model struct {
	// Playback
	state string
	track string
	index int
	total int

	// Stream
	codec      string
	sampleRate int
	channels   int
	bitDepth   int

	// Queue
	buffered  int
	capacity  int
	delivered int64

	lastError string

	// Remote
	remoteAddr string
	clients    int

	// Debug
	showDebug  bool
	sessionID  string
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Dimensions
	width  int
	height int

	control *Control
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cadence"))
	b.WriteString("\n")
	b.WriteString(m.renderTrack())
	b.WriteString(m.renderQueue())
	if m.remoteAddr != "" {
		b.WriteString(m.renderRemote())
	}
	if m.lastError != "" {
		b.WriteString(errorStyle.Render("Error: " + truncate(m.lastError, 60)))
		b.WriteString("\n")
	}
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n" + m.renderHelp()
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + valueStyle.Render(value) + "\n"
}

// renderTrack renders the state, track and stream format
func (m Model) renderTrack() string {
	if m.track == "" {
		return field("State:", m.state) + field("Track:", "(nothing queued)")
	}

	position := ""
	if m.total > 0 {
		position = fmt.Sprintf(" [%d/%d]", m.index+1, m.total)
	}

	s := field("State:", m.state+position)
	s += field("Track:", truncate(filepath.Base(m.track), 52))
	if m.codec != "" {
		s += field("Format:", fmt.Sprintf("%s %dHz %s %d-bit",
			m.codec, m.sampleRate, channelName(m.channels), m.bitDepth))
	}
	return s
}

// renderQueue renders buffer fill and delivered blocks
func (m Model) renderQueue() string {
	return field("Buffer:", fmt.Sprintf("[%s] %d/%d blocks",
		renderBar(m.buffered, m.capacity, 20), m.buffered, m.capacity)) +
		field("Played:", fmt.Sprintf("%d blocks", m.delivered))
}

func (m Model) renderRemote() string {
	return field("Remote:", fmt.Sprintf("%s (%d connected)", m.remoteAddr, m.clients))
}

// renderDebug renders session and runtime information
func (m Model) renderDebug() string {
	return field("Session:", m.sessionID) +
		field("Gorout.:", fmt.Sprintf("%d", m.goroutines)) +
		field("Memory:", fmt.Sprintf("%.1fMB alloc / %.1fMB sys",
			float64(m.memAlloc)/(1024*1024), float64(m.memSys)/(1024*1024)))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return helpStyle.Render("space:Pause/Resume  s:Stop  n:Next  b:Back  r:Replay  d:Debug  q:Quit")
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case " ", "p":
		m.send(CommandTogglePause)
	case "s":
		m.send(CommandStop)
	case "n":
		m.send(CommandNext)
	case "b":
		m.send(CommandPrevious)
	case "r":
		m.send(CommandReplay)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send forwards a command without blocking the UI
func (m Model) send(cmd Command) {
	if m.control == nil {
		return
	}
	select {
	case m.control.Commands <- cmd:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
		m.track = msg.Track
		m.sessionID = msg.SessionID
	}
	if msg.Total > 0 {
		m.index = msg.Index
		m.total = msg.Total
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.Capacity != 0 {
		m.buffered = msg.Buffered
		m.capacity = msg.Capacity
		m.delivered = msg.Delivered
	}
	if msg.Error != nil {
		m.lastError = *msg.Error
	}
	if msg.RemoteAddr != "" {
		m.remoteAddr = msg.RemoteAddr
		m.clients = msg.Clients
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// StatusMsg updates TUI state. Zero fields leave the display unchanged.
type StatusMsg struct {
	State     string
	Track     string
	SessionID string

	Index int
	Total int

	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int

	Buffered  int
	Capacity  int
	Delivered int64

	Error *string // empty string clears

	RemoteAddr string
	Clients    int

	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := 0
	if max > 0 {
		filled = min((value*width)/max, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
