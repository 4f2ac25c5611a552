// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the command channels to the player
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a playback request from the keyboard
type Command int

const (
	CommandTogglePause Command = iota
	CommandStop
	CommandNext
	CommandPrevious
	CommandReplay
)

func (c Command) String() string {
	switch c {
	case CommandTogglePause:
		return "toggle-pause"
	case CommandStop:
		return "stop"
	case CommandNext:
		return "next"
	case CommandPrevious:
		return "previous"
	case CommandReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// QuitMsg signals that the user asked to quit
type QuitMsg struct{}

// Control holds channels for communication from the TUI to the player
type Control struct {
	Commands chan Command
	Quit     chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	return Model{
		state:   "stopped",
		control: ctrl,
	}
}

// Run creates the TUI program; the caller runs it
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
