// ABOUTME: Lists playback devices for the device.id setting
// ABOUTME: Queries the malgo backend, and portaudio when built with the portaudio tag
package main

import (
	"fmt"
	"os"

	"github.com/Resonate-Protocol/cadence/pkg/audio/output"
	"github.com/charmbracelet/log"
)

func main() {
	m, err := output.NewMalgo(32)
	if err != nil {
		log.Fatal("Failed to initialize malgo", "err", err)
	}
	defer m.Close()

	list("malgo", m)

	if pa, err := output.NewPortAudio(); err == nil {
		defer pa.Close()
		list("portaudio", pa)
	} else {
		log.Debug("PortAudio unavailable", "err", err)
	}
}

func list(name string, l output.Lister) {
	devices, err := l.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return
	}

	fmt.Printf("%s:\n", name)
	if len(devices) == 0 {
		fmt.Println("  no playback devices")
		return
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("  %s %-4s %s\n", marker, d.ID, d.Name)
	}
}
