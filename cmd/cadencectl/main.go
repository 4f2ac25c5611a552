// ABOUTME: Command line remote control for cadence players
// ABOUTME: Discovers players via mDNS or connects directly and sends one command
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Resonate-Protocol/cadence/internal/discovery"
	"github.com/Resonate-Protocol/cadence/internal/remote"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

var (
	serverAddr = pflag.StringP("server", "s", "", "Player address host:port (skip mDNS)")
	timeout    = pflag.Duration("timeout", 5*time.Second, "Discovery and reply timeout")
	follow     = pflag.BoolP("follow", "f", false, "Keep printing events after the command")
	debug      = pflag.Bool("debug", false, "Debug logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: cadencectl [flags] <play PATH|pause|resume|stop|next|previous|status|discover>\n")
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	pflag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if pflag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	if pflag.Arg(0) == "discover" {
		discover()
		return
	}

	addr := *serverAddr
	if addr == "" {
		player, err := findPlayer()
		if err != nil {
			log.Fatal("Discovery failed", "err", err)
		}
		addr = player.Addr()
	}

	client := remote.NewClient(remote.ClientConfig{ServerAddr: addr, Name: "cadencectl"})
	if err := client.Connect(); err != nil {
		log.Fatal("Connection failed", "addr", addr, "err", err)
	}
	log.Debug("Connected", "player", client.Server().Name, "software", client.Server().Software)
	defer client.Close()

	if err := send(client, pflag.Args()); err != nil {
		log.Fatal("Command failed", "err", err)
	}

	if pflag.Arg(0) == "status" {
		printState(waitState(client))
	}

	result, err := client.Await(*timeout)
	if err != nil {
		log.Fatal("No reply", "err", err)
	}
	if !result.OK {
		fmt.Fprintf(os.Stderr, "%s failed: %s\n", result.Command, result.Error)
		os.Exit(1)
	}

	if *follow {
		followEvents(client)
	}
}

func send(client *remote.Client, args []string) error {
	switch args[0] {
	case "play":
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		return client.Play(path)
	case "pause":
		return client.Pause()
	case "resume":
		return client.Resume()
	case "stop":
		return client.Stop()
	case "next":
		return client.Next()
	case "previous", "prev":
		return client.Previous()
	case "status":
		return client.Status()
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// waitState skips the state sent on connect and returns the reply to status
func waitState(client *remote.Client) remote.State {
	var last remote.State
	deadline := time.After(*timeout)
	for i := 0; i < 2; i++ {
		select {
		case last = <-client.States:
		case <-deadline:
			return last
		}
	}
	return last
}

func printState(st remote.State) {
	fmt.Printf("state:    %s\n", st.State)
	if st.Track != "" {
		fmt.Printf("track:    %s (%d/%d)\n", st.Track, st.Index+1, st.Total)
	}
	fmt.Printf("buffer:   %d/%d blocks\n", st.Buffered, st.Capacity)
	fmt.Printf("played:   %d blocks\n", st.Delivered)
}

func followEvents(client *remote.Client) {
	for {
		select {
		case ev := <-client.Events:
			switch p := ev.Payload.(type) {
			case remote.TrackChanged:
				fmt.Printf("track changed: %s\n", p.Path)
			case remote.ErrorEvent:
				fmt.Printf("error: %s\n", p.Message)
			default:
				fmt.Println(ev.Type)
			}
		case st := <-client.States:
			fmt.Printf("state: %s\n", st.State)
		case <-client.Done():
			return
		}
	}
}

func findPlayer() (*discovery.PlayerInfo, error) {
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()
	mgr.Browse()

	select {
	case player := <-mgr.Players():
		log.Debug("Found player", "name", player.Name, "addr", player.Addr())
		return player, nil
	case <-time.After(*timeout):
		return nil, fmt.Errorf("no player found after %v", *timeout)
	}
}

func discover() {
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()
	mgr.Browse()

	seen := make(map[string]bool)
	deadline := time.After(*timeout)
	for {
		select {
		case player := <-mgr.Players():
			if seen[player.Addr()] {
				continue
			}
			seen[player.Addr()] = true
			fmt.Printf("%-24s %s%s\n", player.Name, player.Addr(), player.Path)
		case <-deadline:
			if len(seen) == 0 {
				fmt.Println("no players found")
			}
			return
		}
	}
}
