package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"go-vibe/midi"
	"go-vibe/protocol"
)

var (
	addr  = flag.StringP("addr", "a", "ws://127.0.0.1:8000/", "daemon websocket URL")
	wait  = flag.DurationP("wait", "w", 500*time.Millisecond, "how long to print broadcasts after sending")
	force = flag.BoolP("force", "f", false, "restart a track that is already active")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "ports" {
		listPorts()
		return
	}

	var cmd protocol.ServerCommand
	if args[0] != "watch" {
		var err error
		cmd, err = parseCommand(args, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vibectl: %v\n", err)
			os.Exit(2)
		}
	}

	if err := run(*addr, cmd, *wait, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vibectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("vibectl - send one command to vibed and print the replies")
	fmt.Println("")
	fmt.Println("Usage: vibectl [flags] <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  play | pause | stop       - transport")
	fmt.Println("  bpm <bpm>                 - set the tempo")
	fmt.Println("  name <name>               - rename the project")
	fmt.Println("  target <host:port>        - retarget OSC output")
	fmt.Println("  context [pattern]         - preview a pattern, no argument clears")
	fmt.Println("  activate <track>          - start a track (--force restarts it)")
	fmt.Println("  deactivate <track>        - stop a track")
	fmt.Println("  loop <track> on|off       - set looping")
	fmt.Println("  fire <event>              - fire an event")
	fmt.Println("  slider <slider> <val>     - set a slider")
	fmt.Println("  status                    - transport state")
	fmt.Println("  tracks | patterns | events | sliders")
	fmt.Println("  track <name> | pattern <name>")
	fmt.Println("  send '<json>'             - send a raw {action, payload} command")
	fmt.Println("  watch                     - print broadcasts until interrupted")
	fmt.Println("  ports                     - list MIDI output ports")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func listPorts() {
	names, err := midi.OutPortNames(midi.ScanTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vibectl: %v\n", err)
		os.Exit(1)
	}
	defer midi.CloseDriver()
	if len(names) == 0 {
		fmt.Println("(no MIDI output ports)")
	}
	for i, n := range names {
		fmt.Printf("  [%d] %s\n", i, n)
	}
}

func need(args []string, n int) error {
	if len(args) != n+1 {
		return errors.Errorf("%s takes %d argument(s)", args[0], n)
	}
	return nil
}

// parseCommand turns command line words into a protocol command
func parseCommand(args []string, force bool) (protocol.ServerCommand, error) {
	switch args[0] {
	case "play", "pause", "stop", "status", "tracks", "patterns", "events", "sliders":
		if err := need(args, 0); err != nil {
			return nil, err
		}
	case "bpm", "name", "target", "activate", "deactivate", "fire", "track", "pattern", "send":
		if err := need(args, 1); err != nil {
			return nil, err
		}
	case "loop", "slider":
		if err := need(args, 2); err != nil {
			return nil, err
		}
	}

	switch args[0] {
	case "play":
		return protocol.TickerPlay{}, nil
	case "pause":
		return protocol.TickerPause{}, nil
	case "stop":
		return protocol.TickerStop{}, nil
	case "bpm":
		bpm, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, errors.Wrap(err, "bpm")
		}
		return protocol.TickerSetBpm{Bpm: bpm}, nil
	case "name":
		return protocol.SetProjectName{Name: args[1]}, nil
	case "target":
		return protocol.CommChangeAddr{Addr: args[1]}, nil
	case "context":
		switch len(args) {
		case 1:
			return protocol.CtrlChangeContext{}, nil
		case 2:
			name := args[1]
			return protocol.CtrlChangeContext{Context: &name}, nil
		}
		return nil, errors.New("context takes at most 1 argument")
	case "activate":
		return protocol.TrackMakeActive{Name: args[1], Active: true, Force: force}, nil
	case "deactivate":
		return protocol.TrackMakeActive{Name: args[1], Active: false}, nil
	case "loop":
		on, err := parseSwitch(args[2])
		if err != nil {
			return nil, err
		}
		return protocol.TrackMakeLoop{Name: args[1], Loop: on}, nil
	case "fire":
		return protocol.EventFire{Name: args[1]}, nil
	case "slider":
		val, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return nil, errors.Wrap(err, "slider value")
		}
		return protocol.SliderSetVal{Name: args[1], Val: val}, nil
	case "status":
		return protocol.RequestTickerPlaying{}, nil
	case "tracks":
		return protocol.RequestAllTracks{}, nil
	case "patterns":
		return protocol.RequestAllPatterns{}, nil
	case "events":
		return protocol.RequestAllEvents{}, nil
	case "sliders":
		return protocol.RequestAllSliders{}, nil
	case "track":
		return protocol.RequestTrack{Name: args[1]}, nil
	case "pattern":
		return protocol.RequestPattern{Name: args[1]}, nil
	case "send":
		return protocol.DecodeServer([]byte(args[1]))
	}
	return nil, errors.Errorf("unknown command %q", args[0])
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, errors.Errorf("expected on or off, got %q", s)
}

// run sends cmd and prints replies. A response or an error Notify ends it
// at once, otherwise it prints broadcasts for wait. A nil cmd watches
// forever.
func run(url string, cmd protocol.ServerCommand, wait time.Duration, w io.Writer) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return errors.Wrapf(err, "connect to %s", url)
	}
	defer conn.Close()

	if cmd != nil {
		data, err := protocol.EncodeServer(cmd)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return errors.Wrap(err, "send")
		}
	}

	if cmd != nil {
		conn.SetReadDeadline(time.Now().Add(wait))
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil
			}
			return errors.Wrap(err, "read")
		}
		fmt.Fprintln(w, string(data))

		reply, err := protocol.DecodeClient(data)
		if err != nil {
			continue
		}
		if n, ok := reply.(protocol.Notify); ok && n.Severity == protocol.Error {
			return errors.Errorf("%s: %s", n.Summary, n.Detail)
		}
		if cmd != nil && protocol.IsResponse(reply) {
			return nil
		}
	}
}
