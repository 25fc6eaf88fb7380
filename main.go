package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"go-vibe/config"
	"go-vibe/debug"
	"go-vibe/dispatch"
	"go-vibe/midi"
	"go-vibe/model"
	"go-vibe/sequencer"
	"go-vibe/server"
	"go-vibe/theme"
	"go-vibe/tui"
)

// noteGate is how long mirrored MIDI notes are held
const noteGate = 100 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("vibed", flag.ExitOnError)
	cfg.BindFlags(fs)
	saveConfig := fs.Bool("save-config", false, "persist the merged configuration and continue")
	listPorts := fs.Bool("list-midi-ports", false, "list MIDI output ports and exit")
	withTUI := fs.Bool("tui", false, "show the terminal monitor")
	fs.Parse(os.Args[1:])

	if *listPorts {
		return printPorts()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *saveConfig {
		if err := cfg.Save(); err != nil {
			return errors.Wrap(err, "save config")
		}
	}

	if err := debug.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	// The monitor owns the terminal, so its log always goes to a file.
	if cfg.LogFile != "" || *withTUI {
		if err := debug.Enable(cfg.LogFile); err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer debug.Disable()
	}

	projectPath, err := cfg.Project()
	if err != nil {
		return err
	}
	project, err := loadProject(projectPath, cfg, fs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(cfg.QueueSize)

	// The dispatcher reports to the manager, which is built on top of it.
	var mgrRef atomic.Pointer[sequencer.Manager]
	opts := dispatch.Options{
		Addr:      project.TargetAddr,
		Transport: cfg.Transport,
		QueueSize: cfg.DispatchQueue,
		OnFailure: func(err error) {
			if m := mgrRef.Load(); m != nil {
				m.ReportFailure(err)
			}
		},
		OnStatus: func(established bool) {
			if m := mgrRef.Load(); m != nil {
				m.ReportStatus(established)
			}
		},
	}
	if cfg.MidiPort != "" {
		out, err := midi.NewOutput(cfg.MidiPort, cfg.MidiChannel, noteGate)
		if err != nil {
			return err
		}
		defer midi.CloseDriver()
		opts.Notes = out
		debug.Info("midi", "mirroring notes to %q channel %d", cfg.MidiPort, cfg.MidiChannel)
	}
	out, err := dispatch.New(opts)
	if err != nil {
		return err
	}

	mgr := sequencer.NewManager(project, out, hub)
	mgrRef.Store(mgr)
	srv := server.New(hub, mgr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 3)
	go func() { done <- out.Run(ctx) }()
	go func() { done <- mgr.Run(ctx) }()
	go func() { done <- srv.ListenAndServe(ctx, cfg.Listen) }()

	fmt.Printf("vibed: project %q, clients on %s, OSC to %s over %s\n",
		project.Name, cfg.Listen, project.TargetAddr, cfg.Transport)

	if *withTUI {
		go func() {
			if err := runMonitor(mgr, hub, cfg.Palette); err != nil {
				debug.Error("tui", "monitor: %v", err)
			}
			cancel()
		}()
	}

	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-done:
		if errors.Is(firstErr, context.Canceled) {
			firstErr = nil
		}
	}
	cancel()

	if cfg.Autosave {
		if err := mgr.Save(projectPath); err != nil {
			debug.Error("project", "autosave: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			debug.Info("project", "saved %s", projectPath)
		}
	}
	return firstErr
}

// loadProject reads the project file. A fresh project takes its name, tempo
// and target from the config; an explicit --target always wins.
func loadProject(path string, cfg *config.Config, fs *flag.FlagSet) (*model.Project, error) {
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	p, err := model.LoadProject(path)
	var broken *model.InvariantError
	if errors.As(err, &broken) {
		// Keep what loaded; the dropped entities are gone on the next save.
		for _, problem := range broken.Problems {
			debug.Error("project", "dropped: %s", problem)
		}
		fmt.Fprintf(os.Stderr, "vibed: %d broken entities dropped from %s, see the log\n", len(broken.Problems), path)
	} else if err != nil {
		return nil, err
	}

	if fresh {
		p.Name = cfg.ProjectName
		p.BPM = cfg.BPM
		p.TargetAddr = cfg.TargetAddr
		debug.Info("project", "new project %q at %s", p.Name, path)
	} else {
		debug.Info("project", "loaded %q from %s", p.Name, path)
	}
	if fs.Changed("target") {
		p.TargetAddr = cfg.TargetAddr
	}
	return p, nil
}

func runMonitor(mgr *sequencer.Manager, hub *server.Hub, palettePath string) error {
	palette, err := theme.LoadOrDefault(palettePath)
	if err != nil {
		return err
	}
	client := hub.Register("monitor")
	defer hub.Unregister(client)

	m := tui.NewModel(mgr, client, theme.New(palette))
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func printPorts() error {
	names, err := midi.OutPortNames(midi.ScanTimeout)
	if err != nil {
		return err
	}
	defer midi.CloseDriver()

	fmt.Println("=== MIDI Output Ports ===")
	if len(names) == 0 {
		fmt.Println("  (none)")
	}
	for i, name := range names {
		fmt.Printf("  [%d] %s\n", i, name)
	}
	return nil
}
