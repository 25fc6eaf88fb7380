package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-vibe/model"
	"go-vibe/protocol"
	"go-vibe/sequencer"
	"go-vibe/server"
	"go-vibe/theme"
	"go-vibe/widgets"
)

// Backend is the part of the sequencer the monitor drives
type Backend interface {
	Handle(from uint64, cmd protocol.ServerCommand)
	Status() sequencer.Status
}

const (
	bpmStep  = 5
	barWidth = 16
)

type trackRow struct {
	name     string
	active   bool
	loop     bool
	progress *float64
}

// Model is a terminal monitor. It is one more hub client: it sees the same
// broadcasts as remote clients and sends commands under its own client ID.
type Model struct {
	backend Backend
	client  *server.Client
	theme   *theme.Theme

	status   sequencer.Status
	tracks   []trackRow
	patterns map[string]*model.Pattern
	notice   *protocol.Notify
	quitting bool
}

// ClientMsg carries one command received from the hub
type ClientMsg struct {
	Cmd protocol.ClientCommand
}

// DroppedMsg means the hub disconnected the monitor
type DroppedMsg struct{}

func NewModel(backend Backend, client *server.Client, th *theme.Theme) Model {
	return Model{
		backend:  backend,
		client:   client,
		theme:    th,
		status:   backend.Status(),
		patterns: make(map[string]*model.Pattern),
	}
}

// ListenForUpdates waits for the next queued command
func ListenForUpdates(c *server.Client) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.Out():
			return ClientMsg{Cmd: msg.Cmd}
		case <-c.Done():
			return DroppedMsg{}
		}
	}
}

func (m Model) send(cmd protocol.ServerCommand) {
	m.backend.Handle(m.client.ID, cmd)
}

func (m Model) Init() tea.Cmd {
	m.send(protocol.RequestAllTracks{})
	m.send(protocol.RequestAllPatterns{})
	return ListenForUpdates(m.client)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case " ", "p":
			if m.status.State == sequencer.Playing.String() {
				m.send(protocol.TickerPause{})
			} else {
				m.send(protocol.TickerPlay{})
			}

		case "s":
			m.send(protocol.TickerStop{})

		case "+", "=":
			m.send(protocol.TickerSetBpm{Bpm: m.status.BPM + bpmStep})

		case "-", "_":
			if m.status.BPM > bpmStep {
				m.send(protocol.TickerSetBpm{Bpm: m.status.BPM - bpmStep})
			}

		case "c":
			m.send(protocol.CtrlChangeContext{})
		}

	case ClientMsg:
		m.apply(msg.Cmd)
		return m, ListenForUpdates(m.client)

	case DroppedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) track(name string) *trackRow {
	for i := range m.tracks {
		if m.tracks[i].name == name {
			return &m.tracks[i]
		}
	}
	return nil
}

func rowOf(name string, t *model.Track) trackRow {
	return trackRow{name: name, active: t.Active, loop: t.Loop, progress: t.Progress}
}

// apply folds one broadcast or response into the monitor's state
func (m *Model) apply(cmd protocol.ClientCommand) {
	switch c := cmd.(type) {
	case protocol.TickerTick:
		m.status.Tick, m.status.Max = c.Tick, c.Max
	case protocol.TickerPlaying:
		m.status.State = sequencer.Playing.String()
	case protocol.TickerPaused:
		m.status.State = sequencer.Paused.String()
	case protocol.TickerStopped:
		m.status.State = sequencer.Stopped.String()
		m.status.Tick = 0
	case protocol.TickerBpmUpdated:
		m.status.BPM = c.Bpm
	case protocol.ProjectNameUpdated:
		m.status.Name = c.Name
	case protocol.CommAddrChanged:
		m.status.Target = c.Addr
	case protocol.CommStatusChanged:
		m.status.Established = c.Established
	case protocol.CtrlContextChanged:
		m.status.Context = c.Context

	case protocol.ResponseAllTracks:
		m.tracks = m.tracks[:0]
		c.Tracks.Each(func(name string, t *model.Track) bool {
			m.tracks = append(m.tracks, rowOf(name, t))
			return true
		})
	case protocol.TrackAdded:
		m.tracks = append(m.tracks, rowOf(c.Name, c.Track))
	case protocol.TrackEdited:
		if t := m.track(c.Name); t != nil {
			t.loop = c.Track.Loop
		}
	case protocol.TrackDeleted:
		for i := range m.tracks {
			if m.tracks[i].name == c.Name {
				m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
				break
			}
		}
	case protocol.TrackMadeActive:
		if t := m.track(c.Name); t != nil {
			t.active = c.Active
		}
	case protocol.TrackMadeLoop:
		if t := m.track(c.Name); t != nil {
			t.loop = c.Loop
		}
	case protocol.TrackProgressUpdate:
		if t := m.track(c.Name); t != nil {
			t.progress = c.Progress
		}

	case protocol.ResponseAllPatterns:
		m.patterns = make(map[string]*model.Pattern)
		c.Patterns.Each(func(name string, p *model.Pattern) bool {
			m.patterns[name] = p
			return true
		})
	case protocol.PatternAdded:
		m.patterns[c.Name] = c.Pattern
	case protocol.PatternEdited:
		m.patterns[c.Name] = c.Pattern
	case protocol.PatternDeleted:
		delete(m.patterns, c.Name)

	case protocol.Notify:
		n := c
		m.notice = &n
	}
}

func (m Model) severityColor(s protocol.Severity) lipgloss.Color {
	switch s {
	case protocol.Error:
		return m.theme.Active()
	case protocol.Warn:
		return m.theme.Warning()
	case protocol.Success:
		return m.theme.Success()
	}
	return m.theme.FG()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.theme.FG())

	link := "down"
	if m.status.Established {
		link = "up"
	}
	header := headerStyle.Render(fmt.Sprintf("%s  %s  %3.0fbpm  tick:%d/%d  osc:%s (%s)",
		m.status.Name, strings.ToUpper(m.status.State), m.status.BPM,
		m.status.Tick, m.status.Max, m.status.Target, link))

	var rows []string
	for _, t := range m.tracks {
		mark := m.theme.Symbols.TrackInactive
		if t.active {
			mark = m.theme.Symbols.TrackActive
		}
		loop := " "
		if t.loop {
			loop = string(m.theme.Symbols.TrackLoop)
		}
		rows = append(rows, fmt.Sprintf("%s %s %-16s %s",
			fgStyle.Render(string(mark)), loop, t.name,
			widgets.RenderProgress(m.theme, t.progress, barWidth)))
	}
	if len(rows) == 0 {
		rows = append(rows, dimStyle.Render("no tracks"))
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(strings.Join(rows, "\n"))

	if m.status.Context != nil {
		out.WriteString("\n\n")
		out.WriteString(dimStyle.Render("context " + *m.status.Context + "  "))
		if p, ok := m.patterns[*m.status.Context]; ok && p.SlotCount() > 0 {
			out.WriteString(widgets.RenderSlots(m.theme, flatten(p), m.status.Tick%p.SlotCount()))
		}
	}

	if m.notice != nil {
		out.WriteString("\n\n")
		style := lipgloss.NewStyle().Foreground(m.severityColor(m.notice.Severity))
		out.WriteString(style.Render(m.notice.Summary + ": " + m.notice.Detail))
	}

	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{{
		Keys: []widgets.KeyBinding{
			{Key: "space", Desc: "play/pause"},
			{Key: "s", Desc: "stop"},
			{Key: "+/-", Desc: "tempo"},
			{Key: "c", Desc: "clear context"},
			{Key: "q", Desc: "quit"},
		},
	}})))

	return out.String()
}

func flatten(p *model.Pattern) []*uint8 {
	var codes []*uint8
	for _, page := range p.MidiCodes {
		codes = append(codes, page[:]...)
	}
	return codes
}
