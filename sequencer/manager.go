package sequencer

import (
	"context"
	"sync"
	"time"

	"go-vibe/debug"
	"go-vibe/dispatch"
	"go-vibe/model"
	"go-vibe/protocol"
)

// Output delivers trigger messages to the OSC target
type Output interface {
	Dispatch(b dispatch.Batch) bool
	SetTarget(addr string) error
	Target() string
	Established() bool
}

// Outbox fans commands out to connected clients. Neither method may block.
type Outbox interface {
	Broadcast(cmd protocol.ClientCommand)
	Send(to uint64, cmd protocol.ClientCommand)
}

// Manager is the single owner of the project and the transport. Ticks and
// client commands both run under mu, so clients never see a half applied
// change.
type Manager struct {
	mu      sync.Mutex
	project *model.Project
	ticker  *Ticker
	player  *Player
	context *string // pattern previewed instead of the tracks

	out Output
	box Outbox

	interruptChan chan struct{} // signal the clock loop to recalculate
	now           func() time.Time
}

// NewManager creates a manager for a loaded project
func NewManager(p *model.Project, out Output, box Outbox) *Manager {
	return &Manager{
		project:       p,
		ticker:        NewTicker(p.BPM),
		player:        NewPlayer(),
		out:           out,
		box:           box,
		interruptChan: make(chan struct{}, 1),
		now:           time.Now,
	}
}

// interrupt signals the clock loop to recalculate (transport changed)
func (m *Manager) interrupt() {
	select {
	case m.interruptChan <- struct{}{}:
	default:
	}
}

// Run drives the clock until ctx is done
func (m *Manager) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		m.mu.Lock()
		deadline, playing := m.ticker.Deadline()
		m.mu.Unlock()

		var fire <-chan time.Time
		if playing {
			timer.Reset(time.Until(deadline))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.interruptChan:
		case <-fire:
			m.mu.Lock()
			if now := m.now(); m.ticker.Due(now) {
				m.step(m.ticker.Fire(now))
			}
			m.mu.Unlock()
		}
		timer.Stop()
	}
}

// Advance fires the next tick immediately if Playing. It is how tests and
// external clocks step the sequencer deterministically.
func (m *Manager) Advance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticker.State() != Playing {
		return false
	}
	m.step(m.ticker.Fire(m.now()))
	m.interrupt()
	return true
}

// contextPattern resolves the previewed pattern, if any
func (m *Manager) contextPattern() *model.Pattern {
	if m.context == nil {
		return nil
	}
	pat, ok := m.project.Patterns.Get(*m.context)
	if !ok {
		return nil
	}
	return pat
}

// step plays one tick. Caller holds mu.
func (m *Manager) step(tick int) {
	st := m.player.Step(m.project, tick, m.contextPattern())
	m.out.Dispatch(dispatch.Batch{Tick: tick, Messages: st.Messages(), Notes: st.Notes()})

	for _, w := range st.Warnings {
		m.box.Broadcast(protocol.Notify{Severity: protocol.Warn, Summary: "Missing Pattern", Detail: w})
	}
	m.broadcastChanges(st.Changes)
	m.box.Broadcast(protocol.TickerTick{Tick: tick, Max: st.Max})
	debug.Trace("ticker", "tick %d max %d triggers %d", tick, st.Max, len(st.Triggers))
}

func (m *Manager) broadcastChanges(changes []Change) {
	for _, c := range changes {
		if c.Deactivated {
			m.box.Broadcast(protocol.TrackMadeActive{Name: c.Track, Active: false})
			m.box.Broadcast(protocol.TrackProgressUpdate{Name: c.Track})
			continue
		}
		m.box.Broadcast(protocol.TrackProgressUpdate{Name: c.Track, Progress: copyFloat(c.Progress)})
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// ReportStatus broadcasts a change of the OSC target connection
func (m *Manager) ReportStatus(established bool) {
	m.box.Broadcast(protocol.CommStatusChanged{Established: established})
}

// ReportFailure tells clients that OSC delivery is failing
func (m *Manager) ReportFailure(err error) {
	debug.Warn("osc", "delivery failing: %v", err)
	m.box.Broadcast(protocol.Notify{
		Severity: protocol.Warn,
		Summary:  "Failed to Send OSC",
		Detail:   model.Describe(err),
	})
}

// Status is a read-only snapshot for health checks and monitors
type Status struct {
	Name        string  `json:"name"`
	State       string  `json:"state"`
	BPM         float64 `json:"bpm"`
	Tick        int     `json:"tick"`
	Max         int     `json:"max"`
	Tracks      int     `json:"tracks"`
	Active      int     `json:"active"`
	Patterns    int     `json:"patterns"`
	Target      string  `json:"target"`
	Established bool    `json:"established"`
	Context     *string `json:"context"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := 0
	m.project.Tracks.Each(func(_ string, t *model.Track) bool {
		if t.Active {
			active++
		}
		return true
	})
	var ctx *string
	if m.context != nil {
		c := *m.context
		ctx = &c
	}
	return Status{
		Name:        m.project.Name,
		State:       m.ticker.State().String(),
		BPM:         m.ticker.BPM(),
		Tick:        m.ticker.Tick(),
		Max:         m.player.Max(m.project, m.contextPattern()),
		Tracks:      m.project.Tracks.Len(),
		Active:      active,
		Patterns:    m.project.Patterns.Len(),
		Target:      m.out.Target(),
		Established: m.out.Established(),
		Context:     ctx,
	}
}

// WithProject runs fn with the project locked. fn must not keep the pointer.
func (m *Manager) WithProject(fn func(p *model.Project) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.project)
}

// Save writes the project to path
func (m *Manager) Save(path string) error {
	return m.WithProject(func(p *model.Project) error {
		return model.SaveProject(p, path)
	})
}
