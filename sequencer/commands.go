package sequencer

import (
	"go-vibe/debug"
	"go-vibe/dispatch"
	"go-vibe/model"
	"go-vibe/protocol"
)

// Handle applies one client command. from identifies the requester:
// responses and failures go only to it, state changes go to everyone.
func (m *Manager) Handle(from uint64, cmd protocol.ServerCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.Log("cmd", "client %d: %s", from, cmd.Action())
	m.apply(from, cmd)
}

func (m *Manager) fail(to uint64, summary string, err error) {
	debug.Log("cmd", "client %d: %s: %v", to, summary, err)
	m.box.Send(to, protocol.Notify{
		Severity: protocol.Error,
		Summary:  summary,
		Detail:   model.Describe(err),
	})
}

func emptyName(kind string) error {
	return model.Invalid("%s name must not be empty", kind)
}

func (m *Manager) apply(from uint64, cmd protocol.ServerCommand) {
	switch c := cmd.(type) {

	// Project and connection

	case protocol.SetProjectName:
		m.project.Name = c.Name
		m.box.Broadcast(protocol.ProjectNameUpdated{Name: c.Name})

	case protocol.CommChangeAddr:
		if err := m.out.SetTarget(c.Addr); err != nil {
			m.fail(from, "Failed to Change Address", err)
			return
		}
		m.project.TargetAddr = c.Addr
		m.box.Broadcast(protocol.CommAddrChanged{Addr: c.Addr})

	case protocol.CtrlChangeContext:
		if c.Context != nil && !m.project.Patterns.Has(*c.Context) {
			m.fail(from, "Failed to Change Context", model.NotFound("Pattern", *c.Context))
			return
		}
		m.context = copyString(c.Context)
		m.box.Broadcast(protocol.CtrlContextChanged{Context: copyString(c.Context)})

	// Tracks

	case protocol.TrackAdd:
		if c.Name == "" {
			m.fail(from, "Failed to Add Track", emptyName("track"))
			return
		}
		t, err := m.project.AddTrack(c.Name)
		if err != nil {
			m.fail(from, "Failed to Add Track", err)
			return
		}
		m.box.Broadcast(protocol.TrackAdded{Name: c.Name, Track: t.Copy()})

	case protocol.TrackDelete:
		if err := m.project.DeleteTrack(c.Name); err != nil {
			m.fail(from, "Failed to Delete Track", err)
			return
		}
		m.player.Forget(c.Name)
		m.box.Broadcast(protocol.TrackDeleted{Name: c.Name})

	case protocol.TrackEdit:
		t, err := m.project.EditTrack(c.Name, c.Track)
		if err != nil {
			m.fail(from, "Failed to Edit Track", err)
			return
		}
		m.box.Broadcast(protocol.TrackEdited{Name: c.Name, Track: t.Copy()})

	case protocol.TrackMakeActive:
		t, err := m.project.Track(c.Name)
		if err != nil {
			m.fail(from, "Failed to Activate Track", err)
			return
		}
		var change Change
		switch {
		case c.Active && t.Active && !c.Force:
			return
		case c.Active:
			change = m.player.Activate(t)
		case !t.Active:
			return
		default:
			change = m.player.Deactivate(t)
		}
		m.box.Broadcast(protocol.TrackMadeActive{Name: c.Name, Active: c.Active})
		m.broadcastChanges([]Change{{Track: change.Track, Progress: change.Progress}})

	case protocol.TrackMakeLoop:
		t, err := m.project.Track(c.Name)
		if err != nil {
			m.fail(from, "Failed to Loop Track", err)
			return
		}
		t.Loop = c.Loop
		m.box.Broadcast(protocol.TrackMadeLoop{Name: c.Name, Loop: c.Loop})

	// Patterns

	case protocol.PatternAdd:
		if c.Name == "" {
			m.fail(from, "Failed to Add Pattern", emptyName("pattern"))
			return
		}
		p, err := m.project.AddPattern(c.Name)
		if err != nil {
			m.fail(from, "Failed to Add Pattern", err)
			return
		}
		m.box.Broadcast(protocol.PatternAdded{Name: c.Name, Pattern: p.Copy()})

	case protocol.PatternDelete:
		if err := m.project.DeletePattern(c.Name); err != nil {
			m.fail(from, "Failed to Delete Pattern", err)
			return
		}
		m.box.Broadcast(protocol.PatternDeleted{Name: c.Name})
		if m.context != nil && *m.context == c.Name {
			m.context = nil
			m.box.Broadcast(protocol.CtrlContextChanged{})
		}

	case protocol.PatternEdit:
		p, err := m.project.EditPattern(c.Name, c.Pattern)
		if err != nil {
			m.fail(from, "Failed to Edit Pattern", err)
			return
		}
		m.box.Broadcast(protocol.PatternEdited{Name: c.Name, Pattern: p.Copy()})

	// Events

	case protocol.EventAdd:
		if c.Name == "" {
			m.fail(from, "Failed to Add Event", emptyName("event"))
			return
		}
		e, err := m.project.AddEvent(c.Name)
		if err != nil {
			m.fail(from, "Failed to Add Event", err)
			return
		}
		m.box.Broadcast(protocol.EventAdded{Name: c.Name, Event: e.Copy()})

	case protocol.EventDelete:
		if err := m.project.DeleteEvent(c.Name); err != nil {
			m.fail(from, "Failed to Delete Event", err)
			return
		}
		m.box.Broadcast(protocol.EventDeleted{Name: c.Name})

	case protocol.EventEdit:
		e, err := m.project.EditEvent(c.Name, c.Event)
		if err != nil {
			m.fail(from, "Failed to Edit Event", err)
			return
		}
		m.box.Broadcast(protocol.EventEdited{Name: c.Name, Event: e.Copy()})

	case protocol.EventFire:
		e, err := m.project.Event(c.Name)
		if err != nil {
			m.fail(from, "Failed to Fire Event", err)
			return
		}
		m.out.Dispatch(dispatch.Batch{Tick: -1, Messages: []model.OscMessage{e.Message()}})

	// Sliders

	case protocol.SliderAdd:
		if c.Name == "" {
			m.fail(from, "Failed to Add Slider", emptyName("slider"))
			return
		}
		s, err := m.project.AddSlider(c.Name)
		if err != nil {
			m.fail(from, "Failed to Add Slider", err)
			return
		}
		cp := *s
		m.box.Broadcast(protocol.SliderAdded{Name: c.Name, Slider: &cp})

	case protocol.SliderDelete:
		if err := m.project.DeleteSlider(c.Name); err != nil {
			m.fail(from, "Failed to Delete Slider", err)
			return
		}
		m.box.Broadcast(protocol.SliderDeleted{Name: c.Name})

	case protocol.SliderEdit:
		s, err := m.project.EditSlider(c.Name, c.Slider)
		if err != nil {
			m.fail(from, "Failed to Edit Slider", err)
			return
		}
		cp := *s
		m.box.Broadcast(protocol.SliderEdited{Name: c.Name, Slider: &cp})

	case protocol.SliderSetVal:
		s, err := m.project.SetSliderVal(c.Name, c.Val)
		if err != nil {
			m.fail(from, "Failed to Set Slider Value", err)
			return
		}
		m.box.Broadcast(protocol.SliderValSet{Name: c.Name, Val: s.Val})
		m.out.Dispatch(dispatch.Batch{Tick: -1, Messages: []model.OscMessage{s.Message()}})

	// Transport

	case protocol.TickerPlay:
		if m.ticker.Play(m.now()) {
			m.interrupt()
		}
		m.broadcastTransport()

	case protocol.TickerPause:
		if m.ticker.Pause(m.now()) {
			m.interrupt()
		}
		m.broadcastTransport()

	case protocol.TickerStop:
		if m.ticker.Stop() {
			m.interrupt()
		}
		m.broadcastChanges(m.player.Rewind(m.project))
		m.broadcastTransport()

	case protocol.TickerSetBpm:
		if err := m.ticker.SetBPM(c.Bpm, m.now()); err != nil {
			m.fail(from, "Failed to Set BPM", err)
			return
		}
		m.project.BPM = c.Bpm
		m.interrupt()
		m.box.Broadcast(protocol.TickerBpmUpdated{Bpm: c.Bpm})

	// Queries

	case protocol.RequestTickerBpm:
		m.box.Send(from, protocol.ResponseTickerBpm{Bpm: m.ticker.BPM()})

	case protocol.RequestTickerPlaying:
		state := m.ticker.State()
		m.box.Send(from, protocol.ResponseTickerPlaying{Playing: state == Playing, State: state.String()})

	case protocol.RequestTickerTick:
		m.box.Send(from, protocol.ResponseTickerTick{
			Tick: m.ticker.Tick(),
			Max:  m.player.Max(m.project, m.contextPattern()),
		})

	case protocol.RequestProjectName:
		m.box.Send(from, protocol.ResponseProjectName{Name: m.project.Name})

	case protocol.RequestCommAddr:
		m.box.Send(from, protocol.ResponseCommAddr{Addr: m.out.Target()})

	case protocol.RequestCommStatus:
		m.box.Send(from, protocol.ResponseCommStatus{Established: m.out.Established()})

	case protocol.RequestCtrlContext:
		m.box.Send(from, protocol.ResponseCtrlContext{Context: copyString(m.context)})

	case protocol.RequestTrack:
		t, err := m.project.Track(c.Name)
		if err != nil {
			m.fail(from, "Failed to Get Track", err)
			return
		}
		m.box.Send(from, protocol.ResponseTrack{Name: c.Name, Track: t.Copy()})

	case protocol.RequestAllTracks:
		m.box.Send(from, protocol.ResponseAllTracks{Tracks: cloneRegistry(m.project.Tracks, (*model.Track).Copy)})

	case protocol.RequestPattern:
		p, err := m.project.Pattern(c.Name)
		if err != nil {
			m.fail(from, "Failed to Get Pattern", err)
			return
		}
		m.box.Send(from, protocol.ResponsePattern{Name: c.Name, Pattern: p.Copy()})

	case protocol.RequestAllPatterns:
		m.box.Send(from, protocol.ResponseAllPatterns{Patterns: cloneRegistry(m.project.Patterns, (*model.Pattern).Copy)})

	case protocol.RequestAllEvents:
		m.box.Send(from, protocol.ResponseAllEvents{Events: cloneRegistry(m.project.Events, (*model.Event).Copy)})

	case protocol.RequestAllSliders:
		m.box.Send(from, protocol.ResponseAllSliders{Sliders: cloneRegistry(m.project.Sliders, func(s *model.Slider) *model.Slider {
			cp := *s
			return &cp
		})})

	default:
		m.fail(from, "Unknown Command", model.Invalid("unhandled action %q", cmd.Action()))
	}
}

// broadcastTransport re-announces the current run state. Transitions that
// do nothing still announce it so every client converges.
func (m *Manager) broadcastTransport() {
	switch m.ticker.State() {
	case Playing:
		m.box.Broadcast(protocol.TickerPlaying{})
	case Paused:
		m.box.Broadcast(protocol.TickerPaused{})
	default:
		m.box.Broadcast(protocol.TickerStopped{})
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneRegistry snapshots a registry so it can be encoded outside the lock
func cloneRegistry[T any](r *model.Registry[T], clone func(T) T) *model.Registry[T] {
	out := model.NewRegistry[T]()
	r.Each(func(name string, v T) bool {
		out.Put(name, clone(v))
		return true
	})
	return out
}
