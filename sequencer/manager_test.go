package sequencer

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-vibe/dispatch"
	"go-vibe/model"
	"go-vibe/protocol"
)

type fakeOutput struct {
	mu      sync.Mutex
	batches []dispatch.Batch
	target  string
}

func (f *fakeOutput) Dispatch(b dispatch.Batch) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(b.Messages) > 0 || len(b.Notes) > 0 {
		f.batches = append(f.batches, b)
	}
	return true
}

func (f *fakeOutput) SetTarget(addr string) error {
	if err := model.ValidateAddr(addr); err != nil {
		return err
	}
	f.mu.Lock()
	f.target = addr
	f.mu.Unlock()
	return nil
}

func (f *fakeOutput) Target() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target
}

func (f *fakeOutput) Established() bool { return true }

func (f *fakeOutput) sent() []dispatch.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatch.Batch(nil), f.batches...)
}

type delivery struct {
	to  uint64 // 0 for broadcasts
	cmd protocol.ClientCommand
}

type fakeOutbox struct {
	mu  sync.Mutex
	log []delivery
}

func (f *fakeOutbox) Broadcast(cmd protocol.ClientCommand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, delivery{cmd: cmd})
}

func (f *fakeOutbox) Send(to uint64, cmd protocol.ClientCommand) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, delivery{to: to, cmd: cmd})
}

func (f *fakeOutbox) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = nil
}

func (f *fakeOutbox) broadcasts() []protocol.ClientCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.ClientCommand
	for _, d := range f.log {
		if d.to == 0 {
			out = append(out, d.cmd)
		}
	}
	return out
}

func (f *fakeOutbox) sentTo(id uint64) []protocol.ClientCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.ClientCommand
	for _, d := range f.log {
		if d.to == id {
			out = append(out, d.cmd)
		}
	}
	return out
}

func only[T protocol.ClientCommand](cmds []protocol.ClientCommand) []T {
	var out []T
	for _, c := range cmds {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

const client = 7

func newTestManager(t *testing.T) (*Manager, *fakeOutput, *fakeOutbox) {
	t.Helper()
	out := &fakeOutput{target: model.DefaultTargetAddr}
	box := &fakeOutbox{}
	return NewManager(model.NewProject(), out, box), out, box
}

func single(code uint8) *model.Pattern {
	p := model.NewPattern("")
	p.MidiCodes[0][0] = model.Code(code)
	return p
}

func setupTrack(t *testing.T, m *Manager, name string, loop bool, patterns ...string) {
	t.Helper()
	m.Handle(client, protocol.TrackAdd{Name: name})
	m.Handle(client, protocol.TrackEdit{Name: name, Track: &model.Track{Loop: loop, Patterns: patterns}})
}

func setupPattern(t *testing.T, m *Manager, name string, p *model.Pattern) {
	t.Helper()
	m.Handle(client, protocol.PatternAdd{Name: name})
	m.Handle(client, protocol.PatternEdit{Name: name, Pattern: p})
	require.True(t, m.project.Patterns.Has(name))
}

func TestSingleShotTrack(t *testing.T) {
	m, out, box := newTestManager(t)
	setupPattern(t, m, "P1", single(60))
	setupTrack(t, m, "A", false, "P1")
	box.reset()

	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true, Force: true})
	m.Handle(client, protocol.TickerPlay{})

	require.True(t, m.Advance())
	batches := out.sent()
	require.Len(t, batches, 1)
	assert.Equal(t, 0, batches[0].Tick)
	assert.Equal(t, []model.OscMessage{{Path: "/midi", Arg: model.FloatArg(60)}}, batches[0].Messages)
	assert.Equal(t, []uint8{60}, batches[0].Notes)

	for i := 1; i <= 3; i++ {
		require.True(t, m.Advance())
	}
	assert.Len(t, out.sent(), 1, "ticks 1-3 fire nothing")

	made := only[protocol.TrackMadeActive](box.broadcasts())
	require.Len(t, made, 2)
	assert.Equal(t, protocol.TrackMadeActive{Name: "A", Active: true}, made[0])
	assert.Equal(t, protocol.TrackMadeActive{Name: "A", Active: false}, made[1])

	ticks := only[protocol.TickerTick](box.broadcasts())
	require.Len(t, ticks, 4)
	assert.Equal(t, protocol.TickerTick{Tick: 3, Max: 4}, ticks[3])

	a, err := m.project.Track("A")
	require.NoError(t, err)
	assert.False(t, a.Active)
	assert.Nil(t, a.Progress)

	progress := only[protocol.TrackProgressUpdate](box.broadcasts())
	require.NotEmpty(t, progress)
	assert.Nil(t, progress[len(progress)-1].Progress)

	// Nothing left to play.
	m.Advance()
	assert.Len(t, only[protocol.TrackMadeActive](box.broadcasts()), 2)
}

func TestLoopingTrackReturnsToStart(t *testing.T) {
	m, out, _ := newTestManager(t)
	two := model.NewPattern("")
	two.PageCount = 2
	two.MidiCodes = []model.Page[*uint8]{{model.Code(1), nil, nil, nil}, {model.Code(2), nil, nil, nil}}
	setupPattern(t, m, "P1", two)
	setupPattern(t, m, "P2", single(3))
	setupTrack(t, m, "A", true, "P1", "P2")

	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})

	cycle := 2*4 + 4
	for n := 0; n < 3; n++ {
		for i := 0; i < cycle; i++ {
			require.True(t, m.Advance())
		}
		c := m.player.cursors["A"]
		require.NotNil(t, c)
		assert.Equal(t, [3]int{0, 0, 0}, [3]int{c.pattern, c.page, c.slot})
		a, _ := m.project.Track("A")
		assert.True(t, a.Active)
		require.NotNil(t, a.Progress)
		assert.Equal(t, 0.0, *a.Progress)
	}

	var codes []uint8
	for _, b := range out.sent() {
		codes = append(codes, b.Notes...)
	}
	assert.Equal(t, []uint8{1, 2, 3, 1, 2, 3, 1, 2, 3}, codes)
}

func TestProgressAtPageBoundaries(t *testing.T) {
	m, _, box := newTestManager(t)
	two := model.NewPattern("")
	two.PageCount = 2
	two.MidiCodes = make([]model.Page[*uint8], 2)
	setupPattern(t, m, "P1", two)
	setupTrack(t, m, "A", true, "P1")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})
	box.reset()

	for i := 0; i < 8; i++ {
		m.Advance()
	}
	var got []float64
	for _, p := range only[protocol.TrackProgressUpdate](box.broadcasts()) {
		require.NotNil(t, p.Progress)
		got = append(got, *p.Progress)
	}
	assert.Equal(t, []float64{0.5, 0}, got)
}

func TestDispatchOrderAcrossTracks(t *testing.T) {
	m, out, _ := newTestManager(t)
	p := single(60)
	p.Messages = []model.Messages{
		{Payload: model.OscMessage{Path: "/a", Arg: model.FloatArg(1)}, Active: []model.Page[bool]{{true, false, false, false}}},
		{Payload: model.OscMessage{Path: "/b", Arg: model.StringArg("x")}, Active: []model.Page[bool]{{true, true, false, false}}},
	}
	setupPattern(t, m, "P1", p)
	setupPattern(t, m, "P2", single(30))
	setupTrack(t, m, "second", true, "P2")
	setupTrack(t, m, "first", true, "P1")
	m.Handle(client, protocol.TrackMakeActive{Name: "first", Active: true})
	m.Handle(client, protocol.TrackMakeActive{Name: "second", Active: true})
	m.Handle(client, protocol.TickerPlay{})

	m.Advance()
	batches := out.sent()
	require.Len(t, batches, 1)
	var paths []string
	for _, msg := range batches[0].Messages {
		paths = append(paths, msg.Path)
	}
	// Track insertion order, then MIDI code before gated messages.
	assert.Equal(t, []string{"/midi", "/midi", "/a", "/b"}, paths)
	assert.Equal(t, model.FloatArg(30), batches[0].Messages[0].Arg)
	assert.Equal(t, []uint8{30, 60}, batches[0].Notes)
}

func TestDeactivateMidPageSkipsRest(t *testing.T) {
	m, out, _ := newTestManager(t)
	p := model.NewPattern("")
	p.MidiCodes[0] = model.Page[*uint8]{model.Code(1), model.Code(2), model.Code(3), model.Code(4)}
	setupPattern(t, m, "P1", p)
	setupTrack(t, m, "A", true, "P1")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})

	m.Advance()
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: false})
	m.Advance()
	m.Advance()
	assert.Len(t, out.sent(), 1)
}

func TestMakeActiveForce(t *testing.T) {
	m, out, box := newTestManager(t)
	p := model.NewPattern("")
	p.MidiCodes[0] = model.Page[*uint8]{model.Code(1), model.Code(2), model.Code(3), model.Code(4)}
	setupPattern(t, m, "P1", p)
	setupTrack(t, m, "A", true, "P1")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	m.Advance()
	box.reset()

	// Without force an active track is left alone.
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	assert.Empty(t, box.broadcasts())
	m.Advance()
	box.reset()

	// With force it restarts from the first slot.
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true, Force: true})
	assert.Equal(t, []protocol.ClientCommand{
		protocol.TrackMadeActive{Name: "A", Active: true},
		protocol.TrackProgressUpdate{Name: "A", Progress: new(float64)},
	}, box.broadcasts())
	m.Advance()

	var codes []uint8
	for _, b := range out.sent() {
		codes = append(codes, b.Notes...)
	}
	assert.Equal(t, []uint8{1, 2, 3, 1}, codes)

	// Deactivating an inactive track is a no-op.
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: false})
	box.reset()
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: false})
	assert.Empty(t, box.broadcasts())
}

func TestPauseIsIdempotent(t *testing.T) {
	m, _, box := newTestManager(t)
	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	m.Advance()
	box.reset()

	m.Handle(client, protocol.TickerPause{})
	m.Handle(client, protocol.TickerPause{})
	assert.Equal(t, []protocol.ClientCommand{protocol.TickerPaused{}, protocol.TickerPaused{}}, box.broadcasts())
	assert.Equal(t, 2, m.ticker.Tick())
	assert.False(t, m.Advance())

	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	ticks := only[protocol.TickerTick](box.broadcasts())
	require.Len(t, ticks, 1)
	assert.Equal(t, 2, ticks[0].Tick)
}

func TestPauseWhileStoppedRebroadcastsStopped(t *testing.T) {
	m, _, box := newTestManager(t)
	m.Handle(client, protocol.TickerPause{})
	assert.Equal(t, []protocol.ClientCommand{protocol.TickerStopped{}}, box.broadcasts())
	assert.Equal(t, Stopped, m.ticker.State())
}

func TestStopRewindsTracks(t *testing.T) {
	m, out, box := newTestManager(t)
	p := model.NewPattern("")
	p.MidiCodes[0] = model.Page[*uint8]{model.Code(1), model.Code(2), model.Code(3), model.Code(4)}
	setupPattern(t, m, "P1", p)
	setupTrack(t, m, "A", true, "P1")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	m.Advance()
	box.reset()

	m.Handle(client, protocol.TickerStop{})
	assert.Equal(t, []protocol.ClientCommand{
		protocol.TrackProgressUpdate{Name: "A", Progress: new(float64)},
		protocol.TickerStopped{},
	}, box.broadcasts())
	assert.Equal(t, 0, m.ticker.Tick())

	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	var codes []uint8
	for _, b := range out.sent() {
		codes = append(codes, b.Notes...)
	}
	assert.Equal(t, []uint8{1, 2, 1}, codes)
}

func TestSetBpmKeepsTick(t *testing.T) {
	m, _, box := newTestManager(t)
	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	m.Advance()
	m.Advance()
	box.reset()

	m.Handle(client, protocol.TickerSetBpm{Bpm: 90})
	assert.Equal(t, []protocol.ClientCommand{protocol.TickerBpmUpdated{Bpm: 90}}, box.broadcasts())
	assert.Equal(t, 3, m.ticker.Tick())
	assert.Equal(t, Playing, m.ticker.State())
	assert.Equal(t, 90.0, m.project.BPM)

	m.Handle(client, protocol.TickerSetBpm{Bpm: 0})
	notes := only[protocol.Notify](box.sentTo(client))
	require.Len(t, notes, 1)
	assert.Equal(t, protocol.Error, notes[0].Severity)
	assert.Equal(t, 90.0, m.ticker.BPM())
}

func TestSliderSetValClamps(t *testing.T) {
	m, out, box := newTestManager(t)
	m.Handle(client, protocol.SliderAdd{Name: "vol"})
	box.reset()

	m.Handle(client, protocol.SliderSetVal{Name: "vol", Val: 150})
	assert.Equal(t, []protocol.ClientCommand{protocol.SliderValSet{Name: "vol", Val: 100}}, box.broadcasts())
	s, err := m.project.Slider("vol")
	require.NoError(t, err)
	assert.Equal(t, float32(100), s.Val)

	batches := out.sent()
	require.Len(t, batches, 1)
	assert.Equal(t, []model.OscMessage{{Path: "/vol", Arg: model.FloatArg(100)}}, batches[0].Messages)
}

func TestFailuresGoOnlyToRequester(t *testing.T) {
	m, _, box := newTestManager(t)
	m.Handle(client, protocol.TrackDelete{Name: "A"})
	assert.Empty(t, box.broadcasts())
	notes := only[protocol.Notify](box.sentTo(client))
	require.Len(t, notes, 1)
	assert.Equal(t, protocol.Notify{
		Severity: protocol.Error,
		Summary:  "Failed to Delete Track",
		Detail:   `Track with name "A" does not exist`,
	}, notes[0])

	box.reset()
	m.Handle(client, protocol.TrackAdd{Name: "A"})
	m.Handle(client, protocol.TrackAdd{Name: "A"})
	assert.Len(t, only[protocol.TrackAdded](box.broadcasts()), 1)
	notes = only[protocol.Notify](box.sentTo(client))
	require.Len(t, notes, 1)
	assert.Equal(t, `Track with name "A" already exists`, notes[0].Detail)
}

func TestTrackEditRoundTrip(t *testing.T) {
	m, _, box := newTestManager(t)
	m.Handle(client, protocol.TrackAdd{Name: "A"})
	submitted := &model.Track{Name: "A", Loop: true, Patterns: []string{"P1", "P2", "P1"}}
	m.Handle(client, protocol.TrackEdit{Name: "A", Track: submitted})
	box.reset()

	m.Handle(client, protocol.RequestAllTracks{})
	assert.Empty(t, box.broadcasts())
	resp := only[protocol.ResponseAllTracks](box.sentTo(client))
	require.Len(t, resp, 1)
	got, ok := resp[0].Tracks.Get("A")
	require.True(t, ok)
	assert.Equal(t, submitted, got)

	// The response is a snapshot.
	got.Patterns[0] = "changed"
	stored, _ := m.project.Track("A")
	assert.Equal(t, "P1", stored.Patterns[0])
}

func TestDanglingPatternIsSkipped(t *testing.T) {
	m, out, box := newTestManager(t)
	setupPattern(t, m, "P1", single(5))
	setupTrack(t, m, "A", true, "ghost", "P1")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})
	box.reset()

	for i := 0; i < 8; i++ {
		m.Advance()
	}
	warns := only[protocol.Notify](box.broadcasts())
	require.Len(t, warns, 1)
	assert.Equal(t, protocol.Warn, warns[0].Severity)

	var codes []uint8
	for _, b := range out.sent() {
		codes = append(codes, b.Notes...)
	}
	assert.Equal(t, []uint8{5, 5}, codes)

	// With nothing playable even a looping track stops.
	m.Handle(client, protocol.PatternDelete{Name: "P1"})
	m.Advance()
	a, _ := m.project.Track("A")
	assert.False(t, a.Active)
}

func TestContextPreview(t *testing.T) {
	m, out, box := newTestManager(t)
	p := model.NewPattern("")
	p.MidiCodes[0] = model.Page[*uint8]{model.Code(9), nil, model.Code(10), nil}
	setupPattern(t, m, "P1", p)
	setupPattern(t, m, "P2", single(1))
	setupTrack(t, m, "A", true, "P2")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})

	ctx := "P1"
	m.Handle(client, protocol.CtrlChangeContext{Context: &ctx})
	m.Handle(client, protocol.TickerPlay{})
	for i := 0; i < 6; i++ {
		m.Advance()
	}
	var codes []uint8
	for _, b := range out.sent() {
		codes = append(codes, b.Notes...)
	}
	assert.Equal(t, []uint8{9, 10, 9}, codes)

	c := m.player.cursors["A"]
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{c.pattern, c.page, c.slot}, "tracks are frozen")

	missing := "nope"
	m.Handle(client, protocol.CtrlChangeContext{Context: &missing})
	assert.Len(t, only[protocol.Notify](box.sentTo(client)), 1)

	box.reset()
	m.Handle(client, protocol.PatternDelete{Name: "P1"})
	assert.Equal(t, []protocol.ClientCommand{
		protocol.PatternDeleted{Name: "P1"},
		protocol.CtrlContextChanged{},
	}, box.broadcasts())
	assert.Nil(t, m.context)
}

func TestEventFireAndQueries(t *testing.T) {
	m, out, box := newTestManager(t)
	m.Handle(client, protocol.EventAdd{Name: "hit"})
	m.Handle(client, protocol.EventFire{Name: "hit"})
	batches := out.sent()
	require.Len(t, batches, 1)
	assert.Equal(t, []model.OscMessage{{Path: "/hit", Arg: model.FloatArg(1)}}, batches[0].Messages)

	m.Handle(client, protocol.EventFire{Name: "miss"})
	assert.Len(t, only[protocol.Notify](box.sentTo(client)), 1)

	box.reset()
	m.Handle(client, protocol.SetProjectName{Name: "gig"})
	m.Handle(client, protocol.RequestProjectName{})
	m.Handle(client, protocol.RequestTickerPlaying{})
	m.Handle(client, protocol.RequestTickerBpm{})
	m.Handle(client, protocol.CommChangeAddr{Addr: "10.0.0.2:9000"})
	m.Handle(client, protocol.RequestCommAddr{})
	m.Handle(client, protocol.CommChangeAddr{Addr: "bogus"})

	assert.Equal(t, []protocol.ClientCommand{
		protocol.ProjectNameUpdated{Name: "gig"},
		protocol.CommAddrChanged{Addr: "10.0.0.2:9000"},
	}, box.broadcasts())
	replies := box.sentTo(client)
	require.Len(t, replies, 5)
	assert.Equal(t, protocol.ResponseProjectName{Name: "gig"}, replies[0])
	assert.Equal(t, protocol.ResponseTickerPlaying{Playing: false, State: "stopped"}, replies[1])
	assert.Equal(t, protocol.ResponseTickerBpm{Bpm: 120}, replies[2])
	assert.Equal(t, protocol.ResponseCommAddr{Addr: "10.0.0.2:9000"}, replies[3])
	assert.IsType(t, protocol.Notify{}, replies[4])
	assert.Equal(t, "10.0.0.2:9000", m.project.TargetAddr)
}

func TestRunFiresOnSchedule(t *testing.T) {
	m, _, box := newTestManager(t)
	m.Handle(client, protocol.TickerSetBpm{Bpm: 6000})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	m.Handle(client, protocol.TickerPlay{})
	require.Eventually(t, func() bool {
		return len(only[protocol.TickerTick](box.broadcasts())) >= 5
	}, 2*time.Second, time.Millisecond)

	m.Handle(client, protocol.TickerStop{})
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	ticks := only[protocol.TickerTick](box.broadcasts())
	for i := range ticks {
		assert.Equal(t, i, ticks[i].Tick)
	}
	assert.Equal(t, "stopped", m.Status().State)
}

func TestMissingNamesNotifyRequester(t *testing.T) {
	tests := []struct {
		cmd     protocol.ServerCommand
		summary string
		detail  string
	}{
		{protocol.SliderEdit{Name: "vol", Slider: model.NewSlider("vol")}, "Failed to Edit Slider", `Slider with name "vol" does not exist`},
		{protocol.SliderDelete{Name: "vol"}, "Failed to Delete Slider", `Slider with name "vol" does not exist`},
		{protocol.SliderSetVal{Name: "vol", Val: 1}, "Failed to Set Slider Value", `Slider with name "vol" does not exist`},
		{protocol.EventEdit{Name: "hit", Event: model.NewEvent("hit")}, "Failed to Edit Event", `Event with name "hit" does not exist`},
		{protocol.EventDelete{Name: "hit"}, "Failed to Delete Event", `Event with name "hit" does not exist`},
		{protocol.RequestTrack{Name: "A"}, "Failed to Get Track", `Track with name "A" does not exist`},
		{protocol.RequestPattern{Name: "P1"}, "Failed to Get Pattern", `Pattern with name "P1" does not exist`},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Action(), func(t *testing.T) {
			m, out, box := newTestManager(t)
			m.Handle(client, tt.cmd)
			m.Handle(client+1, tt.cmd)

			assert.Empty(t, box.broadcasts())
			assert.Empty(t, out.sent())
			assert.Equal(t, []protocol.ClientCommand{protocol.Notify{
				Severity: protocol.Error,
				Summary:  tt.summary,
				Detail:   tt.detail,
			}}, box.sentTo(client))
			assert.Len(t, box.sentTo(client+1), 1)
		})
	}
}

func TestSliderCommands(t *testing.T) {
	m, out, box := newTestManager(t)
	m.Handle(client, protocol.SliderAdd{Name: "vol"})
	box.reset()

	tests := []struct {
		name string
		cmd  protocol.ServerCommand
		want protocol.ClientCommand
	}{
		{
			name: "edit keeps value inside new bounds",
			cmd:  protocol.SliderEdit{Name: "vol", Slider: &model.Slider{Path: "/amp", Val: 50, Min: 0, Max: 10}},
			want: protocol.SliderEdited{Name: "vol", Slider: &model.Slider{Name: "vol", Path: "/amp", Val: 10, Min: 0, Max: 10}},
		},
		{
			name: "edit below bounds",
			cmd:  protocol.SliderEdit{Name: "vol", Slider: &model.Slider{Path: "/amp", Val: -3, Min: 0, Max: 100}},
			want: protocol.SliderEdited{Name: "vol", Slider: &model.Slider{Name: "vol", Path: "/amp", Val: 0, Min: 0, Max: 100}},
		},
		{
			name: "huge value lands on max",
			cmd:  protocol.SliderSetVal{Name: "vol", Val: 1e39},
			want: protocol.SliderValSet{Name: "vol", Val: 100},
		},
		{
			name: "huge negative value lands on min",
			cmd:  protocol.SliderSetVal{Name: "vol", Val: -1e39},
			want: protocol.SliderValSet{Name: "vol", Val: 0},
		},
		{
			name: "value in range",
			cmd:  protocol.SliderSetVal{Name: "vol", Val: 42.5},
			want: protocol.SliderValSet{Name: "vol", Val: 42.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box.reset()
			m.Handle(client, tt.cmd)
			assert.Equal(t, []protocol.ClientCommand{tt.want}, box.broadcasts())
			assert.Empty(t, box.sentTo(client))
		})
	}

	s, ok := m.project.Sliders.Get("vol")
	require.True(t, ok)
	assert.Equal(t, float32(42.5), s.Val)

	// Each value change is also sent out over OSC.
	var vals []model.OscMessage
	for _, b := range out.sent() {
		vals = append(vals, b.Messages...)
	}
	assert.Equal(t, []model.OscMessage{
		{Path: "/amp", Arg: model.FloatArg(100)},
		{Path: "/amp", Arg: model.FloatArg(0)},
		{Path: "/amp", Arg: model.FloatArg(42.5)},
	}, vals)

	box.reset()
	m.Handle(client, protocol.SliderSetVal{Name: "vol", Val: math.NaN()})
	m.Handle(client, protocol.SliderEdit{Name: "vol", Slider: &model.Slider{Path: "/amp", Min: 5, Max: 1}})
	assert.Empty(t, box.broadcasts())
	assert.Len(t, only[protocol.Notify](box.sentTo(client)), 2)
	assert.Equal(t, float32(42.5), s.Val)

	m.Handle(client, protocol.SliderDelete{Name: "vol"})
	assert.Equal(t, []protocol.ClientCommand{protocol.SliderDeleted{Name: "vol"}}, box.broadcasts())
	assert.False(t, m.project.Sliders.Has("vol"))
}

func TestEventEditAndDelete(t *testing.T) {
	m, out, box := newTestManager(t)
	m.Handle(client, protocol.EventAdd{Name: "hit"})
	box.reset()

	key := "k"
	m.Handle(client, protocol.EventEdit{Name: "hit", Event: &model.Event{Name: "other", Path: "/kick", Shortcut: &key, Arg: model.FloatArg(2)}})
	want := &model.Event{Name: "hit", Path: "/kick", Shortcut: &key, Arg: model.FloatArg(2)}
	assert.Equal(t, []protocol.ClientCommand{protocol.EventEdited{Name: "hit", Event: want}}, box.broadcasts())

	m.Handle(client, protocol.EventFire{Name: "hit"})
	batches := out.sent()
	require.Len(t, batches, 1)
	assert.Equal(t, []model.OscMessage{{Path: "/kick", Arg: model.FloatArg(2)}}, batches[0].Messages)

	box.reset()
	m.Handle(client, protocol.EventEdit{Name: "hit", Event: &model.Event{Path: ""}})
	m.Handle(client, protocol.EventEdit{Name: "hit"})
	assert.Empty(t, box.broadcasts())
	assert.Len(t, only[protocol.Notify](box.sentTo(client)), 2)
	e, _ := m.project.Event("hit")
	assert.Equal(t, "/kick", e.Path)

	box.reset()
	m.Handle(client, protocol.EventDelete{Name: "hit"})
	assert.Equal(t, []protocol.ClientCommand{protocol.EventDeleted{Name: "hit"}}, box.broadcasts())
	assert.False(t, m.project.Events.Has("hit"))
}

func TestSingleEntityQueries(t *testing.T) {
	m, _, box := newTestManager(t)
	setupPattern(t, m, "P1", single(60))
	setupTrack(t, m, "A", true, "P1", "P1")
	box.reset()

	m.Handle(client, protocol.RequestTrack{Name: "A"})
	m.Handle(client, protocol.RequestPattern{Name: "P1"})
	assert.Empty(t, box.broadcasts())

	replies := box.sentTo(client)
	require.Len(t, replies, 2)
	assert.Equal(t, protocol.ResponseTrack{
		Name:  "A",
		Track: &model.Track{Name: "A", Loop: true, Patterns: []string{"P1", "P1"}},
	}, replies[0])

	want := single(60)
	want.Name = "P1"
	assert.Equal(t, protocol.ResponsePattern{Name: "P1", Pattern: want}, replies[1])

	// Replies are snapshots.
	replies[1].(protocol.ResponsePattern).Pattern.MidiCodes[0][0] = nil
	stored, _ := m.project.Pattern("P1")
	assert.Equal(t, uint8(60), *stored.MidiCodes[0][0])
}

func TestStatusQueries(t *testing.T) {
	m, _, box := newTestManager(t)
	setupPattern(t, m, "P1", single(60))
	setupTrack(t, m, "A", true, "P1", "P1")
	box.reset()

	m.Handle(client, protocol.RequestTickerTick{})
	m.Handle(client, protocol.RequestCommStatus{})
	m.Handle(client, protocol.RequestCtrlContext{})
	assert.Equal(t, []protocol.ClientCommand{
		protocol.ResponseTickerTick{Tick: m.ticker.Tick(), Max: 0},
		protocol.ResponseCommStatus{Established: true},
		protocol.ResponseCtrlContext{},
	}, box.sentTo(client))

	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TickerPlay{})
	m.Advance()
	m.Advance()
	ctx := "P1"
	m.Handle(client, protocol.CtrlChangeContext{Context: &ctx})
	box.reset()

	m.Handle(client, protocol.RequestCtrlContext{})
	m.Handle(client, protocol.RequestTickerTick{})
	m.Handle(client, protocol.CtrlChangeContext{})
	m.Handle(client, protocol.RequestTickerTick{})
	replies := box.sentTo(client)
	require.Len(t, replies, 3)
	assert.Equal(t, protocol.ResponseCtrlContext{Context: &ctx}, replies[0])
	assert.Equal(t, protocol.ResponseTickerTick{Tick: m.ticker.Tick(), Max: 4}, replies[1], "context pattern length")
	assert.Equal(t, protocol.ResponseTickerTick{Tick: m.ticker.Tick(), Max: 8}, replies[2], "longest active track")
}

func TestPatternEditKeepsShape(t *testing.T) {
	m, _, box := newTestManager(t)
	setupPattern(t, m, "P1", single(5))
	box.reset()

	bad := single(9)
	bad.PageCount = 2
	m.Handle(client, protocol.PatternEdit{Name: "P1", Pattern: bad})

	assert.Empty(t, box.broadcasts())
	notes := only[protocol.Notify](box.sentTo(client))
	require.Len(t, notes, 1)
	assert.Equal(t, protocol.Error, notes[0].Severity)
	assert.Equal(t, "Failed to Edit Pattern", notes[0].Summary)
	assert.Contains(t, notes[0].Detail, "page_count 2")

	stored, _ := m.project.Pattern("P1")
	assert.Equal(t, 1, stored.PageCount)
	assert.Equal(t, uint8(5), *stored.MidiCodes[0][0])
}

func TestDeletePlayingTrack(t *testing.T) {
	m, out, box := newTestManager(t)
	setupPattern(t, m, "P1", single(1))
	setupPattern(t, m, "P2", single(2))
	setupTrack(t, m, "A", true, "P1")
	setupTrack(t, m, "B", true, "P2")
	m.Handle(client, protocol.TrackMakeActive{Name: "A", Active: true})
	m.Handle(client, protocol.TrackMakeActive{Name: "B", Active: true})
	m.Handle(client, protocol.TickerPlay{})

	require.True(t, m.Advance())
	require.Len(t, out.sent(), 1)
	assert.ElementsMatch(t, []uint8{1, 2}, out.sent()[0].Notes)

	box.reset()
	m.Handle(client, protocol.TrackDelete{Name: "A"})
	assert.Equal(t, []protocol.ClientCommand{protocol.TrackDeleted{Name: "A"}}, box.broadcasts())
	assert.NotContains(t, m.player.cursors, "A")

	for i := 0; i < 8; i++ {
		require.True(t, m.Advance())
	}
	var codes []uint8
	for _, b := range out.sent()[1:] {
		codes = append(codes, b.Notes...)
	}
	assert.Equal(t, []uint8{2, 2}, codes)
	for _, p := range only[protocol.TrackProgressUpdate](box.broadcasts()) {
		assert.Equal(t, "B", p.Name)
	}
}
