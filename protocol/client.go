package protocol

import "go-vibe/model"

// Severity ranks a Notify for display.
type Severity string

const (
	Success   Severity = "success"
	Info      Severity = "info"
	Warn      Severity = "warn"
	Error     Severity = "error"
	Secondary Severity = "secondary"
	Contrast  Severity = "contrast"
)

type (
	ProjectNameUpdated struct {
		Name string `json:"name"`
	}
	CommAddrChanged struct {
		Addr string `json:"addr"`
	}
	CommStatusChanged struct {
		Established bool `json:"established"`
	}
	CtrlContextChanged struct {
		Context *string `json:"context"`
	}

	TrackAdded struct {
		Name  string       `json:"name"`
		Track *model.Track `json:"track"`
	}
	TrackDeleted struct {
		Name string `json:"name"`
	}
	TrackEdited struct {
		Name  string       `json:"name"`
		Track *model.Track `json:"track"`
	}
	TrackMadeActive struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	TrackMadeLoop struct {
		Name string `json:"name"`
		Loop bool   `json:"loop"`
	}
	TrackProgressUpdate struct {
		Name     string   `json:"name"`
		Progress *float64 `json:"progress"`
	}

	PatternAdded struct {
		Name    string         `json:"name"`
		Pattern *model.Pattern `json:"pattern"`
	}
	PatternDeleted struct {
		Name string `json:"name"`
	}
	PatternEdited struct {
		Name    string         `json:"name"`
		Pattern *model.Pattern `json:"pattern"`
	}

	EventAdded struct {
		Name  string       `json:"name"`
		Event *model.Event `json:"event"`
	}
	EventDeleted struct {
		Name string `json:"name"`
	}
	EventEdited struct {
		Name  string       `json:"name"`
		Event *model.Event `json:"event"`
	}

	SliderAdded struct {
		Name   string        `json:"name"`
		Slider *model.Slider `json:"slider"`
	}
	SliderDeleted struct {
		Name string `json:"name"`
	}
	SliderEdited struct {
		Name   string        `json:"name"`
		Slider *model.Slider `json:"slider"`
	}
	SliderValSet struct {
		Name string  `json:"name"`
		Val  float32 `json:"val"`
	}

	TickerPlaying struct{}
	TickerPaused  struct{}
	TickerStopped struct{}
	TickerTick    struct {
		Tick int `json:"tick"`
		Max  int `json:"max"`
	}
	TickerBpmUpdated struct {
		Bpm float64 `json:"bpm"`
	}

	ResponseTickerBpm struct {
		Bpm float64 `json:"bpm"`
	}
	ResponseTickerPlaying struct {
		Playing bool   `json:"playing"`
		State   string `json:"state"`
	}
	ResponseTickerTick struct {
		Tick int `json:"tick"`
		Max  int `json:"max"`
	}
	ResponseProjectName struct {
		Name string `json:"name"`
	}
	ResponseCommAddr struct {
		Addr string `json:"addr"`
	}
	ResponseCommStatus struct {
		Established bool `json:"established"`
	}
	ResponseCtrlContext struct {
		Context *string `json:"context"`
	}
	ResponseTrack struct {
		Name  string       `json:"name"`
		Track *model.Track `json:"track"`
	}
	ResponseAllTracks struct {
		Tracks *model.Registry[*model.Track] `json:"tracks"`
	}
	ResponsePattern struct {
		Name    string         `json:"name"`
		Pattern *model.Pattern `json:"pattern"`
	}
	ResponseAllPatterns struct {
		Patterns *model.Registry[*model.Pattern] `json:"patterns"`
	}
	ResponseAllEvents struct {
		Events *model.Registry[*model.Event] `json:"events"`
	}
	ResponseAllSliders struct {
		Sliders *model.Registry[*model.Slider] `json:"sliders"`
	}

	Notify struct {
		Severity Severity `json:"severity"`
		Summary  string   `json:"summary"`
		Detail   string   `json:"detail"`
	}
)

func (ProjectNameUpdated) Action() string  { return "ProjectNameUpdated" }
func (CommAddrChanged) Action() string     { return "CommAddrChanged" }
func (CommStatusChanged) Action() string   { return "CommStatusChanged" }
func (CtrlContextChanged) Action() string  { return "CtrlContextChanged" }
func (TrackAdded) Action() string          { return "TrackAdded" }
func (TrackDeleted) Action() string        { return "TrackDeleted" }
func (TrackEdited) Action() string         { return "TrackEdited" }
func (TrackMadeActive) Action() string     { return "TrackMadeActive" }
func (TrackMadeLoop) Action() string       { return "TrackMadeLoop" }
func (TrackProgressUpdate) Action() string { return "TrackProgressUpdate" }
func (PatternAdded) Action() string        { return "PatternAdded" }
func (PatternDeleted) Action() string      { return "PatternDeleted" }
func (PatternEdited) Action() string       { return "PatternEdited" }
func (EventAdded) Action() string          { return "EventAdded" }
func (EventDeleted) Action() string        { return "EventDeleted" }
func (EventEdited) Action() string         { return "EventEdited" }
func (SliderAdded) Action() string         { return "SliderAdded" }
func (SliderDeleted) Action() string       { return "SliderDeleted" }
func (SliderEdited) Action() string        { return "SliderEdited" }
func (SliderValSet) Action() string        { return "SliderValSet" }
func (TickerPlaying) Action() string       { return "TickerPlaying" }
func (TickerPaused) Action() string        { return "TickerPaused" }
func (TickerStopped) Action() string       { return "TickerStopped" }
func (TickerTick) Action() string          { return "TickerTick" }
func (TickerBpmUpdated) Action() string    { return "TickerBpmUpdated" }

func (ResponseTickerBpm) Action() string     { return "ResponseTickerBpm" }
func (ResponseTickerPlaying) Action() string { return "ResponseTickerPlaying" }
func (ResponseTickerTick) Action() string    { return "ResponseTickerTick" }
func (ResponseProjectName) Action() string   { return "ResponseProjectName" }
func (ResponseCommAddr) Action() string      { return "ResponseCommAddr" }
func (ResponseCommStatus) Action() string    { return "ResponseCommStatus" }
func (ResponseCtrlContext) Action() string   { return "ResponseCtrlContext" }
func (ResponseTrack) Action() string         { return "ResponseTrack" }
func (ResponseAllTracks) Action() string     { return "ResponseAllTracks" }
func (ResponsePattern) Action() string       { return "ResponsePattern" }
func (ResponseAllPatterns) Action() string   { return "ResponseAllPatterns" }
func (ResponseAllEvents) Action() string     { return "ResponseAllEvents" }
func (ResponseAllSliders) Action() string    { return "ResponseAllSliders" }
func (Notify) Action() string                { return "Notify" }

func (ProjectNameUpdated) clientCommand()    {}
func (CommAddrChanged) clientCommand()       {}
func (CommStatusChanged) clientCommand()     {}
func (CtrlContextChanged) clientCommand()    {}
func (TrackAdded) clientCommand()            {}
func (TrackDeleted) clientCommand()          {}
func (TrackEdited) clientCommand()           {}
func (TrackMadeActive) clientCommand()       {}
func (TrackMadeLoop) clientCommand()         {}
func (TrackProgressUpdate) clientCommand()   {}
func (PatternAdded) clientCommand()          {}
func (PatternDeleted) clientCommand()        {}
func (PatternEdited) clientCommand()         {}
func (EventAdded) clientCommand()            {}
func (EventDeleted) clientCommand()          {}
func (EventEdited) clientCommand()           {}
func (SliderAdded) clientCommand()           {}
func (SliderDeleted) clientCommand()         {}
func (SliderEdited) clientCommand()          {}
func (SliderValSet) clientCommand()          {}
func (TickerPlaying) clientCommand()         {}
func (TickerPaused) clientCommand()          {}
func (TickerStopped) clientCommand()         {}
func (TickerTick) clientCommand()            {}
func (TickerBpmUpdated) clientCommand()      {}
func (ResponseTickerBpm) clientCommand()     {}
func (ResponseTickerPlaying) clientCommand() {}
func (ResponseTickerTick) clientCommand()    {}
func (ResponseProjectName) clientCommand()   {}
func (ResponseCommAddr) clientCommand()      {}
func (ResponseCommStatus) clientCommand()    {}
func (ResponseCtrlContext) clientCommand()   {}
func (ResponseTrack) clientCommand()         {}
func (ResponseAllTracks) clientCommand()     {}
func (ResponsePattern) clientCommand()       {}
func (ResponseAllPatterns) clientCommand()   {}
func (ResponseAllEvents) clientCommand()     {}
func (ResponseAllSliders) clientCommand()    {}
func (Notify) clientCommand()                {}

// IsResponse reports whether a command answers a single requester rather
// than being broadcast.
func IsResponse(cmd ClientCommand) bool {
	switch cmd.(type) {
	case ResponseTickerBpm, ResponseTickerPlaying, ResponseTickerTick,
		ResponseProjectName, ResponseCommAddr, ResponseCommStatus,
		ResponseCtrlContext, ResponseTrack, ResponseAllTracks,
		ResponsePattern, ResponseAllPatterns, ResponseAllEvents,
		ResponseAllSliders:
		return true
	}
	return false
}

func init() {
	registerClient[ProjectNameUpdated]()
	registerClient[CommAddrChanged]()
	registerClient[CommStatusChanged]()
	registerClient[CtrlContextChanged]()
	registerClient[TrackAdded]()
	registerClient[TrackDeleted]()
	registerClient[TrackEdited]()
	registerClient[TrackMadeActive]()
	registerClient[TrackMadeLoop]()
	registerClient[TrackProgressUpdate]()
	registerClient[PatternAdded]()
	registerClient[PatternDeleted]()
	registerClient[PatternEdited]()
	registerClient[EventAdded]()
	registerClient[EventDeleted]()
	registerClient[EventEdited]()
	registerClient[SliderAdded]()
	registerClient[SliderDeleted]()
	registerClient[SliderEdited]()
	registerClient[SliderValSet]()
	registerClient[TickerPlaying]()
	registerClient[TickerPaused]()
	registerClient[TickerStopped]()
	registerClient[TickerTick]()
	registerClient[TickerBpmUpdated]()
	registerClient[ResponseTickerBpm]()
	registerClient[ResponseTickerPlaying]()
	registerClient[ResponseTickerTick]()
	registerClient[ResponseProjectName]()
	registerClient[ResponseCommAddr]()
	registerClient[ResponseCommStatus]()
	registerClient[ResponseCtrlContext]()
	registerClient[ResponseTrack]()
	registerClient[ResponseAllTracks]()
	registerClient[ResponsePattern]()
	registerClient[ResponseAllPatterns]()
	registerClient[ResponseAllEvents]()
	registerClient[ResponseAllSliders]()
	registerClient[Notify]()
}
