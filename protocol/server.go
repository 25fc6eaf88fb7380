package protocol

import "go-vibe/model"

type (
	SetProjectName struct {
		Name string `json:"name"`
	}
	CommChangeAddr struct {
		Addr string `json:"addr"`
	}
	CtrlChangeContext struct {
		Context *string `json:"context"`
	}

	TrackAdd struct {
		Name string `json:"name"`
	}
	TrackDelete struct {
		Name string `json:"name"`
	}
	TrackEdit struct {
		Name  string       `json:"name"`
		Track *model.Track `json:"track"`
	}
	TrackMakeActive struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
		Force  bool   `json:"force"`
	}
	TrackMakeLoop struct {
		Name string `json:"name"`
		Loop bool   `json:"loop"`
	}

	PatternAdd struct {
		Name string `json:"name"`
	}
	PatternDelete struct {
		Name string `json:"name"`
	}
	PatternEdit struct {
		Name    string         `json:"name"`
		Pattern *model.Pattern `json:"pattern"`
	}

	EventAdd struct {
		Name string `json:"name"`
	}
	EventDelete struct {
		Name string `json:"name"`
	}
	EventEdit struct {
		Name  string       `json:"name"`
		Event *model.Event `json:"event"`
	}
	EventFire struct {
		Name string `json:"name"`
	}

	SliderAdd struct {
		Name string `json:"name"`
	}
	SliderDelete struct {
		Name string `json:"name"`
	}
	SliderEdit struct {
		Name   string        `json:"name"`
		Slider *model.Slider `json:"slider"`
	}
	SliderSetVal struct {
		Name string  `json:"name"`
		Val  float64 `json:"val"`
	}

	TickerPlay   struct{}
	TickerPause  struct{}
	TickerStop   struct{}
	TickerSetBpm struct {
		Bpm float64 `json:"bpm"`
	}

	RequestTickerBpm     struct{}
	RequestTickerPlaying struct{}
	RequestTickerTick    struct{}
	RequestProjectName   struct{}
	RequestCommAddr      struct{}
	RequestCommStatus    struct{}
	RequestCtrlContext   struct{}
	RequestTrack         struct {
		Name string `json:"name"`
	}
	RequestAllTracks struct{}
	RequestPattern   struct {
		Name string `json:"name"`
	}
	RequestAllPatterns struct{}
	RequestAllEvents   struct{}
	RequestAllSliders  struct{}
)

func (SetProjectName) Action() string    { return "SetProjectName" }
func (CommChangeAddr) Action() string    { return "CommChangeAddr" }
func (CtrlChangeContext) Action() string { return "CtrlChangeContext" }

func (TrackAdd) Action() string        { return "TrackAdd" }
func (TrackDelete) Action() string     { return "TrackDelete" }
func (TrackEdit) Action() string       { return "TrackEdit" }
func (TrackMakeActive) Action() string { return "TrackMakeActive" }
func (TrackMakeLoop) Action() string   { return "TrackMakeLoop" }

func (PatternAdd) Action() string    { return "PatternAdd" }
func (PatternDelete) Action() string { return "PatternDelete" }
func (PatternEdit) Action() string   { return "PatternEdit" }

func (EventAdd) Action() string    { return "EventAdd" }
func (EventDelete) Action() string { return "EventDelete" }
func (EventEdit) Action() string   { return "EventEdit" }
func (EventFire) Action() string   { return "EventFire" }

func (SliderAdd) Action() string    { return "SliderAdd" }
func (SliderDelete) Action() string { return "SliderDelete" }
func (SliderEdit) Action() string   { return "SliderEdit" }
func (SliderSetVal) Action() string { return "SliderSetVal" }

func (TickerPlay) Action() string   { return "TickerPlay" }
func (TickerPause) Action() string  { return "TickerPause" }
func (TickerStop) Action() string   { return "TickerStop" }
func (TickerSetBpm) Action() string { return "TickerSetBpm" }

func (RequestTickerBpm) Action() string     { return "RequestTickerBpm" }
func (RequestTickerPlaying) Action() string { return "RequestTickerPlaying" }
func (RequestTickerTick) Action() string    { return "RequestTickerTick" }
func (RequestProjectName) Action() string   { return "RequestProjectName" }
func (RequestCommAddr) Action() string      { return "RequestCommAddr" }
func (RequestCommStatus) Action() string    { return "RequestCommStatus" }
func (RequestCtrlContext) Action() string   { return "RequestCtrlContext" }
func (RequestTrack) Action() string         { return "RequestTrack" }
func (RequestAllTracks) Action() string     { return "RequestAllTracks" }
func (RequestPattern) Action() string       { return "RequestPattern" }
func (RequestAllPatterns) Action() string   { return "RequestAllPatterns" }
func (RequestAllEvents) Action() string     { return "RequestAllEvents" }
func (RequestAllSliders) Action() string    { return "RequestAllSliders" }

func (SetProjectName) serverCommand()       {}
func (CommChangeAddr) serverCommand()       {}
func (CtrlChangeContext) serverCommand()    {}
func (TrackAdd) serverCommand()             {}
func (TrackDelete) serverCommand()          {}
func (TrackEdit) serverCommand()            {}
func (TrackMakeActive) serverCommand()      {}
func (TrackMakeLoop) serverCommand()        {}
func (PatternAdd) serverCommand()           {}
func (PatternDelete) serverCommand()        {}
func (PatternEdit) serverCommand()          {}
func (EventAdd) serverCommand()             {}
func (EventDelete) serverCommand()          {}
func (EventEdit) serverCommand()            {}
func (EventFire) serverCommand()            {}
func (SliderAdd) serverCommand()            {}
func (SliderDelete) serverCommand()         {}
func (SliderEdit) serverCommand()           {}
func (SliderSetVal) serverCommand()         {}
func (TickerPlay) serverCommand()           {}
func (TickerPause) serverCommand()          {}
func (TickerStop) serverCommand()           {}
func (TickerSetBpm) serverCommand()         {}
func (RequestTickerBpm) serverCommand()     {}
func (RequestTickerPlaying) serverCommand() {}
func (RequestTickerTick) serverCommand()    {}
func (RequestProjectName) serverCommand()   {}
func (RequestCommAddr) serverCommand()      {}
func (RequestCommStatus) serverCommand()    {}
func (RequestCtrlContext) serverCommand()   {}
func (RequestTrack) serverCommand()         {}
func (RequestAllTracks) serverCommand()     {}
func (RequestPattern) serverCommand()       {}
func (RequestAllPatterns) serverCommand()   {}
func (RequestAllEvents) serverCommand()     {}
func (RequestAllSliders) serverCommand()    {}

func init() {
	registerServer[SetProjectName]()
	registerServer[CommChangeAddr]()
	registerServer[CtrlChangeContext]()
	registerServer[TrackAdd]()
	registerServer[TrackDelete]()
	registerServer[TrackEdit]()
	registerServer[TrackMakeActive]()
	registerServer[TrackMakeLoop]()
	registerServer[PatternAdd]()
	registerServer[PatternDelete]()
	registerServer[PatternEdit]()
	registerServer[EventAdd]()
	registerServer[EventDelete]()
	registerServer[EventEdit]()
	registerServer[EventFire]()
	registerServer[SliderAdd]()
	registerServer[SliderDelete]()
	registerServer[SliderEdit]()
	registerServer[SliderSetVal]()
	registerServer[TickerPlay]()
	registerServer[TickerPause]()
	registerServer[TickerStop]()
	registerServer[TickerSetBpm]()
	registerServer[RequestTickerBpm]()
	registerServer[RequestTickerPlaying]()
	registerServer[RequestTickerTick]()
	registerServer[RequestProjectName]()
	registerServer[RequestCommAddr]()
	registerServer[RequestCommStatus]()
	registerServer[RequestCtrlContext]()
	registerServer[RequestTrack]()
	registerServer[RequestAllTracks]()
	registerServer[RequestPattern]()
	registerServer[RequestAllPatterns]()
	registerServer[RequestAllEvents]()
	registerServer[RequestAllSliders]()
}
