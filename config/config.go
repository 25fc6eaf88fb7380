package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"go-vibe/dispatch"
	"go-vibe/model"
)

// Config is the main configuration structure
type Config struct {
	Listen        string  `json:"listen"`
	TargetAddr    string  `json:"targetAddr"`
	Transport     string  `json:"transport"`
	BPM           float64 `json:"bpm"`
	ProjectName   string  `json:"projectName"`
	ProjectPath   string  `json:"projectPath,omitempty"`
	Autosave      bool    `json:"autosave"`
	MidiPort      string  `json:"midiPort,omitempty"` // empty disables MIDI output
	MidiChannel   int     `json:"midiChannel"`
	QueueSize     int     `json:"queueSize"`     // per connected client
	DispatchQueue int     `json:"dispatchQueue"` // pending OSC batches
	LogLevel      string  `json:"logLevel"`
	LogFile       string  `json:"logFile,omitempty"`
	Palette       string  `json:"palette,omitempty"` // GPL file, empty uses the built in one
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Listen:        "0.0.0.0:8000",
		TargetAddr:    model.DefaultTargetAddr,
		Transport:     dispatch.TransportUDP,
		BPM:           model.DefaultBPM,
		ProjectName:   model.DefaultProjectName,
		Autosave:      true,
		MidiChannel:   1,
		QueueSize:     256,
		DispatchQueue: 64,
		LogLevel:      "info",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	return model.ProjectsDir()
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
// Fields missing from the file keep their defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BindFlags registers command line overrides for every field. Values
// already in c become the flag defaults, so parsing merges over the file.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVarP(&c.Listen, "listen", "l", c.Listen, "websocket listen address")
	fs.StringVarP(&c.TargetAddr, "target", "t", c.TargetAddr, "OSC target host:port")
	fs.StringVar(&c.Transport, "transport", c.Transport, "OSC transport (udp|tcp)")
	fs.Float64VarP(&c.BPM, "bpm", "b", c.BPM, "tempo used when the project has none")
	fs.StringVar(&c.ProjectName, "name", c.ProjectName, "name of a new project")
	fs.StringVarP(&c.ProjectPath, "project", "p", c.ProjectPath, "project file (.json or .yaml)")
	fs.BoolVar(&c.Autosave, "autosave", c.Autosave, "save the project on exit")
	fs.StringVar(&c.MidiPort, "midi-port", c.MidiPort, "MIDI output port name, empty disables MIDI")
	fs.IntVar(&c.MidiChannel, "midi-channel", c.MidiChannel, "MIDI output channel (1-16)")
	fs.IntVar(&c.QueueSize, "queue-size", c.QueueSize, "outbound queue per client")
	fs.IntVar(&c.DispatchQueue, "dispatch-queue", c.DispatchQueue, "pending OSC batches")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "trace|debug|info|warn|error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write logs to this file instead of stderr")
	fs.StringVar(&c.Palette, "palette", c.Palette, "GPL palette for the monitor")
}

// Validate reports settings that cannot work
func (c *Config) Validate() error {
	if err := model.ValidateAddr(c.TargetAddr); err != nil {
		return err
	}
	if c.Transport != dispatch.TransportUDP && c.Transport != dispatch.TransportTCP {
		return model.Invalid("transport %q is not udp or tcp", c.Transport)
	}
	if !model.ValidBPM(c.BPM) {
		return model.Invalid("bpm %v is out of range", c.BPM)
	}
	if c.MidiChannel < 1 || c.MidiChannel > 16 {
		return model.Invalid("midi channel %d is not 1-16", c.MidiChannel)
	}
	return nil
}

// Project resolves the project file, defaulting under the config dir
func (c *Config) Project() (string, error) {
	if c.ProjectPath != "" {
		return c.ProjectPath, nil
	}
	return model.DefaultProjectPath()
}
