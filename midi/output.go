package midi

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-vibe/debug"
)

// DefaultVelocity is used for every note a pattern fires
const DefaultVelocity = 100

// Output mirrors pattern MIDI codes as notes on a hardware port. Each code
// plays a NoteOn and, after the gate time, its NoteOff.
type Output struct {
	portName string
	channel  uint8
	gate     time.Duration

	// senders are opened lazily and cached per port name
	senders   map[string]func(gomidi.Message) error
	sendersMu sync.RWMutex

	open func(portName string) (func(gomidi.Message) error, error)
}

// NewOutput creates an output for a port. channel is 1-16 as printed on
// hardware.
func NewOutput(portName string, channel int, gate time.Duration) (*Output, error) {
	if channel < 1 || channel > 16 {
		return nil, errors.Errorf("midi channel %d out of range 1-16", channel)
	}
	return &Output{
		portName: portName,
		channel:  uint8(channel - 1),
		gate:     gate,
		senders:  make(map[string]func(gomidi.Message) error),
		open:     openPort,
	}, nil
}

// NewOutputWithSender builds an Output around an existing send function
func NewOutputWithSender(send func(gomidi.Message) error, channel int, gate time.Duration) *Output {
	o := &Output{
		portName: "custom",
		channel:  uint8(channel - 1),
		gate:     gate,
		senders:  make(map[string]func(gomidi.Message) error),
	}
	o.open = func(string) (func(gomidi.Message) error, error) { return send, nil }
	return o
}

func openPort(portName string) (func(gomidi.Message) error, error) {
	outs, err := OutPorts(ScanTimeout)
	if err != nil {
		return nil, err
	}
	for _, port := range outs {
		if port.String() == portName {
			return gomidi.SendTo(port)
		}
	}
	return nil, errors.Errorf("midi output port %q not found", portName)
}

// getSender returns a sender for the given port name, lazily opening it
func (o *Output) getSender(portName string) (func(gomidi.Message) error, error) {
	o.sendersMu.RLock()
	if sender, ok := o.senders[portName]; ok {
		o.sendersMu.RUnlock()
		return sender, nil
	}
	o.sendersMu.RUnlock()

	o.sendersMu.Lock()
	defer o.sendersMu.Unlock()

	// Double-check after acquiring write lock
	if sender, ok := o.senders[portName]; ok {
		return sender, nil
	}
	sender, err := o.open(portName)
	if err != nil {
		return nil, err
	}
	o.senders[portName] = sender
	debug.Info("midi", "opened output %s", portName)
	return sender, nil
}

func (o *Output) send(e Event) error {
	sender, err := o.getSender(o.portName)
	if err != nil {
		return err
	}
	return sender(e.Message())
}

// Notes plays every code now and releases them after the gate time. Codes
// whose NoteOn went out are always released, even when another one failed.
func (o *Output) Notes(codes []uint8) error {
	var (
		firstErr error
		played   []uint8
	)
	for _, code := range codes {
		if code > 127 {
			continue
		}
		if err := o.send(Event{Type: NoteOn, Channel: o.channel, Note: code, Velocity: DefaultVelocity}); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		played = append(played, code)
	}
	if len(played) > 0 {
		time.AfterFunc(o.gate, func() {
			for _, code := range played {
				if err := o.send(Event{Type: NoteOff, Channel: o.channel, Note: code}); err != nil {
					debug.LogEvery(50, "midi", "note off %d: %v", code, err)
				}
			}
		})
	}
	return firstErr
}
