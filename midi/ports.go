package midi

import (
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ScanTimeout bounds a port scan. Some MIDI backends hang instead of failing.
const ScanTimeout = 3 * time.Second

// ErrScanTimeout is returned when the driver does not answer in time
var ErrScanTimeout = errors.New("midi port scan timed out")

// OutPorts lists output ports, giving up after timeout
func OutPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		return nil, ErrScanTimeout
	}
}

// OutPortNames lists output port names
func OutPortNames(timeout time.Duration) ([]string, error) {
	outs, err := OutPorts(timeout)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names, nil
}

// CloseDriver releases the MIDI driver on shutdown
func CloseDriver() {
	gomidi.CloseDriver()
}
