// Package dispatch delivers trigger messages to the OSC target without ever
// blocking the clock.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"go-vibe/debug"
	"go-vibe/model"
)

// Transport names accepted by Options.Transport
const (
	TransportUDP = "udp"
	TransportTCP = "tcp"
)

// Batch is what one tick, or one immediate fire, sends. Messages are
// delivered in slice order; Notes mirror the MIDI codes to hardware.
type Batch struct {
	Tick     int
	Messages []model.OscMessage
	Notes    []uint8
}

// NoteSink plays MIDI codes on a hardware port
type NoteSink interface {
	Notes(codes []uint8) error
}

type Options struct {
	Addr      string
	Transport string
	QueueSize int

	// Notes mirrors MIDI codes to hardware when set
	Notes NoteSink

	// OnFailure is told when delivery starts failing, not on every error
	OnFailure func(err error)
	// OnStatus is told when the target connection comes up or goes down
	OnStatus func(established bool)
}

// Dispatcher owns the sink and a bounded queue of batches drained by Run in
// arrival order. Dispatch never blocks: a full queue drops the batch and
// reports a failure.
type Dispatcher struct {
	opts  Options
	queue chan Batch

	mu   sync.Mutex
	sink Sink
	addr string

	established atomic.Bool
	failing     atomic.Bool
}

// New creates a Dispatcher and its first sink
func New(opts Options) (*Dispatcher, error) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	switch opts.Transport {
	case "":
		opts.Transport = TransportUDP
	case TransportUDP, TransportTCP:
	default:
		return nil, model.Invalid("transport %q, want udp or tcp", opts.Transport)
	}
	d := &Dispatcher{
		opts:  opts,
		queue: make(chan Batch, opts.QueueSize),
	}
	if err := d.SetTarget(opts.Addr); err != nil {
		return nil, err
	}
	return d, nil
}

// NewWithSink wraps an existing sink, mostly for tests
func NewWithSink(sink Sink, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	d := &Dispatcher{
		opts:  opts,
		queue: make(chan Batch, opts.QueueSize),
		sink:  sink,
		addr:  opts.Addr,
	}
	d.setStatus(true)
	return d
}

func (d *Dispatcher) newSink(addr string) (Sink, error) {
	if d.opts.Transport == TransportTCP {
		return NewTCPSink(addr, d.setStatus)
	}
	return NewUDPSink(addr)
}

// SetTarget switches to a new host:port. The old sink is closed.
func (d *Dispatcher) SetTarget(addr string) error {
	if err := model.ValidateAddr(addr); err != nil {
		return err
	}
	if d.opts.Transport == TransportTCP {
		d.setStatus(false)
	}
	sink, err := d.newSink(addr)
	if err != nil {
		return err
	}
	d.mu.Lock()
	old := d.sink
	d.sink = sink
	d.addr = addr
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}
	debug.Info("osc", "target is %s over %s", addr, d.opts.Transport)
	if d.opts.Transport == TransportUDP {
		// Datagrams need no connection.
		d.setStatus(true)
	}
	return nil
}

func (d *Dispatcher) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

func (d *Dispatcher) Established() bool {
	return d.established.Load()
}

func (d *Dispatcher) setStatus(established bool) {
	if d.established.Swap(established) == established {
		return
	}
	if d.opts.OnStatus != nil {
		d.opts.OnStatus(established)
	}
}

// Dispatch queues a batch and reports whether it was accepted
func (d *Dispatcher) Dispatch(b Batch) bool {
	if len(b.Messages) == 0 && len(b.Notes) == 0 {
		return true
	}
	select {
	case d.queue <- b:
		return true
	default:
		d.fail(errors.Wrapf(model.ErrDispatch, "queue full, dropped tick %d", b.Tick))
		return false
	}
}

// Run drains the queue until ctx is done, then closes the sink
func (d *Dispatcher) Run(ctx context.Context) error {
	defer func() {
		d.mu.Lock()
		sink := d.sink
		d.mu.Unlock()
		if sink != nil {
			sink.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b := <-d.queue:
			d.deliver(b)
		}
	}
}

// deliver sends every message of a batch in order. A failed message is
// reported and not retried, so later messages are never reordered.
func (d *Dispatcher) deliver(b Batch) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()

	ok := true
	for _, m := range b.Messages {
		if err := sink.Send(m); err != nil {
			ok = false
			d.fail(err)
		}
	}
	if d.opts.Notes != nil && len(b.Notes) > 0 {
		if err := d.opts.Notes.Notes(b.Notes); err != nil {
			debug.LogEvery(50, "midi", "notes: %v", err)
		}
	}
	if ok && len(b.Messages) > 0 && d.failing.Swap(false) {
		debug.Info("osc", "delivery to %s recovered", d.Target())
	}
	debug.Trace("osc", "tick %d: %d messages", b.Tick, len(b.Messages))
}

func (d *Dispatcher) fail(err error) {
	debug.WarnEvery(100, "osc", "%v", err)
	if d.failing.Swap(true) {
		return
	}
	if d.opts.OnFailure != nil {
		d.opts.OnFailure(err)
	}
}
