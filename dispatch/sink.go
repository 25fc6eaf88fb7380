package dispatch

import (
	"encoding/binary"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/pkg/errors"

	"go-vibe/debug"
	"go-vibe/model"
)

// Sink delivers OSC messages to the target process
type Sink interface {
	Send(msg model.OscMessage) error
	Close() error
}

func toOSC(m model.OscMessage) *osc.Message {
	msg := osc.NewMessage(m.Path)
	msg.Append(m.Arg.Value())
	return msg
}

func splitAddr(addr string) (string, int, error) {
	if err := model.ValidateAddr(addr); err != nil {
		return "", 0, err
	}
	host, p, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(p)
	return host, port, nil
}

// UDPSink sends each message as one datagram
type UDPSink struct {
	client *osc.Client
}

func NewUDPSink(addr string) (*UDPSink, error) {
	host, port, err := splitAddr(addr)
	if err != nil {
		return nil, err
	}
	return &UDPSink{client: osc.NewClient(host, port)}, nil
}

func (s *UDPSink) Send(m model.OscMessage) error {
	return errors.Wrapf(s.client.Send(toOSC(m)), "send %s", m.Path)
}

func (s *UDPSink) Close() error { return nil }

// ReconnectInterval is how often a TCPSink retries a lost connection. It
// also bounds a single write: a peer that stops reading counts as lost.
const ReconnectInterval = 500 * time.Millisecond

// TCPSink keeps a stream connection to the target and frames each message
// with a big-endian int32 size prefix. While disconnected it redials every
// ReconnectInterval; sends fail until the connection is back.
type TCPSink struct {
	addr     string
	onStatus func(established bool)

	mu     sync.Mutex
	conn   net.Conn
	closed bool
	done   chan struct{}
	wake   chan struct{}
}

// NewTCPSink starts the reconnect loop. onStatus, if set, is called on every
// connect and disconnect.
func NewTCPSink(addr string, onStatus func(bool)) (*TCPSink, error) {
	if err := model.ValidateAddr(addr); err != nil {
		return nil, err
	}
	s := &TCPSink{
		addr:     addr,
		onStatus: onStatus,
		done:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
	}
	go s.connectLoop()
	return s, nil
}

func (s *TCPSink) connectLoop() {
	ticker := time.NewTicker(ReconnectInterval)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		need := s.conn == nil && !s.closed
		s.mu.Unlock()
		if need {
			s.dial()
		}
		select {
		case <-s.done:
			return
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

func (s *TCPSink) dial() {
	conn, err := net.DialTimeout("tcp", s.addr, ReconnectInterval)
	if err != nil {
		debug.LogEvery(20, "osc", "dial %s: %v", s.addr, err)
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()
	debug.Info("osc", "connected to %s", s.addr)
	s.status(true)
}

func (s *TCPSink) status(established bool) {
	if s.onStatus != nil {
		s.onStatus(established)
	}
}

// Established reports whether the stream is currently connected
func (s *TCPSink) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *TCPSink) Send(m model.OscMessage) error {
	data, err := toOSC(m).MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "encode %s", m.Path)
	}
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.Wrapf(model.ErrDispatch, "not connected to %s", s.addr)
	}
	conn.SetWriteDeadline(time.Now().Add(ReconnectInterval))
	if _, err := conn.Write(frame); err != nil {
		s.drop(conn)
		return errors.Wrapf(err, "send %s", m.Path)
	}
	return nil
}

// drop forgets a broken connection and asks the loop to redial
func (s *TCPSink) drop(conn net.Conn) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()
	conn.Close()
	debug.Warn("osc", "lost connection to %s", s.addr)
	s.status(false)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *TCPSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	close(s.done)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
