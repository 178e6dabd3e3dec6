// Package trackstream is a Go SDK for an optical motion-capture
// controller: it parses UDP measurement datagrams, drives the TCP
// command protocol, and sends UDP tactile/Flystick feedback.
package trackstream

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"trackstream/command"
	"trackstream/feedback"
	"trackstream/frame"
	"trackstream/internal/logging"
	"trackstream/internal/stats"
	"trackstream/transport"
)

// ErrorKind classifies the last error observed on one of the two
// orthogonal error channels.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrTimeout
	ErrNet
	ErrParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrTimeout:
		return "timeout"
	case ErrNet:
		return "net"
	case ErrParse:
		return "parse"
	default:
		return "unknown"
	}
}

// DTrackError is a controller-reported error, set by any command that
// received a "dtrack2 err" reply.
type DTrackError struct {
	Code        int
	Description string
}

// DefaultDataTimeout and DefaultCommandTimeout mirror the controller's
// documented defaults.
const (
	DefaultDataTimeout    = 1 * time.Second
	DefaultCommandTimeout = 10 * time.Second
)

// Session owns the UDP measurement receiver, the optional TCP command
// connection, and the feedback sender for one controller. A Session is
// safe for the data path and the command path to be used from separate
// goroutines, but commands sent on the TCP session are themselves
// serialized by command.Client.
type Session struct {
	id string

	log *logging.Logger

	endpoint       transport.Endpoint
	controllerHost string
	dataTimeout    time.Duration
	commandTimeout time.Duration

	receiver *transport.Receiver
	cmd      *command.Client
	feedback *feedback.Sender

	mu              sync.Mutex
	closed          bool
	lastSenderAddr  net.Addr
	lastDataError   ErrorKind
	lastServerError ErrorKind
	lastDTrackError DTrackError
	lastMessage     command.Message

	tracker *stats.Tracker

	snapshot atomic.Pointer[frame.Snapshot]
}

// Options configures a Session beyond the connection string.
type Options struct {
	// DataBufferSize is the UDP receive buffer size (0 selects
	// transport.DefaultBufferSize).
	DataBufferSize int
	DataTimeout    time.Duration
	CommandTimeout time.Duration
	Logger         *logging.Logger
}

// New constructs a Session from the connection-string grammar described
// in the command-line surface: "<port>", "<multicast-ip>:<port>",
// "<host>:<port>", or "<host>:<port>:fw".
func New(connStr string, opts Options) (*Session, error) {
	ep, err := transport.ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("trackstream: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.New(nil, logging.Info)
	}

	s := &Session{
		id:             uuid.New().String(),
		log:            log,
		endpoint:       ep,
		dataTimeout:    orDefault(opts.DataTimeout, DefaultDataTimeout),
		commandTimeout: orDefault(opts.CommandTimeout, DefaultCommandTimeout),
		receiver:       transport.NewReceiver(opts.DataBufferSize),
		tracker:        stats.NewTracker(),
	}

	switch ep.Mode {
	case transport.ModeListening:
		if err := s.receiver.Start(ep.Port, ""); err != nil {
			return nil, fmt.Errorf("trackstream[%s]: %w", s.id, err)
		}
	case transport.ModeMulticast:
		// ep.Host is the multicast group, not a controller unicast
		// address: no command interface, no feedback destination.
		if err := s.receiver.Start(ep.Port, ep.Host); err != nil {
			return nil, fmt.Errorf("trackstream[%s]: %w", s.id, err)
		}
	case transport.ModeFirewall:
		s.controllerHost = ep.Host
		if err := s.receiver.Start(ep.Port, ""); err != nil {
			return nil, fmt.Errorf("trackstream[%s]: %w", s.id, err)
		}
		if err := s.receiver.SendFirewallPriming(ep.Host, 0); err != nil {
			s.log.Warn("session %s: firewall priming failed: %v", s.id, err)
		}
	case transport.ModeCommunicating:
		s.controllerHost = ep.Host
		if err := s.receiver.Start(ep.Port, ""); err != nil {
			return nil, fmt.Errorf("trackstream[%s]: %w", s.id, err)
		}
		cmd, err := command.Dial(ep.Host, command.DefaultPort, s.commandTimeout)
		if err != nil {
			s.log.Warn("session %s: command dial failed: %v", s.id, err)
		} else {
			s.cmd = cmd
		}
	}

	s.feedback = feedback.NewSender(s.receiver.PacketConn())

	s.log.Info("session %s: started in mode %v, data port %d", s.id, ep.Mode, s.receiver.Port())
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// ID returns the per-session correlation id, for host applications to
// separate interleaved log output.
func (s *Session) ID() string { return s.id }

// IsDataInterfaceValid reports whether the UDP receiver is bound.
func (s *Session) IsDataInterfaceValid() bool {
	return s.receiver.IsValid()
}

// IsCommandInterfaceValid reports whether a TCP command session exists
// and is believed open.
func (s *Session) IsCommandInterfaceValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil && s.cmd.IsValid()
}

// IsCommandInterfaceFullAccess reports whether "dtrack2 get system
// access" returned "full" rather than some other value (commonly
// "monitor", meaning the controller's own front-end still holds
// exclusive access).
func (s *Session) IsCommandInterfaceFullAccess() bool {
	if !s.IsCommandInterfaceValid() {
		return false
	}
	value, resp := s.cmd.GetParam("system access")
	s.recordServerError(resp)
	return resp.Class == command.ClassPayload && value == "full"
}

// IsValid mirrors the reference SDK's isValid(): true iff the data
// interface is valid, and, when a controller address is known, the
// command interface has full access.
func (s *Session) IsValid() bool {
	if !s.IsDataInterfaceValid() {
		return false
	}
	if s.controllerHost == "" {
		return true
	}
	return s.IsCommandInterfaceFullAccess()
}

// GetDataPort returns the bound local UDP port, useful when the
// connection string requested port 0 (OS-assigned).
func (s *Session) GetDataPort() int {
	return s.receiver.Port()
}

// EnableStatefulFirewallConnection re-arms the firewall priming packet
// independent of construction. port defaults to
// transport.DefaultSenderPort when omitted.
func (s *Session) EnableStatefulFirewallConnection(host string, port ...int) error {
	p := 0
	if len(port) > 0 {
		p = port[0]
	}
	return s.receiver.SendFirewallPriming(host, p)
}

// StartMeasurement sends "dtrack2 tracking start" if the command
// interface is valid and requires an "ok" response; regardless of that
// outcome it also re-arms the UDP receiver (resuming it if a prior
// StopMeasurement halted it, a no-op otherwise) and, when a controller
// address is known, sends one stateful-firewall priming packet to it.
// In listening and multicast modes no priming packet is sent.
func (s *Session) StartMeasurement() bool {
	ok := true
	if s.IsCommandInterfaceValid() {
		resp := s.cmd.StartTracking()
		s.recordServerError(resp)
		ok = resp.Class == command.ClassOk
	}
	if err := s.receiver.Resume(); err != nil {
		s.log.Warn("session %s: resuming data receiver failed: %v", s.id, err)
	}
	if s.controllerHost != "" {
		if err := s.receiver.SendFirewallPriming(s.controllerHost, 0); err != nil {
			s.log.Warn("session %s: firewall priming on start failed: %v", s.id, err)
		}
	}
	return ok
}

// StopMeasurement terminates the UDP receiver's blocking wait without
// releasing its socket, then, if the command interface is valid, sends
// "dtrack2 tracking stop". A later StartMeasurement resumes receiving on
// the same data port.
func (s *Session) StopMeasurement() bool {
	s.receiver.Stop()
	if s.IsCommandInterfaceValid() {
		resp := s.cmd.StopTracking()
		s.recordServerError(resp)
		return resp.Class == command.ClassOk
	}
	return true
}

// Receive blocks up to the configured data timeout for one measurement
// datagram, parses it, and, on success, atomically publishes the new
// snapshot and returns true. On timeout it leaves the previous snapshot
// untouched, sets lastDataError to ErrTimeout, and returns false. On a
// socket error it sets ErrNet; on a parse failure it sets ErrParse —
// neither tears down the session, and the previous snapshot remains
// current.
func (s *Session) Receive(ctx context.Context) bool {
	dg, err := s.receiver.Receive(ctx, s.dataTimeout)
	if err != nil {
		if err == context.DeadlineExceeded {
			s.setDataError(ErrTimeout)
			return false
		}
		s.setDataError(ErrNet)
		return false
	}
	s.mu.Lock()
	s.lastSenderAddr = dg.From
	s.mu.Unlock()
	return s.ProcessPacket(dg.Data)
}

// ProcessPacket parses one packet of bytes supplied by the caller,
// failing only on empty or nil input. The reference SDK's equivalent
// guard reads "if (data != null && !data.isEmpty())" immediately before
// setting a parse error — read literally, that fails on the present
// case and accepts the absent one, which looks inverted. This method
// preserves the sensible behavior instead (fail on nil/empty, parse
// otherwise); see DESIGN.md for the full resolution.
func (s *Session) ProcessPacket(data []byte) bool {
	if len(data) == 0 {
		s.setDataError(ErrParse)
		return false
	}
	snap, err := frame.Parse(data)
	if err != nil {
		s.log.Debug("session %s: parse error: %v", s.id, err)
		s.setDataError(ErrParse)
		return false
	}
	s.tracker.RecordFrame(snap.FrameCounter)
	s.snapshot.Store(snap)
	s.setDataError(ErrNone)
	return true
}

// Snapshot returns the most recently published snapshot, or nil if none
// has been received yet. The returned value is never mutated; a fresh
// Snapshot is published on each successful Receive/ProcessPacket.
func (s *Session) Snapshot() *frame.Snapshot {
	return s.snapshot.Load()
}

// LastMessage returns the most recently retrieved event message and
// whether one has been retrieved since construction. It does not poll;
// call GetMessage to refresh it.
func (s *Session) LastMessage() (command.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMessage, s.lastMessage != (command.Message{})
}

// GetMessage sends "dtrack2 getmsg" over the command interface and
// retains the parsed result for LastMessage.
func (s *Session) GetMessage() (command.Message, bool) {
	if !s.IsCommandInterfaceValid() {
		return command.Message{}, false
	}
	msg, resp := s.cmd.GetMessage()
	s.recordServerError(resp)
	if resp.Class != command.ClassPayload {
		return command.Message{}, false
	}
	s.mu.Lock()
	s.lastMessage = msg
	s.mu.Unlock()
	return msg, true
}

// TactileFinger, TactileHand, TactileHandOff, FlystickBeep and
// FlystickVibration send a single best-effort UDP feedback datagram
// each, addressed to the known controller or, in listening mode, to the
// address the most recent measurement datagram arrived from.

func (s *Session) TactileFinger(handID, fingerID int, strength float64) error {
	dest, err := s.feedbackDest()
	if err != nil {
		return err
	}
	return s.feedback.TactileFinger(dest, handID, fingerID, strength)
}

func (s *Session) TactileHand(handID int, strengths []float64) error {
	dest, err := s.feedbackDest()
	if err != nil {
		return err
	}
	return s.feedback.TactileHand(dest, handID, strengths)
}

func (s *Session) TactileHandOff(handID, numFingers int) error {
	dest, err := s.feedbackDest()
	if err != nil {
		return err
	}
	return s.feedback.TactileHandOff(dest, handID, numFingers)
}

func (s *Session) FlystickBeep(flystickID int, durationMs, frequencyHz float64) error {
	dest, err := s.feedbackDest()
	if err != nil {
		return err
	}
	return s.feedback.FlystickBeep(dest, flystickID, durationMs, frequencyHz)
}

func (s *Session) FlystickVibration(flystickID, patternID int) error {
	dest, err := s.feedbackDest()
	if err != nil {
		return err
	}
	return s.feedback.FlystickVibration(dest, flystickID, patternID)
}

func (s *Session) feedbackDest() (net.Addr, error) {
	s.mu.Lock()
	last := s.lastSenderAddr
	s.mu.Unlock()
	return feedback.DestAddr(s.controllerHost, feedback.DefaultPort, last)
}

// LastDataError, LastServerError and LastDTrackError expose the two
// orthogonal error channels plus the controller-reported (code,
// description) pair. None of them are thrown as exceptions across the
// API boundary; callers poll them after any operation that can fail.

func (s *Session) LastDataError() ErrorKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDataError
}

func (s *Session) LastServerError() ErrorKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastServerError
}

func (s *Session) LastDTrackError() DTrackError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDTrackError
}

// Stats returns the session's diagnostic frame-arrival tracker.
func (s *Session) Stats() *stats.Tracker {
	return s.tracker
}

func (s *Session) setDataError(kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDataError = kind
}

func (s *Session) recordServerError(resp command.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch resp.Class {
	case command.ClassTimeout:
		s.lastServerError = ErrTimeout
	case command.ClassTransport:
		s.lastServerError = ErrNet
	case command.ClassMalformed, command.ClassTooLong:
		s.lastServerError = ErrParse
	case command.ClassErr:
		s.lastServerError = ErrNone
		s.lastDTrackError = DTrackError{Code: resp.ErrCode, Description: resp.ErrMsg}
	default:
		s.lastServerError = ErrNone
	}
}

// Close shuts down the UDP receiver and the TCP command connection, if
// any. Idempotent: a second call is a no-op and never returns an error.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd := s.cmd
	s.mu.Unlock()

	if err := s.receiver.Close(); err != nil {
		return fmt.Errorf("trackstream[%s]: %w", s.id, err)
	}
	if cmd != nil {
		if err := cmd.Close(); err != nil {
			return fmt.Errorf("trackstream[%s]: %w", s.id, err)
		}
	}
	s.log.Info("session %s: closed", s.id)
	return nil
}
