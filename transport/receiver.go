// Package transport owns the UDP measurement receiver and the stateful
// firewall priming packet, and parses the connection-string grammar that
// selects between listening, multicast, communicating and firewall modes.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// DefaultBufferSize is the default UDP receive buffer, sized to
// accommodate the largest datagram a controller is expected to emit.
const DefaultBufferSize = 32 * 1024

// Datagram is one received UDP measurement packet together with the
// address it arrived from, needed by the feedback emitter's
// fallback-to-last-sender-address rule.
type Datagram struct {
	Data []byte
	From net.Addr
}

// Receiver owns a UDP socket bound for measurement datagrams, optionally
// joined to a multicast group, and a background goroutine that feeds
// received datagrams into a single-slot channel for Receive to drain.
//
// The socket and the read loop have independent lifecycles: Stop halts
// the read loop and unblocks any pending Receive without releasing the
// socket, so Resume can restart receiving on the same bound port; Close
// tears the socket down for good.
//
// Unlike the teacher's fixed universe-range multicast join, Receiver joins
// exactly one group address, matching one Endpoint.
type Receiver struct {
	bufSize int

	mu             sync.Mutex
	rawConn        net.PacketConn
	pconn          *ipv4.PacketConn
	port           int
	multicastGroup string

	bound   bool // socket has been created by Start and not yet Closed
	running bool // read loop is currently active over rawConn
	closed  bool

	datagrams chan Datagram
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewReceiver constructs a Receiver with the given buffer size (0 selects
// DefaultBufferSize).
func NewReceiver(bufSize int) *Receiver {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Receiver{
		bufSize:   bufSize,
		datagrams: make(chan Datagram, 1),
	}
}

// Start binds the UDP socket. port == 0 asks the OS to assign one. If
// multicastGroup is non-empty, the socket also joins that multicast group
// on every up, non-loopback, multicast-capable interface.
func (r *Receiver) Start(port int, multicastGroup string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound {
		return fmt.Errorf("transport: receiver already started")
	}

	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("transport: listen on port %d: %w", port, err)
	}
	r.rawConn = conn
	r.pconn = ipv4.NewPacketConn(conn)
	r.port = conn.LocalAddr().(*net.UDPAddr).Port
	r.multicastGroup = multicastGroup

	if multicastGroup != "" {
		if err := r.joinMulticastGroup(multicastGroup); err != nil {
			conn.Close()
			r.rawConn = nil
			r.pconn = nil
			return err
		}
	}

	r.bound = true
	r.closed = false
	r.startLoopLocked()
	return nil
}

// startLoopLocked creates a fresh stop/done pair and launches the read
// loop over the currently bound socket. Callers must hold r.mu and have
// already verified rawConn is non-nil and not running.
func (r *Receiver) startLoopLocked() {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running = true
	go r.readLoop(r.rawConn, r.stopCh, r.doneCh)
}

func (r *Receiver) joinMulticastGroup(group string) error {
	groupIP := net.ParseIP(group)
	if groupIP == nil {
		return fmt.Errorf("transport: invalid multicast address %q", group)
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("transport: list interfaces: %w", err)
	}

	joined := 0
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if err := r.pconn.JoinGroup(&iface, &net.UDPAddr{IP: groupIP}); err == nil {
			joined++
		}
	}
	if joined == 0 {
		return fmt.Errorf("transport: could not join multicast group %s on any interface", group)
	}
	return nil
}

// readLoop reads datagrams off the socket and delivers them to the
// single-slot channel in arrival order. The channel's capacity-1 send
// blocks the reader rather than drop a datagram, preserving the
// strictly-increasing-arrival-order guarantee; a slow consumer backs up
// the OS socket buffer instead of losing frames silently.
//
// Stop is signalled by closing stop and setting a read deadline in the
// past, rather than closing the socket out from under an in-flight read.
func (r *Receiver) readLoop(conn net.PacketConn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, r.bufSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-stop:
				return
			default:
				continue
			}
		}

		cp := make([]byte, n)
		copy(cp, buf[:n])
		dg := Datagram{Data: cp, From: addr}

		select {
		case r.datagrams <- dg:
		case <-stop:
			return
		}
	}
}

// Receive blocks until a datagram is available, the context is cancelled,
// or the given timeout elapses (0 means no additional timeout beyond
// ctx). It returns (nil, context.DeadlineExceeded)-compatible errors for
// timeouts so callers can classify them alongside cancellation.
func (r *Receiver) Receive(ctx context.Context, timeout time.Duration) (Datagram, error) {
	if !r.IsValid() {
		return Datagram{}, fmt.Errorf("transport: receiver not started")
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case dg := <-r.datagrams:
		return dg, nil
	case <-ctx.Done():
		return Datagram{}, ctx.Err()
	case <-timeoutCh:
		return Datagram{}, context.DeadlineExceeded
	case <-r.stopSignal():
		return Datagram{}, fmt.Errorf("transport: receiver stopped")
	}
}

// stopSignal returns the current stop channel. After Stop it is the
// closed channel, so Receive on a stopped receiver returns at once; it is
// nil (blocking forever in a select) only before the first Start.
func (r *Receiver) stopSignal() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopCh
}

// IsValid reports whether the UDP socket is currently bound, regardless
// of whether the read loop is running. A receiver that has been Stop'd
// but not Closed is still valid: the socket stays put so Resume can
// restart receiving on the same port.
func (r *Receiver) IsValid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bound && !r.closed
}

// Port returns the locally bound UDP port, or 0 if not started.
func (r *Receiver) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port
}

// PacketConn returns the underlying bound socket, for a caller that
// needs to send from the same local address/port the receiver is
// listening on (the feedback emitter and the firewall priming packet
// both reuse it rather than opening a second socket). Returns nil if the
// socket isn't currently bound.
func (r *Receiver) PacketConn() net.PacketConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.rawConn
}

// Stop halts the read loop and unblocks any pending Receive, but leaves
// the socket bound so a later Resume can pick up receiving again on the
// same port. Idempotent; a no-op if the read loop isn't running.
func (r *Receiver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stopCh := r.stopCh
	conn := r.rawConn
	doneCh := r.doneCh
	r.mu.Unlock()

	close(stopCh)
	if conn != nil {
		conn.SetReadDeadline(time.Now())
	}
	<-doneCh
	if conn != nil {
		conn.SetReadDeadline(time.Time{})
	}
}

// Resume restarts the read loop over the already-bound socket after a
// prior Stop. A no-op if the read loop is already running. Returns an
// error if the receiver was never started or has been Closed.
func (r *Receiver) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if !r.bound || r.closed || r.rawConn == nil {
		return fmt.Errorf("transport: receiver not started")
	}
	r.startLoopLocked()
	return nil
}

// Close halts the read loop if running and closes the underlying socket
// for good. Idempotent.
func (r *Receiver) Close() error {
	r.Stop()

	r.mu.Lock()
	if r.closed || !r.bound {
		r.closed = true
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.bound = false
	conn := r.rawConn
	r.rawConn = nil
	r.pconn = nil
	r.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
