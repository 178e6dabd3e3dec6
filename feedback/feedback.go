// Package feedback builds and sends the UDP actuation datagrams that
// drive tactile fingertracking gloves and Flystick actuators.
package feedback

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the controller's feedback receiver port.
const DefaultPort = 50110

// Sender addresses and transmits feedback datagrams. The destination is
// either a fixed controller address or, in listening mode, the source
// address of the most recently received measurement datagram — callers
// supply whichever is current via DestAddr.
type Sender struct {
	conn net.PacketConn
}

// NewSender wraps an already-bound UDP socket (typically the same socket
// the measurement receiver is listening on) for sending feedback.
func NewSender(conn net.PacketConn) *Sender {
	return &Sender{conn: conn}
}

// DestAddr resolves the destination for a feedback datagram: the known
// controller address if non-empty, else the address the last measurement
// datagram arrived from.
func DestAddr(controllerHost string, port int, lastSenderAddr net.Addr) (net.Addr, error) {
	if controllerHost != "" {
		return net.ResolveUDPAddr("udp4", net.JoinHostPort(controllerHost, strconv.Itoa(port)))
	}
	if lastSenderAddr == nil {
		return nil, fmt.Errorf("feedback: no controller address and no prior measurement sender")
	}
	udpAddr, ok := lastSenderAddr.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("feedback: unexpected address type %T", lastSenderAddr)
	}
	return &net.UDPAddr{IP: udpAddr.IP, Port: port}, nil
}

func (s *Sender) send(dest net.Addr, payload string) error {
	_, err := s.conn.WriteTo([]byte(payload+"\x00"), dest)
	return err
}

// TactileFinger sets tactile feedback on a single finger of a hand.
// strength must lie in [0.0, 1.0]; out-of-range values are refused
// without any network I/O.
func (s *Sender) TactileFinger(dest net.Addr, handID, fingerID int, strength float64) error {
	if strength < 0.0 || strength > 1.0 {
		return fmt.Errorf("feedback: tactile strength %v not in range [0.0, 1.0]", strength)
	}
	payload := fmt.Sprintf("tfb 1 [%d %d 1.0 %v]", handID, fingerID, strength)
	return s.send(dest, payload)
}

// TactileHand sets tactile feedback on every finger of a hand in one
// datagram. Any strength out of [0.0, 1.0] refuses the whole call
// without sending anything.
func (s *Sender) TactileHand(dest net.Addr, handID int, strengths []float64) error {
	for _, st := range strengths {
		if st < 0.0 || st > 1.0 {
			return fmt.Errorf("feedback: tactile strength %v not in range [0.0, 1.0]", st)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "tfb %d ", len(strengths))
	for i, st := range strengths {
		fmt.Fprintf(&b, "[%d %d 1.0 %v]", handID, i, st)
	}
	return s.send(dest, b.String())
}

// TactileHandOff turns off tactile feedback on every finger of a hand.
// Byte-identical on the wire to TactileHand with every strength 0.
func (s *Sender) TactileHandOff(dest net.Addr, handID, numFingers int) error {
	strengths := make([]float64, numFingers)
	return s.TactileHand(dest, handID, strengths)
}

// FlystickBeep starts a beep on a Flystick for durationMs milliseconds
// at frequencyHz.
func (s *Sender) FlystickBeep(dest net.Addr, flystickID int, durationMs, frequencyHz float64) error {
	payload := fmt.Sprintf("ffb 1 [%d %d %d 0 0][]", flystickID, int(durationMs), int(frequencyHz))
	return s.send(dest, payload)
}

// FlystickVibration starts vibration pattern patternID on a Flystick.
func (s *Sender) FlystickVibration(dest net.Addr, flystickID, patternID int) error {
	payload := fmt.Sprintf("ffb 1 [%d 0 0 %d 0][]", flystickID, patternID)
	return s.send(dest, payload)
}
