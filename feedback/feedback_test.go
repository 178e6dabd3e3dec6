package feedback

import (
	"net"
	"testing"
	"time"
)

func newTestSender(t *testing.T) (*Sender, *net.UDPConn, net.Addr) {
	senderConn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket sender: %v", err)
	}
	t.Cleanup(func() { senderConn.Close() })

	recvConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("ListenUDP receiver: %v", err)
	}
	t.Cleanup(func() { recvConn.Close() })

	return NewSender(senderConn), recvConn, recvConn.LocalAddr()
}

func readOne(t *testing.T, conn *net.UDPConn) string {
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	return string(buf[:n])
}

// Invariant 6: flystickBeep produces exactly "ffb 1 [<id> <d_int>
// <f_int> 0 0][]\0" on the wire.
func TestFlystickBeepWireFormat(t *testing.T) {
	sender, recv, dest := newTestSender(t)

	if err := sender.FlystickBeep(dest, 3, 250.0, 440.0); err != nil {
		t.Fatalf("FlystickBeep: %v", err)
	}

	got := readOne(t, recv)
	want := "ffb 1 [3 250 440 0 0][]\x00"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFlystickVibrationWireFormat(t *testing.T) {
	sender, recv, dest := newTestSender(t)

	if err := sender.FlystickVibration(dest, 2, 5); err != nil {
		t.Fatalf("FlystickVibration: %v", err)
	}

	got := readOne(t, recv)
	want := "ffb 1 [2 0 0 5 0][]\x00"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Invariant 7: tactileHand with all strengths 0 is byte-identical to
// tactileHandOff for the same finger count.
func TestTactileHandOffMatchesAllZeroTactileHand(t *testing.T) {
	senderA, recvA, destA := newTestSender(t)
	senderB, recvB, destB := newTestSender(t)

	if err := senderA.TactileHand(destA, 1, []float64{0, 0, 0}); err != nil {
		t.Fatalf("TactileHand: %v", err)
	}
	if err := senderB.TactileHandOff(destB, 1, 3); err != nil {
		t.Fatalf("TactileHandOff: %v", err)
	}

	gotA := readOne(t, recvA)
	gotB := readOne(t, recvB)
	if gotA != gotB {
		t.Errorf("TactileHand(all zero) = %q, TactileHandOff = %q, want identical", gotA, gotB)
	}
}

// Invariant 8: tactileFinger(1.0) succeeds; tactileFinger(1.0000001)
// fails without emitting a datagram.
func TestTactileFingerBoundary(t *testing.T) {
	sender, recv, dest := newTestSender(t)

	if err := sender.TactileFinger(dest, 0, 0, 1.0); err != nil {
		t.Fatalf("TactileFinger(1.0): %v", err)
	}
	readOne(t, recv) // drain the datagram from the in-range call

	if err := sender.TactileFinger(dest, 0, 0, 1.0000001); err == nil {
		t.Fatal("TactileFinger(1.0000001) succeeded, want error")
	}

	recv.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 64)
	if _, _, err := recv.ReadFrom(buf); err == nil {
		t.Fatal("expected no datagram after out-of-range TactileFinger, got one")
	}
}

func TestTactileFingerRejectsNegativeStrength(t *testing.T) {
	sender, recv, dest := newTestSender(t)

	if err := sender.TactileFinger(dest, 0, 0, -0.1); err == nil {
		t.Fatal("TactileFinger(-0.1) succeeded, want error")
	}

	recv.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 64)
	if _, _, err := recv.ReadFrom(buf); err == nil {
		t.Fatal("expected no datagram after out-of-range TactileFinger, got one")
	}
}

func TestDestAddrPrefersControllerHost(t *testing.T) {
	addr, err := DestAddr("127.0.0.1", 50110, nil)
	if err != nil {
		t.Fatalf("DestAddr: %v", err)
	}
	if addr.String() != "127.0.0.1:50110" {
		t.Errorf("got %q, want %q", addr.String(), "127.0.0.1:50110")
	}
}

func TestDestAddrFallsBackToLastSender(t *testing.T) {
	last := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 12345}
	addr, err := DestAddr("", 50110, last)
	if err != nil {
		t.Fatalf("DestAddr: %v", err)
	}
	if addr.String() != "10.0.0.5:50110" {
		t.Errorf("got %q, want %q", addr.String(), "10.0.0.5:50110")
	}
}

func TestDestAddrFailsWithNeither(t *testing.T) {
	_, err := DestAddr("", 50110, nil)
	if err == nil {
		t.Fatal("DestAddr succeeded, want error")
	}
}
