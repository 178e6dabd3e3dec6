package command

import (
	"bufio"
	"net"
	"strconv"
	"testing"
	"time"
)

// fakeController accepts one connection and replies to each NUL-terminated
// request with a canned NUL-terminated response, keyed by request prefix.
func fakeController(t *testing.T, responses map[string]string) (addr string, stop func()) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			req, err := r.ReadString('\x00')
			if err != nil {
				return
			}
			reply, ok := responses[req]
			if !ok {
				// No canned reply: hold the connection open without
				// responding so the client's own timeout is what fires.
				time.Sleep(5 * time.Second)
				return
			}
			if _, err := conn.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func dialTestClient(t *testing.T, addr string) *Client {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("bad port string %q", portStr)
	}
	c, err := Dial(host, port, time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c
}

// S4: "dtrack2 get system access" ⇒ "dtrack2 set system access full".
func TestSendScenarioS4(t *testing.T) {
	addr, stop := fakeController(t, map[string]string{
		"dtrack2 get system access\x00": "dtrack2 set system access full\x00",
	})
	defer stop()

	c := dialTestClient(t, addr)
	defer c.Close()

	value, resp := c.GetParam("system access")
	if resp.Class != ClassPayload {
		t.Fatalf("Class = %v, want ClassPayload", resp.Class)
	}
	if value != "full" {
		t.Errorf("value = %q, want %q", value, "full")
	}
}

func TestSendOk(t *testing.T) {
	addr, stop := fakeController(t, map[string]string{
		"dtrack2 tracking start\x00": "dtrack2 ok\x00",
	})
	defer stop()

	c := dialTestClient(t, addr)
	defer c.Close()

	resp := c.StartTracking()
	if resp.Class != ClassOk {
		t.Fatalf("Class = %v, want ClassOk", resp.Class)
	}
}

func TestSendErr(t *testing.T) {
	addr, stop := fakeController(t, map[string]string{
		"dtrack2 set cam 0 gain 99\x00": `dtrack2 err 7 "out of range"` + "\x00",
	})
	defer stop()

	c := dialTestClient(t, addr)
	defer c.Close()

	resp := c.SetParam("cam 0 gain 99")
	if resp.Class != ClassErr {
		t.Fatalf("Class = %v, want ClassErr", resp.Class)
	}
	if resp.ErrCode != 7 {
		t.Errorf("ErrCode = %d, want 7", resp.ErrCode)
	}
	if resp.ErrMsg != "out of range" {
		t.Errorf("ErrMsg = %q, want %q", resp.ErrMsg, "out of range")
	}
}

// S5: a 250-byte outbound command is refused as TooLong with nothing
// written to the socket (so the fake controller never sees a request and
// never replies; if the client tried to write, ReadString would either
// get a real reply — wrong class — or block until the test's deadline).
func TestSendScenarioS5TooLong(t *testing.T) {
	addr, stop := fakeController(t, map[string]string{})
	defer stop()

	c := dialTestClient(t, addr)
	defer c.Close()

	cmd := "dtrack2 set " + string(make([]byte, 250))
	resp := c.Send(cmd)
	if resp.Class != ClassTooLong {
		t.Fatalf("Class = %v, want ClassTooLong", resp.Class)
	}
}

func TestSendTimesOutWhenNoResponse(t *testing.T) {
	addr, stop := fakeController(t, map[string]string{})
	defer stop()

	c := dialTestClient(t, addr)
	defer c.Close()
	c.timeout = 50 * time.Millisecond

	resp := c.Send("dtrack2 getmsg\x00")
	if resp.Class != ClassTimeout {
		t.Fatalf("Class = %v, want ClassTimeout", resp.Class)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	addr, stop := fakeController(t, map[string]string{})
	defer stop()

	c := dialTestClient(t, addr)
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
