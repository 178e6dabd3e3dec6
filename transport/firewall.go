package transport

import (
	"fmt"
	"net"
)

// DefaultSenderPort is the controller's well-known measurement sender
// port, the destination for a firewall priming packet.
const DefaultSenderPort = 50107

// firewallToken is the fixed payload historically recognized as a
// priming packet.
const firewallToken = "fw4dtsdkj"

// SendFirewallPriming sends the fixed priming token by UDP from the
// receiver's own bound socket to host:port, convincing an intermediate
// stateful firewall to accept subsequent inbound measurement datagrams
// from that peer. The packet must originate from the receiver's data
// port: a firewall's pinhole is keyed to the sending port, so sending
// from any other socket primes the wrong port and leaves inbound
// measurement datagrams blocked.
func (r *Receiver) SendFirewallPriming(host string, port int) error {
	if port == 0 {
		port = DefaultSenderPort
	}
	conn := r.PacketConn()
	if conn == nil {
		return fmt.Errorf("transport: receiver not started")
	}
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("transport: resolve firewall priming address: %w", err)
	}
	if _, err := conn.WriteTo([]byte(firewallToken), addr); err != nil {
		return fmt.Errorf("transport: firewall priming write: %w", err)
	}
	return nil
}
