package ftp

import (
	"fmt"
	"net"
	"net/netip"
)

// interfaceAddrs is replaced in tests
var interfaceAddrs = net.InterfaceAddrs

// loopbackIPv4 is advertised when nothing better can be found
var loopbackIPv4 = netip.AddrFrom4([4]byte{127, 0, 0, 1})

// listenPassive opens the listener for the next data transfer on every interface.
// With no port range the OS picks the port, otherwise the first free port in the range is used.
func listenPassive(minPort, maxPort int) (net.Listener, int, error) {
	if minPort <= 0 || maxPort < minPort {
		listener, err := net.Listen("tcp", ":0")
		if err != nil {
			return nil, 0, fmt.Errorf("error listening for data connection: %w", err)
		}
		return listener, listener.Addr().(*net.TCPAddr).Port, nil
	}

	for port := minPort; port <= maxPort; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return listener, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no available ports found in range %d-%d", minPort, maxPort)
}

// selectPassiveIP picks the IPv4 address advertised in the PASV reply:
// the local end of the control connection, then the address the OS routes to the peer from,
// then the first private address of this host, then loopback.
func selectPassiveIP(local, remote net.Addr) netip.Addr {
	if ip, ok := concreteIPv4(local); ok {
		return ip
	}
	if ip, ok := routeIPv4(remote); ok {
		return ip
	}
	if ip, ok := privateIPv4(); ok {
		return ip
	}
	return loopbackIPv4
}

// concreteIPv4 returns the IPv4 address of addr when it is neither the wildcard nor loopback
func concreteIPv4(addr net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch a := addr.(type) {
	case *net.TCPAddr:
		ip = a.IP
	case *net.UDPAddr:
		ip = a.IP
	case *net.IPNet:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return netip.Addr{}, false
	}

	parsed, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}
	parsed = parsed.Unmap()
	if !parsed.Is4() || parsed.IsUnspecified() || parsed.IsLoopback() {
		return netip.Addr{}, false
	}
	return parsed, true
}

// routeIPv4 connects a UDP socket to the peer without sending anything and reads back the local address
func routeIPv4(remote net.Addr) (netip.Addr, bool) {
	peer, ok := remote.(*net.TCPAddr)
	if !ok || peer.IP.To4() == nil {
		return netip.Addr{}, false
	}
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: peer.IP, Port: peer.Port})
	if err != nil {
		return netip.Addr{}, false
	}
	defer conn.Close()
	return concreteIPv4(conn.LocalAddr())
}

// privateIPv4 returns the first non loopback IPv4 address in 10/8, 172.16/12 or 192.168/16
func privateIPv4() (netip.Addr, bool) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return netip.Addr{}, false
	}
	for _, addr := range addrs {
		ip, ok := concreteIPv4(addr)
		if ok && ip.IsPrivate() {
			return ip, true
		}
	}
	return netip.Addr{}, false
}

// pasvReply formats the 227 text, the port goes out as its high and low byte
func pasvReply(ip netip.Addr, port int) string {
	b := ip.As4()
	return fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d)", b[0], b[1], b[2], b[3], port/256, port%256)
}

// epsvReply formats the 229 text, the address is the one of the control connection
func epsvReply(port int) string {
	return fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", port)
}
