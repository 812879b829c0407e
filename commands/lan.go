package commands

import (
	"fmt"
	"io"
	"net"

	"github.com/jackpal/gateway"
	"github.com/mdp/qrterminal/v3"
)

// lanAddress returns the local IPv4 address on the network of the default gateway,
// that is the address other devices on the LAN reach this host at
func lanAddress() (string, error) {
	gwIP, err := gateway.DiscoverGateway()
	if err != nil {
		return "", fmt.Errorf("failed to discover gateway: %w", err)
	}
	localIP, err := localIPForGateway(gwIP)
	if err != nil {
		return "", err
	}
	return localIP.String(), nil
}

// localIPForGateway finds the IPv4 address of the interface whose subnet holds the gateway
func localIPForGateway(gwIP net.IP) (net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if ip := matchGateway(addrs, gwIP); ip != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no local IPv4 address found in the same subnet as gateway %s", gwIP)
}

// matchGateway returns the first global unicast IPv4 address whose network contains gwIP
func matchGateway(addrs []net.Addr, gwIP net.IP) net.IP {
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ipv4 := ipnet.IP.To4()
		if ipv4 == nil || !ipv4.IsGlobalUnicast() {
			continue
		}
		if ipnet.Contains(gwIP) {
			return ipv4
		}
	}
	return nil
}

const (
	blackWhite = "▄"
	blackBlack = " "
	whiteBlack = "▀"
	whiteWhite = "█"
)

// printQR draws the URL as a QR code made of half blocks
func printQR(w io.Writer, url string) {
	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      blackBlack,
		WhiteBlackChar: whiteBlack,
		WhiteChar:      whiteWhite,
		BlackWhiteChar: blackWhite,
		QuietZone:      1,
	})
}
