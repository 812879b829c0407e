package users

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var (
	// ErrUnauthorized is returned when the credentials do not match
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAddressNotAllowed is returned when the peer is outside the allowed networks
	ErrAddressNotAllowed = errors.New("address not allowed")
)

// User is the single credential a service is started with.
// Password doubles as the shared secret of the HTTP service.
type User struct {
	Username string
	Password string
	// IPs the user may connect from, empty allows every address
	IPs map[string]*netip.Prefix
}

// NewUser creates a user that may connect from anywhere
func NewUser(username, password string) *User {
	return &User{
		Username: username,
		Password: password,
		IPs:      make(map[string]*netip.Prefix),
	}
}

// AddIP adds an IP prefix to the user
// if the ip is without the prefix, it will add /32 (/128 for IPv6)
func (u *User) AddIP(ip string) error {
	ip = strings.TrimSpace(ip)
	if !strings.Contains(ip, "/") {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return fmt.Errorf("error parsing IP: %w", err)
		}
		ip = netip.PrefixFrom(addr, addr.BitLen()).String()
	}

	prefix, err := netip.ParsePrefix(ip)
	if err != nil {
		return fmt.Errorf("error parsing IP: %w", err)
	}
	prefix = prefix.Masked()
	u.IPs[prefix.String()] = &prefix
	return nil
}

// FindIP reports whether the address is in one of the user prefixes
func (u *User) FindIP(ip string) bool {
	addr, err := parseRemote(ip)
	if err != nil {
		return false
	}
	for _, v := range u.IPs {
		if v.Contains(addr) {
			return true
		}
	}
	return false
}

// Allowed reports whether the user may connect from the remote address
func (u *User) Allowed(remoteAddr string) bool {
	return len(u.IPs) == 0 || u.FindIP(remoteAddr)
}

// Verify checks a username and password pair sent from remoteAddr
func (u *User) Verify(username, password, remoteAddr string) error {
	if !u.Allowed(remoteAddr) {
		return fmt.Errorf("%w: %s", ErrAddressNotAllowed, remoteAddr)
	}
	if !equal(username, u.Username) || !equal(password, u.Password) {
		return fmt.Errorf("%w: bad username or password for %q", ErrUnauthorized, username)
	}
	return nil
}

// VerifySecret checks the shared secret sent from remoteAddr
func (u *User) VerifySecret(secret, remoteAddr string) error {
	if !u.Allowed(remoteAddr) {
		return fmt.Errorf("%w: %s", ErrAddressNotAllowed, remoteAddr)
	}
	if !equal(secret, u.Password) {
		return ErrUnauthorized
	}
	return nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// parseRemote accepts "ip", "ip:port" and "[ipv6]:port"
func parseRemote(remote string) (netip.Addr, error) {
	if addrPort, err := netip.ParseAddrPort(remote); err == nil {
		return addrPort.Addr().Unmap(), nil
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return netip.Addr{}, err
	}
	return addr.Unmap(), nil
}
