package fetch

import (
	"net"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
)

// CheckURL accepts absolute http(s) URLs whose host is not a private, loopback or link-local
// address. Hostnames are checked again at dial time.
func CheckURL(raw string) (*url.URL, error) {
	return checkURL(raw, false)
}

func checkURL(raw string, allowPrivate bool) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, &InvalidURLError{URL: raw, Message: "not an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: raw, Message: "only http and https are allowed"}
	}
	if allowPrivate {
		return u, nil
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return nil, &BlockedError{Host: host}
	}
	if addr, err := netip.ParseAddr(host); err == nil && blocked(addr) {
		return nil, &BlockedError{Host: host}
	}
	return u, nil
}

func blocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsMulticast()
}

// guardDial is a net.Dialer Control func refusing connections to blocked addresses.
func guardDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if blocked(addr) {
		return &BlockedError{Host: host}
	}
	return nil
}
