package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"wsaddon/internal/domain"
)

// ValidateTarget refuses non-http schemes and, unless allowPrivate is set,
// hosts that are or resolve to loopback, private or link-local addresses.
func ValidateTarget(ctx context.Context, u *url.URL, allowPrivate bool) error {
	if u == nil {
		return fmt.Errorf("%w: missing url", domain.ErrInvalidProxyURL)
	}
	scheme := strings.ToLower(strings.TrimSpace(u.Scheme))
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidProxyURL, u.Scheme)
	}
	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	if host == "" {
		return fmt.Errorf("%w: missing host", domain.ErrInvalidProxyURL)
	}
	if allowPrivate {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: %s", domain.ErrBlockedProxyTarget, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("%w: %s", domain.ErrBlockedProxyTarget, host)
		}
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupIPAddr(lookupCtx, host)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: cannot resolve %s", domain.ErrBlockedProxyTarget, host)
	}
	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", domain.ErrBlockedProxyTarget, host, addr.IP)
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified()
}

// guardDial runs on the resolved address right before connect.
func guardDial(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if ip := net.ParseIP(host); ip == nil || isBlockedIP(ip) {
		return fmt.Errorf("%w: dial %s %s", domain.ErrBlockedProxyTarget, network, address)
	}
	return nil
}
