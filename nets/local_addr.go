package nets

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"
)

// IsLocalAddr reports whether addr resolves to a loopback or private address.
// Local addresses such as a co-located ollama server bypass the proxy.
type IsLocalAddr func(ctx context.Context, addr string) (bool, error)

const lookupTimeout = 3 * time.Second

func (Module) IsLocalAddr() IsLocalAddr {
	return func(ctx context.Context, addr string) (bool, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			// no port
			host = addr
		}
		host = strings.Trim(host, "[]")

		if ip, err := netip.ParseAddr(host); err == nil {
			return isLocalIP(ip), nil
		}
		if host == "localhost" || strings.HasSuffix(host, ".localhost") {
			return true, nil
		}

		ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()
		ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			// unresolvable hosts go through the proxy
			return false, nil
		}
		for _, ip := range ips {
			if isLocalIP(ip) {
				return true, nil
			}
		}
		return false, nil
	}
}

func isLocalIP(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
