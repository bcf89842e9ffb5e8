package nets

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"

	"github.com/reusee/taitrace/configs"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/modes"
	"github.com/reusee/taitrace/vars"
	"golang.org/x/net/proxy"
)

// ProxyAddr is the upstream proxy for non-local generator backends, empty for direct connections.
type ProxyAddr string

func (Module) ProxyAddr(
	mode modes.Mode,
	loader configs.Loader,
	logger logs.Logger,
) ProxyAddr {
	if mode == modes.ModeDevelopment {
		return ""
	}
	addr := vars.FirstNonZero(
		configs.First[ProxyAddr](loader, "proxy_addr"),
		configs.First[ProxyAddr](loader, "http_proxy"),
		configs.First[ProxyAddr](loader, "socks_proxy"),
		ProxyAddr(os.Getenv("ALL_PROXY")),
		ProxyAddr(os.Getenv("all_proxy")),
		ProxyAddr(os.Getenv("HTTP_PROXY")),
		ProxyAddr(os.Getenv("http_proxy")),
		ProxyAddr(os.Getenv("SOCKS_PROXY")),
		ProxyAddr(os.Getenv("socks_proxy")),
	)
	if addr != "" {
		logger.Info("proxy", "addr", addr)
	}
	return addr
}

type GetProxyURL func() (*url.URL, error)

func (Module) GetProxyURL(
	proxyAddr ProxyAddr,
) GetProxyURL {
	return sync.OnceValues(func() (*url.URL, error) {
		if proxyAddr == "" {
			return nil, nil
		}
		u, err := url.Parse(string(proxyAddr))
		if err != nil {
			return nil, fmt.Errorf("parse proxy address: %w", err)
		}
		switch u.Scheme {
		case "socks":
			u.Scheme = "socks5"
		case "":
			return nil, fmt.Errorf("proxy address without scheme: %s", proxyAddr)
		}
		return u, nil
	})
}

type GetProxyDialer func() (Dialer, error)

func (Module) GetProxyDialer(
	getURL GetProxyURL,
) GetProxyDialer {
	direct := &net.Dialer{
		Timeout: dialTimeout,
	}
	return sync.OnceValues(func() (Dialer, error) {
		u, err := getURL()
		if err != nil {
			return nil, err
		}
		if u == nil {
			return direct, nil
		}
		proxyDialer, err := proxy.FromURL(u, direct)
		if err != nil {
			return nil, err
		}
		dialer, ok := proxyDialer.(Dialer)
		if !ok {
			return nil, fmt.Errorf("proxy dialer for %s does not support contexts", u.Scheme)
		}
		return dialer, nil
	})
}
