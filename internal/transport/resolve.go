package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	localLookupTimeout  = time.Second
	publicLookupTimeout = 2 * time.Second
)

// publicDNS are queried when the system resolver cannot find the server,
// which happens on some captive and VPN setups.
var publicDNS = []string{
	"1.1.1.1",
	"1.0.0.1",
	"2606:4700:4700::1111",
	"8.8.8.8",
	"8.8.4.4",
	"2001:4860:4860::8888",
	"9.9.9.9",
	"149.112.112.112",
	"208.67.222.222",
}

// Resolver looks a host up with the system resolver first and races the
// fallback servers if that fails.
type Resolver struct {
	Local    func(ctx context.Context, host string) ([]string, error)
	Fallback []string
	Remote   func(ctx context.Context, host, server string) ([]string, error)
}

// DefaultResolver uses the system resolver and publicDNS.
var DefaultResolver = &Resolver{
	Local:    net.DefaultResolver.LookupHost,
	Fallback: publicDNS,
	Remote:   lookupVia,
}

// Lookup resolves host to one IP address, preferring IPv4. IP literals
// are returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	lctx, cancel := context.WithTimeout(ctx, localLookupTimeout)
	ips, err := r.Local(lctx, host)
	cancel()
	if err == nil {
		if ip, ok := preferIPv4(ips); ok {
			return ip, nil
		}
	}

	return r.race(ctx, host)
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.Fallback) == 0 {
		return "", fmt.Errorf("failed to resolve %s", host)
	}

	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, publicLookupTimeout)
	defer cancel()

	results := make(chan result, len(r.Fallback))
	for _, server := range r.Fallback {
		go func(server string) {
			ips, err := r.Remote(ctx, host, server)
			ip, ok := preferIPv4(ips)
			if err == nil && !ok {
				err = errors.New("no IPs returned")
			}
			results <- result{ip: ip, err: err}
		}(server)
	}

	for range r.Fallback {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("DNS lookup for %s timed out", host)
		}
	}
	return "", fmt.Errorf("failed to resolve %s: all %d fallback servers failed", host, len(r.Fallback))
}

// DialContext resolves the address host with Lookup and dials the result.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func lookupVia(ctx context.Context, host, server string) ([]string, error) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	return r.LookupHost(ctx, host)
}

func preferIPv4(ips []string) (string, bool) {
	if len(ips) == 0 {
		return "", false
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, true
		}
	}
	return ips[0], true
}
