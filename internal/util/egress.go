// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// MaxEndpointURLLength bounds outbound endpoint URLs such as webhook targets.
const MaxEndpointURLLength = 2048

// ErrBlockedAddress is returned when an endpoint resolves to an address
// outside the public internet.
var ErrBlockedAddress = errors.New("address is not publicly routable")

// blockedPrefixes are the loopback, private, link-local, shared, documentation
// and reserved ranges outbound requests must never reach.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// IsPublicAddr reports whether addr may be dialled by outbound requests.
// IPv4-mapped IPv6 addresses are judged by their IPv4 form.
func IsPublicAddr(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// EndpointValidator checks outbound endpoint URLs before they are stored or
// used.
type EndpointValidator struct {
	Resolver Resolver
	Timeout  time.Duration
}

// ValidateEndpointURL validates rawURL with the system resolver.
func ValidateEndpointURL(rawURL string) error {
	return EndpointValidator{Resolver: net.DefaultResolver, Timeout: 5 * time.Second}.Validate(context.Background(), rawURL)
}

// Validate requires an http(s) URL without credentials whose host resolves
// only to public addresses.
func (v EndpointValidator) Validate(ctx context.Context, rawURL string) error {
	if len(rawURL) > MaxEndpointURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxEndpointURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must use http or https scheme")
	}
	if u.User != nil {
		return errors.New("URL must not embed credentials")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("URL must have a hostname")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return errors.New("localhost URLs are not allowed")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !IsPublicAddr(addr) {
			return fmt.Errorf("%s: %w", addr, ErrBlockedAddress)
		}
		return nil
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	addrs, err := v.Resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("failed to resolve hostname %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("hostname %q did not resolve to any address", host)
	}
	for _, addr := range addrs {
		if !IsPublicAddr(addr) {
			return fmt.Errorf("hostname %q resolves to %s: %w", host, addr, ErrBlockedAddress)
		}
	}
	return nil
}

// GuardedDialContext returns a DialContext for http.Transport that resolves
// the host itself and connects only to public addresses. Dialling the
// checked address closes the DNS rebinding window between check and connect.
func GuardedDialContext(dialer *net.Dialer, resolver Resolver) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		var addrs []netip.Addr
		if ip, perr := netip.ParseAddr(host); perr == nil {
			addrs = []netip.Addr{ip}
		} else if addrs, err = resolver.LookupNetIP(ctx, "ip", host); err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", host, err)
		}

		for _, ip := range addrs {
			if !IsPublicAddr(ip) {
				return nil, fmt.Errorf("dial %s (from %q): %w", ip, host, ErrBlockedAddress)
			}
		}

		err = fmt.Errorf("no addresses for %q", host)
		for _, ip := range addrs {
			conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip.Unmap().String(), port))
			if dialErr == nil {
				return conn, nil
			}
			err = dialErr
		}
		return nil, fmt.Errorf("failed to connect to %q: %w", host, err)
	}
}
