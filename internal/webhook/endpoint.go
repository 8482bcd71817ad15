// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// MaxEndpointLength bounds the length of an endpoint URL.
const MaxEndpointLength = 2048

// Reserved ranges not covered by the netip.Addr predicates.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
}

// errBlockedAddress is returned for endpoints on private or reserved networks.
var errBlockedAddress = errors.New("private or reserved address")

// resolver is satisfied by *net.Resolver.
type resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || addr.IsUnspecified() || addr.IsLoopback() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return true
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// lookup resolves host, accepting literal addresses without a query.
func lookup(ctx context.Context, r resolver, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}
	addrs, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%q has no addresses", host)
	}
	return addrs, nil
}

// checkEndpoint rejects endpoint URLs that are not absolute http(s) or
// that resolve to a private or reserved address.
func checkEndpoint(ctx context.Context, r resolver, raw string) error {
	if len(raw) > MaxEndpointLength {
		return fmt.Errorf("endpoint longer than %d characters", MaxEndpointLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint scheme %q is not http or https", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("endpoint has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%s: %w", host, errBlockedAddress)
	}

	addrs, err := lookup(ctx, r, host)
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if blockedAddr(a) {
			return fmt.Errorf("%s resolves to %s: %w", host, a, errBlockedAddress)
		}
	}
	return nil
}

// safeDialContext resolves the target itself and dials only public
// addresses, so DNS answers cannot change between check and connect.
func safeDialContext(dialer *net.Dialer, r resolver) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", address, err)
		}
		addrs, err := lookup(ctx, r, host)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			if blockedAddr(a) {
				return nil, fmt.Errorf("dial %s (%s): %w", host, a, errBlockedAddress)
			}
		}

		var lastErr error
		for _, a := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("dial %s: %w", host, lastErr)
	}
}
