// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/taibuivan/authgate/internal/platform/constants"
)

// # Client Identification

// ProxyTrust lists the reverse proxies whose forwarding headers are believed.
//
// A direct client can put anything in X-Real-IP or X-Forwarded-For, so those
// headers are only read when the connecting peer is one of these proxies.
// A nil or empty ProxyTrust always answers with the peer address.
type ProxyTrust struct {
	prefixes []netip.Prefix
}

// NewProxyTrust parses CIDRs ("10.0.0.0/8") and bare addresses ("10.0.0.7").
func NewProxyTrust(entries []string) (*ProxyTrust, error) {
	trust := &ProxyTrust{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("middleware: invalid trusted proxy %q: %w", entry, err)
			}
			trust.prefixes = append(trust.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("middleware: invalid trusted proxy %q: %w", entry, err)
		}
		trust.prefixes = append(trust.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return trust, nil
}

func (trust *ProxyTrust) trusts(ip string) bool {
	if trust == nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trust.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the originating client address of request.
//
// Behind a trusted proxy, X-Real-IP wins; otherwise X-Forwarded-For is walked
// from the right, skipping trusted hops, and the first untrusted hop is the
// client. Anything else gets the peer address.
func (trust *ProxyTrust) ClientIP(request *http.Request) string {
	peer := RemoteIP(request)
	if !trust.trusts(peer) {
		return peer
	}

	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !trust.trusts(hop) {
				return hop
			}
		}
	}

	return peer
}

// RemoteIP is the address of the connecting peer, ignoring every header.
func RemoteIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
