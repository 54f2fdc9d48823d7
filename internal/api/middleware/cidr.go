// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"
	"net"
	"strings"
)

// ParseCIDRs parses a list of CIDR blocks or bare IP addresses into
// IPNets, treating a bare IP as a /32 (or /128 for IPv6) network.
func ParseCIDRs(cidrs []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}

		if _, n, err := net.ParseCIDR(c); err == nil {
			nets = append(nets, n)
			continue
		}

		ip := net.ParseIP(c)
		if ip == nil {
			return nil, fmt.Errorf("invalid CIDR or IP: %s", c)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

// IsIPAllowed reports whether ip falls inside any of subnets.
func IsIPAllowed(ip net.IP, subnets []*net.IPNet) bool {
	ip16 := ip.To16()
	if ip16 == nil {
		return false
	}
	for _, n := range subnets {
		if n.Contains(ip16) {
			return true
		}
	}
	return false
}
