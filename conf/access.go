// Copyright 2025 The Mercury Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conf

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IPFamily distinguishes IPv4 from IPv6 addresses.
type IPFamily int

const (
	IPv4 IPFamily = iota
	IPv6
)

// SanitizedIP is a parsed IP address or CIDR block. The address bytes
// are stored network-order in the first 4 (IPv4) or 16 (IPv6) bytes.
type SanitizedIP struct {
	Family       IPFamily
	Bytes        [16]byte
	PrefixLength int
}

// ParseClientIP parses a bare IP address string as reported by the
// listener. The prefix length is the full address width.
func ParseClientIP(s string) (SanitizedIP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return SanitizedIP{}, fmt.Errorf("invalid IP address: %s", s)
	}
	return fromNetIP(ip, -1)
}

// ParseCIDR parses an address with an optional /N prefix length,
// as used for Access exceptions in the config file.
func ParseCIDR(s string) (SanitizedIP, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SanitizedIP{}, fmt.Errorf("empty IP address")
	}

	prefixLen := -1
	if idx := strings.IndexByte(s, '/'); idx != -1 {
		n, err := strconv.Atoi(s[idx+1:])
		if err != nil || n < 0 {
			return SanitizedIP{}, fmt.Errorf("invalid prefix length in %s", s)
		}
		prefixLen = n
		s = s[:idx]
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return SanitizedIP{}, fmt.Errorf("invalid IP address: %s", s)
	}
	return fromNetIP(ip, prefixLen)
}

func fromNetIP(ip net.IP, prefixLen int) (SanitizedIP, error) {
	sip := SanitizedIP{}
	if ip4 := ip.To4(); ip4 != nil {
		sip.Family = IPv4
		copy(sip.Bytes[:4], ip4)
		if prefixLen == -1 {
			prefixLen = 32
		}
		if prefixLen > 32 {
			return SanitizedIP{}, fmt.Errorf("invalid IPv4 prefix length %d", prefixLen)
		}
	} else {
		sip.Family = IPv6
		copy(sip.Bytes[:16], ip.To16())
		if prefixLen == -1 {
			prefixLen = 128
		}
		if prefixLen > 128 {
			return SanitizedIP{}, fmt.Errorf("invalid IPv6 prefix length %d", prefixLen)
		}
	}
	sip.PrefixLength = prefixLen
	return sip, nil
}

// FitsCIDR reports whether candidate falls within the cidr block.
// The first PrefixLength bits of both addresses must be equal.
func FitsCIDR(cidr, candidate SanitizedIP) bool {
	if cidr.Family != candidate.Family {
		return false
	}

	length := 4
	if cidr.Family == IPv6 {
		length = 16
	}

	bitsLeft := cidr.PrefixLength
	for i := 0; i < length && bitsLeft > 0; i++ {
		mask := byte(0xFF)
		if bitsLeft < 8 {
			mask = 0xFF << (8 - bitsLeft)
		}
		if cidr.Bytes[i]&mask != candidate.Bytes[i]&mask {
			return false
		}
		bitsLeft -= 8
	}
	return true
}

// Access is an allow-first or deny-first IP filter with CIDR
// exceptions. In deny-first mode exceptions grant access; in
// allow-first mode exceptions deny it.
type Access struct {
	DenyFirst  bool
	Exceptions []SanitizedIP
}

// IPAccepted reports whether the candidate IP passes the filter.
func (a *Access) IPAccepted(candidate SanitizedIP) bool {
	for _, cidr := range a.Exceptions {
		if FitsCIDR(cidr, candidate) {
			return a.DenyFirst
		}
	}
	return !a.DenyFirst
}
