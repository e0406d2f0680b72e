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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCIDR(t *testing.T) {
	for _, tc := range []struct {
		input     string
		family    IPFamily
		prefixLen int
		wantErr   bool
	}{
		{"10.0.0.0/8", IPv4, 8, false},
		{"192.168.1.1", IPv4, 32, false},
		{"2001:db8::/32", IPv6, 32, false},
		{"::1", IPv6, 128, false},
		{"10.0.0.0/33", 0, 0, true},
		{"2001:db8::/129", 0, 0, true},
		{"10.0.0.0/-1", 0, 0, true},
		{"not-an-ip", 0, 0, true},
		{"", 0, 0, true},
	} {
		sip, err := ParseCIDR(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.family, sip.Family, tc.input)
		assert.Equal(t, tc.prefixLen, sip.PrefixLength, tc.input)
	}
}

func TestFitsCIDR(t *testing.T) {
	cidr := func(s string) SanitizedIP {
		sip, err := ParseCIDR(s)
		require.NoError(t, err)
		return sip
	}

	for _, tc := range []struct {
		block     string
		candidate string
		want      bool
	}{
		{"10.0.0.0/8", "10.255.255.255", true},
		{"10.0.0.0/8", "11.0.0.0", false},
		{"192.168.1.0/24", "192.168.1.42", true},
		{"192.168.1.0/24", "192.168.2.42", false},
		// partial trailing mask: /25 splits the last octet
		{"192.168.1.0/25", "192.168.1.127", true},
		{"192.168.1.0/25", "192.168.1.128", false},
		{"0.0.0.0/0", "8.8.8.8", true},
		{"2001:db8::/32", "2001:db8:1234::1", true},
		{"2001:db8::/32", "2001:db9::1", false},
		// family mismatch never matches
		{"10.0.0.0/8", "::1", false},
		{"::/0", "10.0.0.1", false},
		// full-width prefixes require exact equality
		{"10.1.2.3/32", "10.1.2.3", true},
		{"10.1.2.3/32", "10.1.2.4", false},
	} {
		got := FitsCIDR(cidr(tc.block), cidr(tc.candidate))
		assert.Equal(t, tc.want, got, "%s vs %s", tc.block, tc.candidate)
	}
}

func TestAccessIPAccepted(t *testing.T) {
	exception, err := ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)

	inside, err := ParseClientIP("10.1.2.3")
	require.NoError(t, err)
	outside, err := ParseClientIP("192.168.1.1")
	require.NoError(t, err)

	denyFirst := &Access{DenyFirst: true, Exceptions: []SanitizedIP{exception}}
	assert.True(t, denyFirst.IPAccepted(inside), "deny-first exceptions grant access")
	assert.False(t, denyFirst.IPAccepted(outside))

	allowFirst := &Access{DenyFirst: false, Exceptions: []SanitizedIP{exception}}
	assert.False(t, allowFirst.IPAccepted(inside), "allow-first exceptions deny access")
	assert.True(t, allowFirst.IPAccepted(outside))
}

func TestParseClientIPRejectsPrefix(t *testing.T) {
	_, err := ParseClientIP("10.0.0.0/8")
	assert.Error(t, err)
}
