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

package mercury

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionOutdated(t *testing.T) {
	for _, tc := range []struct {
		current, latest string
		want            bool
	}{
		{"1.0.0", "1.0.0", false},
		{"1.0.0", "1.0.1", true},
		{"1.0.0", "1.1.0", true},
		{"1.0.0", "2.0.0", true},
		{"2.0.0", "1.9.9", false},
		{"1.2.0", "1.1.9", false},
	} {
		got, err := versionOutdated(tc.current, tc.latest)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s vs %s", tc.current, tc.latest)
	}
}

func TestVersionOutdatedMalformed(t *testing.T) {
	_, err := versionOutdated("1.0", "1.0.0")
	assert.Error(t, err)
	_, err = versionOutdated("1.0.0", "one.two.three")
	assert.Error(t, err)
}
