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

package httpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeByteRanges(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []ByteRange
		size   int64
		want   []ByteRange
		is416  bool
	}{
		{
			name:  "single",
			input: []ByteRange{{0, 4}},
			size:  100,
			want:  []ByteRange{{0, 4}},
		},
		{
			name:  "disjoint stay separate",
			input: []ByteRange{{0, 4}, {10, 14}},
			size:  100,
			want:  []ByteRange{{0, 4}, {10, 14}},
		},
		{
			name:  "overlapping merge",
			input: []ByteRange{{0, 10}, {5, 20}},
			size:  100,
			want:  []ByteRange{{0, 20}},
		},
		{
			name:  "adjacent merge",
			input: []ByteRange{{0, 4}, {5, 9}},
			size:  100,
			want:  []ByteRange{{0, 9}},
		},
		{
			name:  "unsorted input",
			input: []ByteRange{{50, 59}, {0, 9}},
			size:  100,
			want:  []ByteRange{{0, 9}, {50, 59}},
		},
		{
			name:  "open range clamps to end",
			input: []ByteRange{{90, -1}},
			size:  100,
			want:  []ByteRange{{90, 99}},
		},
		{
			name:  "end past size clamps",
			input: []ByteRange{{90, 1000}},
			size:  100,
			want:  []ByteRange{{90, 99}},
		},
		{
			name:  "suffix range",
			input: []ByteRange{{-1, 10}},
			size:  100,
			want:  []ByteRange{{90, 99}},
		},
		{
			name:  "oversized suffix clamps to whole stream",
			input: []ByteRange{{-1, 1000}},
			size:  100,
			want:  []ByteRange{{0, 99}},
		},
		{
			name:  "start past size",
			input: []ByteRange{{100, 110}},
			size:  100,
			is416: true,
		},
		{
			name:  "inverted",
			input: []ByteRange{{10, 5}},
			size:  100,
			is416: true,
		},
		{
			name:  "empty stream",
			input: []ByteRange{{0, 0}},
			size:  0,
			is416: true,
		},
		{
			name:  "no ranges",
			input: nil,
			size:  100,
			want:  nil,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MergeByteRanges(tc.input, tc.size)
			if tc.is416 {
				require.ErrorIs(t, err, ErrRangeNotSatisfiable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// merged lists are sorted, non-overlapping, non-adjacent, and in bounds
func TestMergeByteRangesInvariants(t *testing.T) {
	input := []ByteRange{{30, 40}, {0, 10}, {11, 15}, {35, 60}, {-1, 5}, {90, -1}}
	const size = int64(100)

	merged, err := MergeByteRanges(input, size)
	require.NoError(t, err)

	for i, r := range merged {
		assert.GreaterOrEqual(t, r.Start, int64(0))
		assert.Less(t, r.End, size)
		assert.LessOrEqual(t, r.Start, r.End)
		if i > 0 {
			assert.Greater(t, r.Start, merged[i-1].End+1)
		}
	}
}
