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
	"errors"
	"sort"
)

// ErrRangeNotSatisfiable marks a range list that is empty or inverted
// after normalization; the handler answers 416.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// MergeByteRanges normalizes the parsed ranges against the stream size
// and merges them into a sorted list of non-overlapping, non-adjacent
// intervals within [0, size-1]. Suffix ranges (-N) take the last
// min(N, size) bytes; open ranges (N-) and ends past the stream are
// clamped to size-1.
func MergeByteRanges(ranges []ByteRange, size int64) ([]ByteRange, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	if size == 0 {
		return nil, ErrRangeNotSatisfiable
	}

	normalized := make([]ByteRange, 0, len(ranges))
	for _, r := range ranges {
		switch {
		case r.Start == -1:
			// bytes=-N
			length := r.End
			if length > size {
				length = size
			}
			r = ByteRange{Start: size - length, End: size - 1}
		case r.End == -1 || r.End >= size:
			// bytes=N- or end past the stream
			r = ByteRange{Start: r.Start, End: size - 1}
		}
		if r.Start > r.End || r.Start >= size || r.End-r.Start+1 <= 0 {
			return nil, ErrRangeNotSatisfiable
		}
		normalized = append(normalized, r)
	}

	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].Start < normalized[j].Start
	})

	merged := normalized[:1]
	for _, r := range normalized[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
		} else {
			merged = append(merged, r)
		}
	}
	return merged, nil
}
