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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain reads a stream to EOF, collecting the bytes of each range
// segment separately.
func drain(t *testing.T, stream BodyStream) [][]byte {
	t.Helper()
	segments := [][]byte{nil}
	buf := make([]byte, 7) // odd size to exercise partial reads
	for {
		n, err := stream.ReadChunk(buf)
		if n > 0 {
			last := len(segments) - 1
			segments[last] = append(segments[last], buf[:n]...)
		}
		if err == io.EOF {
			return segments
		}
		require.NoError(t, err)
		if n == 0 {
			segments = append(segments, nil)
		}
	}
}

func TestMemoryStreamWholeBody(t *testing.T) {
	ms := NewMemoryStream([]byte("hello world"))
	assert.Equal(t, int64(11), ms.Size())
	assert.Equal(t, int64(11), ms.TotalSize())

	segments := drain(t, ms)
	require.Len(t, segments, 1)
	assert.Equal(t, []byte("hello world"), segments[0])
}

func TestMemoryStreamRanges(t *testing.T) {
	data := []byte("0123456789abcdefghij")
	ms := NewMemoryStream(data)
	ms.SetRanges([]ByteRange{{0, 4}, {10, 14}})

	assert.Equal(t, int64(10), ms.Size())
	assert.Equal(t, int64(20), ms.TotalSize())

	segments := drain(t, ms)
	require.Len(t, segments, 2, "one zero read between ranges")
	assert.Equal(t, []byte("01234"), segments[0])
	assert.Equal(t, []byte("abcde"), segments[1])
}

func TestFileStreamRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fs, err := OpenFileStream(path)
	require.NoError(t, err)
	defer fs.Close()

	fs.SetRanges([]ByteRange{{0, 4}, {10, 14}, {95, 99}})
	assert.Equal(t, int64(15), fs.Size())
	assert.Equal(t, int64(100), fs.TotalSize())

	segments := drain(t, fs)
	require.Len(t, segments, 3)
	assert.Equal(t, content[0:5], segments[0])
	assert.Equal(t, content[10:15], segments[1])
	assert.Equal(t, content[95:100], segments[2])
}

// range slicing produces the same bytes as extracting each interval
// from the raw content
func TestFileStreamRangeEquivalence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	ranges := []ByteRange{{4, 8}, {16, 18}}
	fs, err := OpenFileStream(path)
	require.NoError(t, err)
	defer fs.Close()
	fs.SetRanges(ranges)

	segments := drain(t, fs)
	require.Len(t, segments, len(ranges))
	for i, r := range ranges {
		assert.Equal(t, content[r.Start:r.End+1], segments[i])
	}
}

func TestTempFileStreamRemovedOnClose(t *testing.T) {
	registry := NewTempFileRegistry(t.TempDir())
	tmp, err := registry.Create()
	require.NoError(t, err)
	_, err = tmp.Write([]byte("compressed bytes"))
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Len())

	stream, err := newTempFileStream(tmp, registry)
	require.NoError(t, err)
	assert.True(t, stream.Precompressed())

	segments := drain(t, stream)
	assert.Equal(t, []byte("compressed bytes"), segments[0])

	require.NoError(t, stream.Close())
	assert.NoFileExists(t, stream.Path())
	assert.Equal(t, 0, registry.Len())
}

func TestTempFileRegistrySweep(t *testing.T) {
	registry := NewTempFileRegistry(t.TempDir())
	tmp, err := registry.Create()
	require.NoError(t, err)
	tmp.Close()

	registry.Sweep()
	assert.Equal(t, 0, registry.Len())
	assert.NoFileExists(t, tmp.Name())
}
