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
	"fmt"
	"io"
	"os"
)

// BodyStream is a readable response body source supporting byte-range
// slicing. When ranges are attached, ReadChunk yields the bytes of
// each range in order and returns (0, nil) exactly once between
// ranges so the serializer can emit multipart boundary delimiters;
// io.EOF follows the final range.
type BodyStream interface {
	ReadChunk(p []byte) (int, error)

	// Size is the number of body bytes that will be produced: the sum
	// of attached range lengths, or the full size without ranges.
	Size() int64

	// TotalSize is the size of the underlying content, used for the
	// complete-length part of Content-Range.
	TotalSize() int64

	// Precompressed reports whether the content is already compressed
	// and must not be wrapped by a streaming compressor.
	Precompressed() bool

	// SetRanges attaches a merged, normalized range list.
	SetRanges(ranges []ByteRange)
	Ranges() []ByteRange

	Close() error
}

// rangeCursor carries the shared range bookkeeping for body streams.
type rangeCursor struct {
	ranges     []ByteRange
	rangeIndex int
	paused     bool // set when a between-ranges zero read is owed
}

func (rc *rangeCursor) SetRanges(ranges []ByteRange) { rc.ranges = ranges }
func (rc *rangeCursor) Ranges() []ByteRange          { return rc.ranges }

func rangedSize(ranges []ByteRange, fullSize int64) int64 {
	if len(ranges) == 0 {
		return fullSize
	}
	var total int64
	for _, r := range ranges {
		total += r.End - r.Start + 1
	}
	return total
}

// MemoryStream is a random-access in-memory body.
type MemoryStream struct {
	rangeCursor
	data   []byte
	offset int64
}

// NewMemoryStream returns a body stream over the given bytes.
func NewMemoryStream(data []byte) *MemoryStream {
	return &MemoryStream{data: data}
}

func (ms *MemoryStream) ReadChunk(p []byte) (int, error) {
	if len(ms.ranges) == 0 {
		if ms.offset >= int64(len(ms.data)) {
			return 0, io.EOF
		}
		n := copy(p, ms.data[ms.offset:])
		ms.offset += int64(n)
		return n, nil
	}

	if ms.rangeIndex >= len(ms.ranges) {
		return 0, io.EOF
	}
	r := ms.ranges[ms.rangeIndex]
	if ms.offset < r.Start {
		ms.offset = r.Start
	}
	if ms.offset > r.End {
		ms.rangeIndex++
		if ms.rangeIndex >= len(ms.ranges) {
			return 0, io.EOF
		}
		// pause so the caller can frame the next range
		ms.offset = ms.ranges[ms.rangeIndex].Start
		return 0, nil
	}

	remaining := r.End - ms.offset + 1
	limit := int64(len(p))
	if remaining < limit {
		limit = remaining
	}
	n := copy(p[:limit], ms.data[ms.offset:])
	ms.offset += int64(n)
	return n, nil
}

func (ms *MemoryStream) Size() int64 {
	return rangedSize(ms.ranges, int64(len(ms.data)))
}

func (ms *MemoryStream) TotalSize() int64  { return int64(len(ms.data)) }
func (ms *MemoryStream) Precompressed() bool { return false }
func (ms *MemoryStream) Close() error      { return nil }

// FileStream is a positioned file body. Temp files produced by the
// pre-compression path are removed when the stream closes.
type FileStream struct {
	rangeCursor
	f             *os.File
	path          string
	size          int64
	offset        int64
	isTemp        bool
	precompressed bool
	registry      *TempFileRegistry
}

// OpenFileStream opens path as a body stream.
func OpenFileStream(path string) (*FileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileStream{f: f, path: path, size: info.Size()}, nil
}

// newTempFileStream wraps an already-written temp file holding a
// pre-compressed body. The registry entry is dropped on Close.
func newTempFileStream(f *os.File, registry *TempFileRegistry) (*FileStream, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &FileStream{
		f:             f,
		path:          f.Name(),
		size:          info.Size(),
		isTemp:        true,
		precompressed: true,
		registry:      registry,
	}, nil
}

func (fs *FileStream) ReadChunk(p []byte) (int, error) {
	if len(fs.ranges) == 0 {
		if fs.offset >= fs.size {
			return 0, io.EOF
		}
		n, err := fs.f.ReadAt(p, fs.offset)
		if err == io.EOF && n > 0 {
			err = nil
		}
		fs.offset += int64(n)
		return n, err
	}

	if fs.rangeIndex >= len(fs.ranges) {
		return 0, io.EOF
	}
	r := fs.ranges[fs.rangeIndex]
	if fs.offset < r.Start {
		fs.offset = r.Start
	}
	if fs.offset > r.End {
		fs.rangeIndex++
		if fs.rangeIndex >= len(fs.ranges) {
			return 0, io.EOF
		}
		fs.offset = fs.ranges[fs.rangeIndex].Start
		return 0, nil
	}

	remaining := r.End - fs.offset + 1
	limit := int64(len(p))
	if remaining < limit {
		limit = remaining
	}
	n, err := fs.f.ReadAt(p[:limit], fs.offset)
	if err == io.EOF && n > 0 {
		err = nil
	}
	fs.offset += int64(n)
	return n, err
}

func (fs *FileStream) Size() int64 {
	return rangedSize(fs.ranges, fs.size)
}

func (fs *FileStream) TotalSize() int64    { return fs.size }
func (fs *FileStream) Precompressed() bool { return fs.precompressed }

// Path returns the file path backing the stream.
func (fs *FileStream) Path() string { return fs.path }

func (fs *FileStream) Close() error {
	err := fs.f.Close()
	if fs.isTemp {
		if removeErr := os.Remove(fs.path); removeErr != nil && err == nil {
			err = fmt.Errorf("removing temp file: %v", removeErr)
		}
		if fs.registry != nil {
			fs.registry.Remove(fs.path)
		}
	}
	return err
}
