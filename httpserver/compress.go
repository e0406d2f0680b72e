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

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Content encodings in server preference order. Brotli is offered only
// over TLS.
const (
	EncodingBrotli  = "br"
	EncodingZstd    = "zstd"
	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
)

// selectEncoding picks the first client-accepted encoding from the
// server's preference order, or "" when none apply.
func selectEncoding(req *Request) string {
	if req.UsesTLS && req.EncodingAccepted(EncodingBrotli) {
		return EncodingBrotli
	}
	for _, enc := range []string{EncodingZstd, EncodingGzip, EncodingDeflate} {
		if req.EncodingAccepted(enc) {
			return enc
		}
	}
	return ""
}

// newEncoder returns a streaming encoder writing compressed output to w.
func newEncoder(encoding string, w io.Writer) (io.WriteCloser, error) {
	switch encoding {
	case EncodingGzip:
		return gzip.NewWriter(w), nil
	case EncodingDeflate:
		return zlib.NewWriter(w), nil
	case EncodingBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case EncodingZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
	return nil, fmt.Errorf("unknown encoding %q", encoding)
}

// compressBody replaces the response body with a pre-compressed temp
// file stream so the final Content-Length is known before sending.
// Bodies below minSize, pre-compressed streams, and range responses
// are left alone.
func (h *Handler) compressBody(req *Request, res *Response) error {
	if res.body == nil || res.body.Precompressed() || len(res.body.Ranges()) > 0 {
		return nil
	}
	if res.body.Size() < int64(h.cfg.MinResponseCompressionSize) {
		return nil
	}
	encoding := selectEncoding(req)
	if encoding == "" {
		return nil
	}

	tmp, err := h.tempFiles.Create()
	if err != nil {
		return fmt.Errorf("creating temp file: %v", err)
	}
	if err := h.compressToFile(res.body, encoding, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		h.tempFiles.Remove(tmp.Name())
		return err
	}

	stream, err := newTempFileStream(tmp, h.tempFiles)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		h.tempFiles.Remove(tmp.Name())
		return err
	}

	res.body.Close()
	res.body = stream
	res.SetHeader("Content-Encoding", encoding)
	return nil
}

func (h *Handler) compressToFile(body BodyStream, encoding string, tmp *os.File) error {
	enc, err := newEncoder(encoding, tmp)
	if err != nil {
		return err
	}

	buf := make([]byte, h.cfg.ResponseBufferSize)
	for {
		n, readErr := body.ReadChunk(buf)
		if n > 0 {
			if _, err := enc.Write(buf[:n]); err != nil {
				enc.Close()
				return fmt.Errorf("compressing response body: %v", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			enc.Close()
			return fmt.Errorf("reading response body: %v", readErr)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing compression: %v", err)
	}
	return nil
}
