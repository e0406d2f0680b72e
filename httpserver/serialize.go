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
	"strconv"
	"strings"
	"time"

	"github.com/mercury-httpd/mercury/conf"
)

// WriteResponse serializes res to w. HTTP/0.9 responses are the bare
// body; 1.0 and 1.1 responses get a status line and CRLF-delimited
// headers. For HEAD, 204, and 304 the body is omitted but
// Content-Length and Content-Type are retained as if it were sent.
func WriteResponse(w io.Writer, res *Response, omitBody bool, bufSize int) error {
	if res.Proto == "HTTP/0.9" {
		if omitBody || res.body == nil {
			return nil
		}
		return streamPlain(w, res.body, bufSize)
	}

	suppressBody := omitBody || res.Status == 204 || res.Status == 304 || res.Status/100 == 1

	multiRange := res.body != nil && len(res.body.Ranges()) > 1 && res.boundary != ""

	length := res.ContentLength()
	if multiRange {
		length = multipartLength(res)
	}

	if _, ok := res.Header("Server"); !ok {
		res.SetHeader("Server", conf.ServerName)
	}
	if _, ok := res.Header("Date"); !ok {
		res.SetHeader("Date", formatHTTPTime(time.Now()))
	}
	chunked := false
	if length >= 0 {
		res.SetHeader("Content-Length", strconv.FormatInt(length, 10))
	} else if res.Proto == "HTTP/1.1" {
		chunked = true
		res.SetHeader("Transfer-Encoding", "chunked")
	}

	var head strings.Builder
	head.WriteString(res.Proto)
	head.WriteByte(' ')
	head.WriteString(strconv.Itoa(res.Status))
	head.WriteByte(' ')
	head.WriteString(statusReason(res.Status))
	head.WriteString("\r\n")
	for _, name := range res.headerOrder {
		head.WriteString(name)
		head.WriteString(": ")
		head.WriteString(res.headers[name])
		head.WriteString("\r\n")
	}
	head.WriteString("\r\n")

	if _, err := io.WriteString(w, head.String()); err != nil {
		return err
	}
	if suppressBody || res.body == nil {
		return nil
	}

	switch {
	case multiRange:
		return streamMultipart(w, res, bufSize)
	case chunked:
		return streamChunked(w, res.body, bufSize)
	default:
		return streamPlain(w, res.body, bufSize)
	}
}

func streamPlain(w io.Writer, body BodyStream, bufSize int) error {
	buf := make([]byte, bufSize)
	for {
		n, err := body.ReadChunk(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func streamChunked(w io.Writer, body BodyStream, bufSize int) error {
	buf := make([]byte, bufSize)
	for {
		n, err := body.ReadChunk(buf)
		if n > 0 {
			if _, werr := fmt.Fprintf(w, "%x\r\n", n); werr != nil {
				return werr
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if _, werr := io.WriteString(w, "\r\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			_, werr := io.WriteString(w, "0\r\n\r\n")
			return werr
		}
		if err != nil {
			return err
		}
	}
}

// multipart/byteranges framing

func partHeader(res *Response, r ByteRange) string {
	var b strings.Builder
	b.WriteString("\r\n--")
	b.WriteString(res.boundary)
	b.WriteString("\r\n")
	if res.partContentType != "" {
		b.WriteString("Content-Type: ")
		b.WriteString(res.partContentType)
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "Content-Range: bytes %d-%d/%d\r\n\r\n", r.Start, r.End, res.body.TotalSize())
	return b.String()
}

func multipartTrailer(res *Response) string {
	return "\r\n--" + res.boundary + "--\r\n"
}

// multipartLength computes the exact framed length so Content-Length
// can be set before streaming.
func multipartLength(res *Response) int64 {
	var total int64
	for _, r := range res.body.Ranges() {
		total += int64(len(partHeader(res, r)))
		total += r.End - r.Start + 1
	}
	return total + int64(len(multipartTrailer(res)))
}

func streamMultipart(w io.Writer, res *Response, bufSize int) error {
	ranges := res.body.Ranges()
	part := 0
	if _, err := io.WriteString(w, partHeader(res, ranges[part])); err != nil {
		return err
	}

	buf := make([]byte, bufSize)
	for {
		n, err := res.body.ReadChunk(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			_, werr := io.WriteString(w, multipartTrailer(res))
			return werr
		}
		if err != nil {
			return err
		}
		if n == 0 {
			// the stream pauses once between ranges
			part++
			if part >= len(ranges) {
				return fmt.Errorf("body stream produced more parts than ranges")
			}
			if _, werr := io.WriteString(w, partHeader(res, ranges[part])); werr != nil {
				return werr
			}
		}
	}
}
