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
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// serveGetHead fills res for a GET or HEAD of the resolved file:
// content negotiation, conditional GET, body stream, per-Match header
// injection, and (when allowRanges) byte-range slicing.
func (h *Handler) serveGetHead(req *Request, res *Response, file *File, allowRanges bool) {
	if !req.MIMEAccepted(file.MIME) {
		h.statusMaybeErrorDoc(req, res, 406)
		return
	}

	if since, ok := req.Header("If-Modified-Since"); ok && !file.IsDirectory {
		if clientTime, err := parseHTTPTime(since); err == nil {
			if !file.ModTime.Truncate(time.Second).After(clientTime) {
				res.SetStatus(304)
				return
			}
		}
	}

	var body BodyStream
	if file.IsDirectory {
		listing, err := directoryListing(file.Path, file.RawPath)
		if err != nil {
			h.logger.Error("generating directory listing",
				zap.String("path", file.Path), zap.Error(err))
			h.statusMaybeErrorDoc(req, res, 500)
			return
		}
		body = NewMemoryStream([]byte(listing))
	} else {
		var err error
		body, err = file.OpenBody()
		if err != nil {
			h.logger.Error("opening response body",
				zap.String("path", file.Path), zap.Error(err))
			h.statusMaybeErrorDoc(req, res, 500)
			return
		}
		res.SetHeader("Last-Modified", formatHTTPTime(file.ModTime))
	}

	res.SetBodyStream(body)
	res.SetStatus(200)

	contentType := file.MIME
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if res.ContentLength() > 0 {
		res.SetHeader("Content-Type", contentType)
	}

	h.injectMatchHeaders(req, res, file.RawPath)

	if allowRanges && len(req.ByteRanges) > 0 {
		h.applyRanges(req, res, contentType)
	}
}

// applyRanges merges the requested ranges against the body and frames
// the response as 206 (single range or multipart/byteranges).
func (h *Handler) applyRanges(req *Request, res *Response, contentType string) {
	body := res.Body()
	merged, err := MergeByteRanges(req.ByteRanges, body.TotalSize())
	if err != nil {
		size := body.TotalSize()
		res.SetBodyStream(nil)
		h.statusMaybeErrorDoc(req, res, 416)
		res.SetHeader("Content-Range", fmt.Sprintf("bytes */%d", size))
		return
	}
	if merged == nil {
		return
	}

	body.SetRanges(merged)
	res.SetStatus(206)
	if len(merged) == 1 {
		res.SetHeader("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", merged[0].Start, merged[0].End, body.TotalSize()))
		return
	}

	res.boundary = uuid.NewString()
	res.partContentType = contentType
	res.SetHeader("Content-Type", "multipart/byteranges; boundary="+res.boundary)
}
