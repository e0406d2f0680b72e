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

// handle09 builds the response for an HTTP/0.9 simple request. The
// response is a bare body: no status line and no headers, so errors
// surface only as the error document.
func (h *Handler) handle09(req *Request) *Response {
	res := NewResponse("HTTP/0.9")

	if !h.pathInDocumentRoot(req, res, "") {
		return res
	}

	file := ResolveFile(req.Path, h.cfg)
	if !h.validateFile(req, res, file) {
		return res
	}

	if req.Method != MethodGet {
		res.LoadErrorDoc(405)
		return res
	}

	if !req.MIMEAccepted(file.MIME) {
		res.LoadErrorDoc(406)
		return res
	}

	var body BodyStream
	var err error
	if file.IsDirectory {
		var listing string
		listing, err = directoryListing(file.Path, file.RawPath)
		body = NewMemoryStream([]byte(listing))
	} else {
		body, err = file.OpenBody()
	}
	if err != nil {
		res.LoadErrorDoc(500)
		return res
	}

	res.SetBodyStream(body)
	res.SetStatus(200)
	return res
}
