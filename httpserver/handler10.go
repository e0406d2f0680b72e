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

// handle10 builds the response for an HTTP/1.0 request. The allowed
// method set is GET, HEAD, and POST; redirect statuses above 302 fall
// back to 302.
func (h *Handler) handle10(req *Request) *Response {
	res := NewResponse("HTTP/1.0")

	switch req.Method {
	case MethodGet, MethodHead, MethodPost:
	default:
		h.statusMaybeErrorDoc(req, res, 501)
		return res
	}

	if req.Has400Error() {
		h.statusMaybeErrorDoc(req, res, 400)
		return res
	}

	denied, internalErr := h.checkAccess(req)
	if internalErr {
		h.statusMaybeErrorDoc(req, res, 500)
		return res
	}
	if denied {
		h.statusMaybeErrorDoc(req, res, 403)
		return res
	}

	if req.ContentTooLarge {
		h.statusMaybeErrorDoc(req, res, 413)
		return res
	}

	if h.applyRedirect(req, res, true) {
		return res
	}

	if !h.pathInDocumentRoot(req, res, allowedStaticMethods10) {
		return res
	}

	file := ResolveFile(h.rewritePath(req), h.cfg)
	if !h.validateFile(req, res, file) {
		return res
	}

	switch req.Method {
	case MethodGet, MethodHead:
		h.serveGetHead(req, res, file, false)
	default:
		res.SetHeader("Allow", allowedStaticMethods10)
		h.statusMaybeErrorDoc(req, res, 405)
	}

	return res
}
