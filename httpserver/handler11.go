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

import "strings"

// handle11 builds the response for an HTTP/1.1 request.
func (h *Handler) handle11(req *Request) *Response {
	res := NewResponse("HTTP/1.1")

	if req.Method == MethodUnknown {
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

	if h.applyRedirect(req, res, false) {
		return res
	}

	// OPTIONS * bypasses path checks, file resolution, and PHP
	serverWideOptions := req.Method == MethodOptions && req.RawPath == "*"

	var file *File
	if !serverWideOptions {
		if !h.pathInDocumentRoot(req, res, allowedStaticMethods11) {
			return res
		}

		file = ResolveFile(h.rewritePath(req), h.cfg)
		if !h.validateFile(req, res, file) {
			return res
		}

		if h.cfg.EnablePHPCGI && h.PHP != nil && strings.HasSuffix(file.Path, ".php") {
			h.PHP.Serve(file, req, res)
			h.injectMatchHeaders(req, res, file.RawPath)
			return res
		}
	}

	switch req.Method {
	case MethodGet, MethodHead:
		h.serveGetHead(req, res, file, true)
	case MethodOptions:
		if serverWideOptions {
			res.SetHeader("Allow", allowedMethods11)
		} else {
			res.SetHeader("Allow", allowedStaticMethods11)
		}
		res.SetStatus(204)
	default:
		// allowed method, but not for a static file
		res.SetHeader("Allow", allowedStaticMethods11)
		h.statusMaybeErrorDoc(req, res, 405)
	}

	return res
}
