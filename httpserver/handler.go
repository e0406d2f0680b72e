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
	"strings"

	"go.uber.org/zap"

	"github.com/mercury-httpd/mercury/conf"
)

const (
	allowedStaticMethods11 = "GET, HEAD, OPTIONS"
	allowedStaticMethods10 = "GET, HEAD"
	allowedMethods11       = "GET, HEAD, OPTIONS, POST, PUT, PATCH, DELETE"
)

// PHPGateway hands a request for a .php target to the CGI bridge.
type PHPGateway interface {
	Serve(file *File, req *Request, res *Response)
}

// Handler builds responses. It is shared by all workers; all of its
// state is read-only after construction.
type Handler struct {
	cfg       *conf.Config
	logger    *zap.Logger
	tempFiles *TempFileRegistry

	// PHP is non-nil when the CGI bridge is enabled.
	PHP PHPGateway
}

// NewHandler returns a response builder over the given config.
func NewHandler(cfg *conf.Config, logger *zap.Logger, tempFiles *TempFileRegistry) *Handler {
	return &Handler{cfg: cfg, logger: logger, tempFiles: tempFiles}
}

// GenResponse dispatches the request to its version handler and
// applies compression selection to the result.
func (h *Handler) GenResponse(req *Request) *Response {
	var res *Response
	switch {
	case req.Proto == "HTTP/1.1":
		res = h.handle11(req)
	case req.Proto == "HTTP/1.0" && h.cfg.EnableLegacyHTTP:
		res = h.handle10(req)
	case req.Proto == "HTTP/0.9" && h.cfg.EnableLegacyHTTP && !req.Explicit09:
		res = h.handle09(req)
	default:
		res = NewResponse("HTTP/1.1")
		h.statusMaybeErrorDoc(req, res, 505)
	}

	// compression is skipped for OPTIONS; pre-compressed and ranged
	// bodies are skipped inside compressBody
	if req.Method != MethodOptions && req.Proto != "HTTP/0.9" {
		if err := h.compressBody(req, res); err != nil {
			h.logger.Error("response compression failed", zap.Error(err))
			res.Close()
			res = NewResponse(res.Proto)
			h.statusMaybeErrorDoc(req, res, 500)
		}
	}
	return res
}

// statusMaybeErrorDoc sets the status and, when the client accepts
// HTML, renders the error document body.
func (h *Handler) statusMaybeErrorDoc(req *Request, res *Response, status int) {
	res.SetStatus(status)
	if req.MIMEAccepted("text/html") {
		res.LoadErrorDoc(status)
	}
}

// checkAccess evaluates every applicable Match's access filter against
// the client IP. It returns denied on the first failing filter, or
// internalErr when the client IP cannot be parsed.
func (h *Handler) checkAccess(req *Request) (denied, internalErr bool) {
	if len(h.cfg.Matches) == 0 {
		return false, false
	}
	sip, err := conf.ParseClientIP(req.IP)
	if err != nil {
		h.logger.Error("invalid client IP while checking access", zap.String("ip", req.IP))
		return false, true
	}
	path := req.QuerylessPath()
	for _, m := range h.cfg.Matches {
		if m.Access == nil || !m.Applies(path, req.Headers) {
			continue
		}
		if !m.Access.IPAccepted(sip) {
			return true, false
		}
	}
	return false, false
}

// applyRedirect checks the ordered redirect rules against the
// query-stripped decoded path. HTTP/1.0 clamps any status above 302.
func (h *Handler) applyRedirect(req *Request, res *Response, clampFor10 bool) bool {
	path := req.QuerylessPath()
	for _, rule := range h.cfg.Redirects {
		location, ok := rule.Apply(path)
		if !ok {
			continue
		}
		status := rule.Status
		if clampFor10 && status > 302 {
			h.logger.Error("HTTP/1.0 falling back to 302 status",
				zap.Int("configured", status))
			status = 302
		}
		res.SetStatus(status)
		res.SetHeader("Location", location)
		return true
	}
	return false
}

// rewritePath applies the ordered rewrite rules to the decoded path,
// first match wins. The query string is preserved.
func (h *Handler) rewritePath(req *Request) string {
	path := req.Path
	query := ""
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		query = path[idx:]
		path = path[:idx]
	}
	for _, rule := range h.cfg.Rewrites {
		if rewritten, ok := rule.Apply(path); ok {
			return rewritten + query
		}
	}
	return path + query
}

// pathInDocumentRoot rejects paths that do not begin with / or that
// contain dot-dot segments before resolution is attempted.
func (h *Handler) pathInDocumentRoot(req *Request, res *Response, allowedMethods string) bool {
	queryless := req.QuerylessPath()
	if len(req.Path) == 0 || req.Path[0] != '/' || strings.Contains(queryless, "..") {
		res.SetHeader("Allow", allowedMethods)
		h.statusMaybeErrorDoc(req, res, 400)
		return false
	}
	return true
}

// validateFile turns resolver outcomes into their response statuses.
func (h *Handler) validateFile(req *Request, res *Response, file *File) bool {
	if file.IOFailure {
		h.statusMaybeErrorDoc(req, res, 500)
		return false
	}
	if file.IsLinked {
		h.statusMaybeErrorDoc(req, res, 403)
		return false
	}
	if file.IsDirectory {
		for _, m := range h.cfg.Matches {
			if !m.ShowDirectoryIndexes && m.Applies(file.RawPath, req.Headers) {
				h.statusMaybeErrorDoc(req, res, 403)
				return false
			}
		}
	}
	if !file.Exists {
		h.statusMaybeErrorDoc(req, res, 404)
		return false
	}
	return true
}

// injectMatchHeaders applies per-Match header injection for every
// applicable rule.
func (h *Handler) injectMatchHeaders(req *Request, res *Response, path string) {
	for _, m := range h.cfg.Matches {
		if !m.Applies(path, req.Headers) {
			continue
		}
		for name, value := range m.Headers {
			res.SetHeader(name, value)
		}
	}
}
