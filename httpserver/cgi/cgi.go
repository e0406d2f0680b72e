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

// Package cgi bridges PHP requests to a php-cgi process over a CGI/1.1
// environment: the request body streams to the child's stdin, and the
// child's header/body reply becomes the response.
package cgi

import (
	"bytes"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mercury-httpd/mercury/conf"
	"github.com/mercury-httpd/mercury/httpserver"
)

// Gateway spawns one PHP process per request.
type Gateway struct {
	cfg    *conf.Config
	logger *zap.Logger
}

// New returns a gateway running the configured php-cgi executable.
func New(cfg *conf.Config, logger *zap.Logger) *Gateway {
	return &Gateway{cfg: cfg, logger: logger}
}

// Serve runs the script and fills res from the CGI reply. A spawn
// failure answers 502.
func (g *Gateway) Serve(file *httpserver.File, req *httpserver.Request, res *httpserver.Response) {
	env := g.buildEnv(file, req)

	cmd := exec.Command(g.cfg.PHPCGIPath)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(req.Body)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil && stdout.Len() == 0 {
		g.logger.Error("failed to spawn PHP CGI process",
			zap.String("script", file.Path), zap.Error(err))
		res.SetStatus(502)
		return
	}
	if stderr.Len() > 0 {
		// script diagnostics go to the error log, not the response
		g.logger.Error("PHP CGI stderr",
			zap.String("script", file.Path),
			zap.String("output", stderr.String()))
	}

	parseReply(stdout.Bytes(), res)
}

// buildEnv assembles the CGI/1.1 environment block.
func (g *Gateway) buildEnv(file *httpserver.File, req *httpserver.Request) []string {
	envs := make(map[string]string)

	if auth, ok := req.Header("Authorization"); ok {
		authType, remoteUser, found := strings.Cut(auth, " ")
		envs["AUTH_TYPE"] = authType
		if found {
			envs["REMOTE_USER"] = remoteUser
		} else {
			envs["REMOTE_USER"] = ""
		}
	} else {
		envs["AUTH_TYPE"] = ""
		envs["REMOTE_USER"] = ""
	}

	if len(req.Body) > 0 {
		envs["CONTENT_LENGTH"] = strconv.Itoa(len(req.Body))
		if contentType, ok := req.Header("Content-Type"); ok {
			envs["CONTENT_TYPE"] = contentType
		}
	}

	envs["GATEWAY_INTERFACE"] = "CGI/1.1"
	envs["PATH_INFO"] = ""
	envs["PATH_TRANSLATED"] = ""
	envs["QUERY_STRING"] = strings.TrimPrefix(file.Query, "?")

	envs["REMOTE_ADDR"] = req.IP
	envs["REMOTE_HOST"] = req.IP
	envs["REMOTE_IDENT"] = ""

	// the script sees GET for a HEAD request; the body is suppressed
	// on the outbound side
	method := req.MethodStr
	if req.Method == httpserver.MethodHead {
		method = "GET"
	}
	envs["REQUEST_METHOD"] = method
	envs["REQUEST_URI"] = file.RawPath

	envs["SCRIPT_FILENAME"] = file.Path
	envs["SCRIPT_NAME"] = file.RawPath

	host, _ := req.Header("Host")
	envs["SERVER_NAME"] = host
	port := g.cfg.Port
	if req.UsesTLS {
		port = g.cfg.TLSPort
	}
	envs["SERVER_PORT"] = strconv.Itoa(port)
	envs["SERVER_PROTOCOL"] = req.Proto
	envs["SERVER_SOFTWARE"] = "Mercury/" + conf.Version

	if req.UsesTLS {
		envs["HTTPS"] = "1"
	} else {
		envs["HTTPS"] = ""
	}
	envs["REDIRECT_STATUS"] = "200"
	envs["DOCUMENT_ROOT"] = g.cfg.DocumentRoot

	for name, value := range req.Headers {
		key := "HTTP_" + strings.ReplaceAll(name, "-", "_")
		switch key {
		case "HTTP_AUTHORIZATION", "HTTP_CONTENT_LENGTH", "HTTP_CONTENT_TYPE":
			continue
		}
		envs[key] = value
	}

	keys := make([]string, 0, len(envs))
	for k := range envs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	block := make([]string, 0, len(keys))
	for _, k := range keys {
		block = append(block, k+"="+envs[k])
	}
	return block
}

// phpDefaultContentType is what php-cgi emits when the script never
// set a Content-Type; it triggers inference from the body.
const phpDefaultContentType = "text/html; charset=UTF-8"

// parseReply splits the CGI output into headers and body and loads
// them onto the response.
func parseReply(reply []byte, res *httpserver.Response) {
	headerEnd := bytes.Index(reply, []byte("\r\n\r\n"))
	sepLen := 4
	if headerEnd == -1 {
		headerEnd = bytes.Index(reply, []byte("\n\n"))
		sepLen = 2
	}

	if headerEnd == -1 {
		// no header block; the whole reply is the body
		if len(reply) == 0 {
			res.SetStatus(204)
			return
		}
		res.SetStatus(200)
		res.SetBodyStream(httpserver.NewMemoryStream(reply))
		res.SetHeader("Content-Type", inferContentType(reply))
		return
	}

	res.SetStatus(200)
	for _, line := range strings.Split(string(reply[:headerEnd]), "\n") {
		line = strings.TrimSuffix(line, "\r")
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "Status") {
			if status, err := strconv.Atoi(strings.Fields(value)[0]); err == nil {
				res.SetStatus(status)
			}
			continue
		}
		res.SetHeader(name, value)
	}

	body := reply[headerEnd+sepLen:]
	if len(body) == 0 {
		res.SetStatus(204)
		res.DelHeader("Content-Type")
		return
	}

	res.SetBodyStream(httpserver.NewMemoryStream(body))
	if contentType, ok := res.Header("Content-Type"); !ok || contentType == phpDefaultContentType {
		res.SetHeader("Content-Type", inferContentType(body))
	}
}

// inferContentType guesses a MIME type for replies whose script never
// declared one.
func inferContentType(body []byte) string {
	switch {
	case body[0] == '{' || body[0] == '[':
		return "application/json"
	case body[0] == '<':
		if bytes.Contains(body, []byte("<html")) {
			return "text/html"
		}
		return "application/xml"
	case mostlyASCII(body):
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

func mostlyASCII(body []byte) bool {
	printable := 0
	for _, c := range body {
		if c == '\t' || c == '\n' || c == '\r' || (c >= 0x20 && c < 0x7F) {
			printable++
		}
	}
	return printable*10 >= len(body)*9
}
