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
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mercury-httpd/mercury/conf"
	"github.com/mercury-httpd/mercury/metrics"
)

// startTestServer binds an ephemeral plain-text listener over cfg.
func startTestServer(t *testing.T, cfg *conf.Config) *Server {
	t.Helper()
	pool := NewWorkerPool(2)
	handler := NewHandler(cfg, zap.NewNop(), NewTempFileRegistry(cfg.TmpDir))
	srv := NewServer(cfg, handler, pool, metrics.New(),
		"tcp4", "127.0.0.1", 0, false, nil, zap.NewNop(), zap.NewNop())
	require.NoError(t, srv.Listen())
	go srv.AcceptLoop()
	t.Cleanup(func() {
		srv.Close()
		pool.Stop()
	})
	return srv
}

type testResponse struct {
	statusLine string
	headers    map[string]string
	body       []byte
}

func readTestResponse(t *testing.T, br *bufio.Reader) *testResponse {
	t.Helper()
	statusLine, err := br.ReadString('\n')
	require.NoError(t, err)

	res := &testResponse{
		statusLine: strings.TrimRight(statusLine, "\r\n"),
		headers:    make(map[string]string),
	}
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ": ")
		require.True(t, found, "header line %q", line)
		res.headers[name] = value
	}

	length, err := strconv.Atoi(res.headers["Content-Length"])
	require.NoError(t, err)
	res.body = make([]byte, length)
	_, err = io.ReadFull(br, res.body)
	require.NoError(t, err)
	return res
}

func TestKeepAliveSession(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.KeepAliveMaxRequests = 2
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	// two pipelined requests on one connection
	_, err = conn.Write([]byte(
		"GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n" +
			"GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	first := readTestResponse(t, br)
	assert.Equal(t, "HTTP/1.1 200 OK", first.statusLine)
	assert.Equal(t, "keep-alive", first.headers["Connection"])
	assert.Contains(t, first.headers["Keep-Alive"], "max=2")
	assert.Equal(t, "hi\n", string(first.body))

	// the counter reaches zero: the second response closes
	second := readTestResponse(t, br)
	assert.Equal(t, "close", second.headers["Connection"])
	assert.Equal(t, "hi\n", string(second.body))

	_, err = br.ReadByte()
	assert.Equal(t, io.EOF, err, "server closes after the final response")
}

func TestConnectionCloseRequested(t *testing.T) {
	cfg := newTestConfig(t)
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	_, err = conn.Write([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	res := readTestResponse(t, br)
	assert.Equal(t, "close", res.headers["Connection"])
	_, err = br.ReadByte()
	assert.Equal(t, io.EOF, err)
}

func TestHTTP10DefaultsToClose(t *testing.T) {
	cfg := newTestConfig(t)
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	_, err = conn.Write([]byte("GET /index.html HTTP/1.0\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	res := readTestResponse(t, br)
	assert.Equal(t, "HTTP/1.0 200 OK", res.statusLine)
	assert.Equal(t, "close", res.headers["Connection"])
}

func TestOversizedHeadersGet431(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.RequestBufferSize = 256
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 512) + "\r\n"))
	require.NoError(t, err)

	res := readTestResponse(t, br)
	assert.Equal(t, "HTTP/1.1 431 Request Header Fields Too Large", res.statusLine)
}

func TestOversizedStartLineGets414(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.RequestBufferSize = 128
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	_, err = conn.Write([]byte("GET /" + strings.Repeat("a", 512)))
	require.NoError(t, err)

	res := readTestResponse(t, br)
	assert.Equal(t, "HTTP/1.1 414 URI Too Long", res.statusLine)
}

func TestMalformedFramingClosesSilently(t *testing.T) {
	cfg := newTestConfig(t)
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// LF-only header line: framing violation, no response
	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\nAccept: text/html\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestRequestBodyIsRead(t *testing.T) {
	cfg := newTestConfig(t)
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	body := "name=value"
	_, err = conn.Write([]byte("POST /index.html HTTP/1.1\r\nHost: x\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body))
	require.NoError(t, err)

	// POST on a static file is 405, but the body was consumed and the
	// connection stays in frame
	res := readTestResponse(t, br)
	assert.Equal(t, "HTTP/1.1 405 Method Not Allowed", res.statusLine)
	assert.Equal(t, "keep-alive", res.headers["Connection"])
}

func TestOversizedBodyGets413AndCloses(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.MaxRequestBody = 8
	srv := startTestServer(t, cfg)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	br := bufio.NewReader(conn)

	body := strings.Repeat("x", 64)
	_, err = conn.Write([]byte("POST /index.html HTTP/1.1\r\nHost: x\r\nContent-Length: " +
		strconv.Itoa(len(body)) + "\r\n\r\n" + body))
	require.NoError(t, err)

	res := readTestResponse(t, br)
	assert.Equal(t, "HTTP/1.1 413 Content Too Large", res.statusLine)
	assert.Equal(t, "close", res.headers["Connection"])
}
