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
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mercury-httpd/mercury/conf"
	"github.com/mercury-httpd/mercury/metrics"
)

// bindAttempts bounds retries on transient bind errors.
const bindAttempts = 3

// Server is one listener: an (address family, port, TLS) combination
// with its own accept loop. Accepted connections are dispatched to the
// shared worker pool and handled end-to-end by a single worker.
type Server struct {
	cfg     *conf.Config
	handler *Handler
	pool    *WorkerPool
	metrics *metrics.Metrics

	network  string // "tcp4" or "tcp6"
	bindAddr string
	port     int
	useTLS   bool
	tlsConf  *tls.Config

	logger    *zap.Logger
	accessLog *zap.Logger

	ln     net.Listener
	closed atomic.Bool

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// NewServer builds a listener for the given network and port. For TLS
// servers tlsConf must hold the certificate.
func NewServer(cfg *conf.Config, handler *Handler, pool *WorkerPool, m *metrics.Metrics,
	network, bindAddr string, port int, useTLS bool, tlsConf *tls.Config,
	accessLog, errorLog *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		handler:   handler,
		pool:      pool,
		metrics:   m,
		network:   network,
		bindAddr:  bindAddr,
		port:      port,
		useTLS:    useTLS,
		tlsConf:   tlsConf,
		logger:    errorLog,
		accessLog: accessLog,
		conns:     make(map[net.Conn]struct{}),
	}
}

// String identifies the listener in logs, e.g. "IPv6 w/ TLS".
func (s *Server) String() string {
	name := "IPv4"
	if s.network == "tcp6" {
		name = "IPv6"
	}
	if s.useTLS {
		name += " w/ TLS"
	}
	return name
}

// Listen binds the socket. Transient failures are retried a bounded
// number of times; permission errors are reported distinctly.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.bindAddr, strconv.Itoa(s.port))
	lc := net.ListenConfig{Control: controlSocket(s.network == "tcp6")}

	var err error
	for attempt := 0; attempt < bindAttempts; attempt++ {
		s.ln, err = lc.Listen(context.Background(), s.network, addr)
		if err == nil {
			s.logger.Info("listening", zap.Int("port", s.port), zap.String("server", s.String()))
			return nil
		}
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("failed to bind %s port %d: permission denied, do you have sudo perms?", s, s.port)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("failed to bind %s port %d: %v", s, s.port, err)
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// AcceptLoop accepts connections until the listener closes. Each
// accepted socket is handed to the worker pool.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		s.trackConn(conn)
		s.pool.Enqueue(func() { s.handleConn(conn) })
	}
}

// Close stops the accept loop and closes every tracked connection.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()
	s.logger.Info("server socket closed", zap.String("server", s.String()))
}

func (s *Server) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

// handleConn drives the keep-alive session for one connection.
func (s *Server) handleConn(rawConn net.Conn) {
	defer s.untrackConn(rawConn)
	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	timeout := time.Duration(s.cfg.KeepAliveMaxTimeout) * time.Millisecond
	ip := clientIP(rawConn)

	conn := rawConn
	if s.useTLS {
		tlsConn := tls.Server(rawConn, s.tlsConf)
		tlsConn.SetDeadline(time.Now().Add(timeout))
		if err := tlsConn.Handshake(); err != nil {
			s.logger.Error("TLS handshake failed", zap.String("ip", s.redact(ip)), zap.Error(err))
			tlsConn.Close()
			return
		}
		tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}
	defer conn.Close()

	remaining := s.cfg.KeepAliveMaxRequests
	if !s.cfg.KeepAliveEnabled {
		remaining = 1
	}

	// bytes of a pipelined next request read past the current frame
	var leftover []byte

	for remaining > 0 {
		head, rest, errStatus, err := s.readHead(conn, leftover, timeout)
		if err != nil {
			return // timeout, peer reset, or EOF: silently close
		}
		if errStatus != 0 {
			s.respondAndClose(conn, errStatus)
			return
		}

		headers, err := ParseHeaderBlock(head)
		if err != nil {
			return
		}
		contentLength, err := ContentLength(headers)
		if err != nil {
			return
		}

		var body []byte
		var tooLarge bool
		body, leftover, tooLarge, err = s.readBody(conn, rest, contentLength, timeout)
		if err != nil {
			return
		}

		req, err := NewRequest(head, headers, body, ip, s.useTLS)
		if err != nil {
			return
		}
		req.ContentTooLarge = tooLarge

		res := s.handler.GenResponse(req)

		s.accessLog.Info("request",
			zap.String("method", req.MethodStr),
			zap.String("ip", s.redact(ip)),
			zap.String("path", req.RawPath),
			zap.Int("status", res.Status),
			zap.String("proto", req.Proto))
		s.metrics.RecordRequest(res.Status)

		// connection disposition: explicit keep-alive, or the HTTP/1.1
		// default; an oversized body leaves the framing untrustworthy
		connHeader, _ := req.Header("Connection")
		connHeader = strings.ToLower(connHeader)
		keepAlive := connHeader == "keep-alive" || (connHeader == "" && req.Proto == "HTTP/1.1")
		keepAlive = keepAlive && s.cfg.KeepAliveEnabled && !tooLarge && req.Proto != "HTTP/0.9"

		remaining--
		if keepAlive && remaining > 0 {
			res.SetHeader("Connection", "keep-alive")
			res.SetHeader("Keep-Alive", fmt.Sprintf("timeout=%d, max=%d",
				s.cfg.KeepAliveMaxTimeout/1000, s.cfg.KeepAliveMaxRequests))
		} else {
			res.SetHeader("Connection", "close")
			keepAlive = false
		}

		conn.SetWriteDeadline(time.Now().Add(timeout))
		bw := bufio.NewWriterSize(conn, s.cfg.ResponseBufferSize)
		writeErr := WriteResponse(bw, res, req.Method == MethodHead, s.cfg.ResponseBufferSize)
		if writeErr == nil {
			writeErr = bw.Flush()
		}
		res.Close()
		if writeErr != nil || !keepAlive {
			return
		}
	}
}

// readHead reads until the end of the header section, starting from
// any bytes carried over from the previous frame. errStatus is 431
// when the cap is exceeded mid-headers, or 414 when not even the start
// line fit.
func (s *Server) readHead(conn net.Conn, leftover []byte, timeout time.Duration) (head, rest []byte, errStatus int, err error) {
	buf := leftover
	chunk := make([]byte, s.cfg.RequestBufferSize)
	for {
		if idx := bytes.Index(buf, []byte("\r\n\r\n")); idx != -1 {
			return buf[:idx+4], buf[idx+4:], 0, nil
		}
		if len(buf) > s.cfg.RequestBufferSize {
			if !bytes.ContainsRune(buf, '\n') {
				return nil, nil, 414, nil
			}
			return nil, nil, 431, nil
		}

		conn.SetReadDeadline(time.Now().Add(timeout))
		n, readErr := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			return nil, nil, 0, readErr
		}
	}
}

// readBody reads the declared Content-Length body. Bytes past the
// body belong to a pipelined next request and are returned as
// leftover. Bodies above MaxRequestBody are drained only up to the
// cap and flagged; the connection closes after the 413.
func (s *Server) readBody(conn net.Conn, rest []byte, contentLength int64, timeout time.Duration) (body, leftover []byte, tooLarge bool, err error) {
	if contentLength == 0 {
		return nil, rest, false, nil
	}

	want := contentLength
	if want > int64(s.cfg.MaxRequestBody) {
		tooLarge = true
		want = int64(s.cfg.MaxRequestBody)
	}

	acc := rest
	chunk := make([]byte, s.cfg.RequestBufferSize)
	for int64(len(acc)) < want {
		conn.SetReadDeadline(time.Now().Add(timeout))
		n, readErr := conn.Read(chunk)
		if n > 0 {
			acc = append(acc, chunk[:n]...)
		}
		if readErr != nil {
			return nil, nil, tooLarge, readErr
		}
	}
	return acc[:want], acc[want:], tooLarge, nil
}

// respondAndClose sends a bare error response for framing failures
// where the headers were at least partially read.
func (s *Server) respondAndClose(conn net.Conn, status int) {
	res := NewResponse("HTTP/1.1")
	res.LoadErrorDoc(status)
	res.SetHeader("Connection", "close")
	conn.SetWriteDeadline(time.Now().Add(time.Duration(s.cfg.KeepAliveMaxTimeout) * time.Millisecond))
	bw := bufio.NewWriterSize(conn, s.cfg.ResponseBufferSize)
	if err := WriteResponse(bw, res, false, s.cfg.ResponseBufferSize); err == nil {
		bw.Flush()
	}
	res.Close()
}

func (s *Server) redact(ip string) string {
	if !s.cfg.RedactLogIPs {
		return ip
	}
	if strings.Contains(ip, ":") {
		return "::"
	}
	return "x.x.x.x"
}

// clientIP extracts the peer address without port or zone.
func clientIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	if idx := strings.IndexByte(host, '%'); idx != -1 {
		host = host[:idx]
	}
	return host
}
