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

// Package mercury wires the configuration, loggers, worker pool, and
// listeners into a running origin server and owns its lifecycle.
package mercury

import (
	"crypto/tls"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mercury-httpd/mercury/conf"
	"github.com/mercury-httpd/mercury/httpserver"
	"github.com/mercury-httpd/mercury/httpserver/cgi"
	"github.com/mercury-httpd/mercury/metrics"
)

// App is a configured Mercury instance. Configuration outlives the
// app; the app outlives every request.
type App struct {
	cfg *conf.Config

	AccessLog *zap.Logger
	ErrorLog  *zap.Logger
	Metrics   *metrics.Metrics

	pool      *httpserver.WorkerPool
	tempFiles *httpserver.TempFileRegistry
	servers   []*httpserver.Server

	group    *errgroup.Group
	stopOnce sync.Once
}

// New builds an app from the loaded config: loggers, metrics, worker
// pool, the response handler (with its PHP gateway when enabled), and
// one listener per enabled (family, port, TLS) combination.
func New(cfg *conf.Config) (*App, error) {
	accessLog, err := openLogger(cfg.AccessLogFile, false)
	if err != nil {
		return nil, err
	}
	errorLog, err := openLogger(cfg.ErrorLogFile, true)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		AccessLog: accessLog,
		ErrorLog:  errorLog,
		Metrics:   metrics.New(),
		tempFiles: httpserver.NewTempFileRegistry(cfg.TmpDir),
	}

	app.pool = httpserver.NewWorkerPool(poolSize(cfg))

	handler := httpserver.NewHandler(cfg, errorLog, app.tempFiles)
	if cfg.EnablePHPCGI {
		handler.PHP = cgi.New(cfg, errorLog)
	}

	var tlsConf *tls.Config
	if cfg.UseTLS {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading TLS certificate: %v", err)
		}
		tlsConf = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	addServer := func(network, bind string, port int, useTLS bool) {
		app.servers = append(app.servers, httpserver.NewServer(
			cfg, handler, app.pool, app.Metrics,
			network, bind, port, useTLS, tlsConf,
			accessLog, errorLog))
	}

	if cfg.IPv4Enabled {
		addServer("tcp4", cfg.BindIPv4, cfg.Port, false)
	}
	if cfg.IPv6Enabled {
		addServer("tcp6", cfg.BindIPv6, cfg.Port, false)
	}
	if cfg.UseTLS {
		if cfg.IPv4Enabled {
			addServer("tcp4", cfg.BindIPv4, cfg.TLSPort, true)
		}
		if cfg.IPv6Enabled {
			addServer("tcp6", cfg.BindIPv6, cfg.TLSPort, true)
		}
	}

	return app, nil
}

// poolSize clamps the worker count between the configured idle and
// max threads.
func poolSize(cfg *conf.Config) int {
	size := runtime.GOMAXPROCS(0) * 2
	if size < cfg.IdleThreadsPerChild {
		size = cfg.IdleThreadsPerChild
	}
	if size > cfg.MaxThreadsPerChild {
		size = cfg.MaxThreadsPerChild
	}
	return size
}

// Start binds every listener and runs the accept loops. Listeners
// that fail to bind are dropped; it is an error when all of them fail.
func (a *App) Start() error {
	var bindErrs error
	alive := a.servers[:0]
	for _, srv := range a.servers {
		if err := srv.Listen(); err != nil {
			a.ErrorLog.Error("listener failed to start", zap.Error(err))
			bindErrs = multierr.Append(bindErrs, err)
			continue
		}
		alive = append(alive, srv)
	}
	a.servers = alive

	if len(a.servers) == 0 {
		return fmt.Errorf("every listener failed to bind: %v", bindErrs)
	}

	if a.cfg.ShowWelcomeBanner {
		printWelcomeBanner()
	}
	a.AccessLog.Info(conf.ServerName + " started successfully")

	if a.cfg.StartupCheckLatestRelease {
		go checkLatestRelease(a.ErrorLog)
	}

	a.group = new(errgroup.Group)
	for _, srv := range a.servers {
		srv := srv
		a.group.Go(func() error {
			srv.AcceptLoop()
			return nil
		})
	}
	return nil
}

// Wait blocks until every accept loop has returned.
func (a *App) Wait() {
	if a.group != nil {
		a.group.Wait()
	}
}

// Stop shuts the app down: listeners close (unblocking the accept
// loops), in-flight connections are closed, workers join, and stray
// temp files are swept.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		for _, srv := range a.servers {
			srv.Close()
		}
		a.pool.Stop()
		a.tempFiles.Sweep()
		a.AccessLog.Info("process stopped successfully")
		a.AccessLog.Sync()
		a.ErrorLog.Sync()
	})
}

// UsageInfo reports worker-pool utilization for the CLI.
func (a *App) UsageInfo() (busy, total, pending int) {
	return a.pool.Stats()
}

// RequestCounts reports served request totals by status class.
func (a *App) RequestCounts() map[string]uint64 {
	return a.Metrics.RequestCounts()
}

func printWelcomeBanner() {
	name := conf.ServerName
	leftPad := (34 - len(name)) / 2
	rightPad := 34 - len(name) - leftPad
	fmt.Println("------------------------------------")
	fmt.Printf("|%*s%s%*s|\n", leftPad, "", name, rightPad, "")
	fmt.Println("|         Ctrl+C to close.         |")
	fmt.Println("------------------------------------")
}
