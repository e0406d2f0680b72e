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

// Package cli implements the interactive stdin command loop. It is
// strictly peripheral: the server functions with stdin closed.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

// Server is the handle the command loop drives.
type Server interface {
	UsageInfo() (busy, total, pending int)
	RequestCounts() map[string]uint64
	Stop()
}

// Run reads commands from r until EOF or an exit command. It blocks;
// callers run it on its own goroutine or as the main thread's tail.
func Run(r io.Reader, w io.Writer, srv Server, phpEnabled bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch cmd {
		case "":
		case "exit":
			srv.Stop()
			return
		case "ping":
			fmt.Fprintln(w, "> Pong!")
		case "clear":
			fmt.Fprint(w, "\033[2J\033[H")
		case "info", "status":
			printStatus(w, srv)
		case "help":
			fmt.Fprintln(w, "> Exit: Exit Mercury\n"+
				"  Help: List available commands\n"+
				"  Info: View current utilization\n"+
				"  PHPInit: Checks the PHP CGI installation\n"+
				"  Ping: ???\n"+
				"  Clear: Clear the terminal\n"+
				"  Status: View current utilization")
		case "phpinit":
			phpInit(w, phpEnabled)
		default:
			fmt.Fprintln(w, "> Unknown command, try \"help\"")
		}
	}
}

func printStatus(w io.Writer, srv Server) {
	busy, total, pending := srv.UsageInfo()
	usage := 0.0
	if total > 0 {
		usage = float64(busy) / float64(total) * 100
		if usage > 100 {
			usage = 100
		}
	}
	fmt.Fprintf(w, "> %.1f%% usage (%d/%d workers, %d pending connections)\n",
		usage, busy, total, pending)

	counts := srv.RequestCounts()
	if len(counts) == 0 {
		return
	}
	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	fmt.Fprint(w, "  served:")
	for _, class := range classes {
		fmt.Fprintf(w, " %s=%d", class, counts[class])
	}
	fmt.Fprintln(w)
}

func phpInit(w io.Writer, phpEnabled bool) {
	path, err := exec.LookPath("php-cgi")
	if err != nil {
		fmt.Fprintln(w, "> php-cgi not found; install it (e.g. `sudo apt install php-cgi`) and restart Mercury")
		return
	}
	fmt.Fprintf(w, "> php-cgi found at %s\n", path)
	if !phpEnabled {
		fmt.Fprintln(w, "  PHP is currently disabled, set EnablePHPCGI to `on` in your config and restart Mercury for these changes to take effect.")
	}
}
