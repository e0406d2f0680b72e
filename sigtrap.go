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

package mercury

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// TrapSignals installs handlers for the shutdown signals. The first
// signal drives a graceful stop; a second one exits immediately.
// SIGPIPE from half-closed clients is ignored.
func (a *App) TrapSignals() {
	signal.Ignore(syscall.SIGPIPE)

	go func() {
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)

		for i := 0; ; i++ {
			sig := <-shutdown
			if i > 0 {
				os.Exit(1)
			}
			fmt.Printf("\nIntercepted exit signal %v, closing...\n", sig)
			go func() {
				a.Stop()
				os.Exit(0)
			}()
		}
	}()
}
