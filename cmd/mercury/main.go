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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mercury "github.com/mercury-httpd/mercury"
	"github.com/mercury-httpd/mercury/cli"
	"github.com/mercury-httpd/mercury/conf"
)

func main() {
	var configPath string
	var rootDir string

	rootCmd := &cobra.Command{
		Use:     "mercury",
		Short:   "Mercury is a multi-protocol-version HTTP origin server",
		Version: conf.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := conf.Load(configPath, rootDir)
			if err != nil {
				return fmt.Errorf("config failure: %v", err)
			}

			app, err := mercury.New(cfg)
			if err != nil {
				return err
			}

			app.TrapSignals()
			if err := app.Start(); err != nil {
				app.Stop()
				return err
			}

			// the interactive command loop exits with stdin; the
			// accept loops keep the process alive regardless
			go cli.Run(os.Stdin, os.Stdout, app, cfg.EnablePHPCGI)

			app.Wait()
			app.Stop()
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "conf/mercury.conf", "path to the XML config file")
	rootCmd.Flags().StringVar(&rootDir, "root", "", "project root for relative paths (defaults to the executable's grandparent directory)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
