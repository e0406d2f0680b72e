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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mercury-httpd/mercury/conf"
)

const latestReleaseURL = "https://api.github.com/repos/mercury-httpd/mercury/releases/latest"

// checkLatestRelease fetches the latest release tag and prints a notice
// to stdout when this build is outdated. Strictly best-effort; failures
// are logged and ignored.
func checkLatestRelease(logger *zap.Logger) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(latestReleaseURL)
	if err != nil {
		logger.Error("release check failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Error("release check failed", zap.Int("status", resp.StatusCode))
		return
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		logger.Error("release check failed", zap.Error(err))
		return
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	outdated, err := versionOutdated(conf.Version, latest)
	if err != nil {
		logger.Error("release check failed", zap.Error(err))
		return
	}
	if outdated {
		fmt.Printf("A newer Mercury release is available: v%s (running v%s)\n", latest, conf.Version)
	}
}

// versionOutdated compares dotted major.minor.patch versions.
func versionOutdated(current, latest string) (bool, error) {
	cur, err := versionParts(current)
	if err != nil {
		return false, err
	}
	lat, err := versionParts(latest)
	if err != nil {
		return false, err
	}
	for i := range cur {
		if cur[i] != lat[i] {
			return cur[i] < lat[i], nil
		}
	}
	return false, nil
}

func versionParts(v string) ([3]int, error) {
	var parts [3]int
	fields := strings.SplitN(v, ".", 3)
	if len(fields) != 3 {
		return parts, fmt.Errorf("malformed version %q", v)
	}
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil {
			return parts, fmt.Errorf("malformed version %q", v)
		}
		parts[i] = n
	}
	return parts, nil
}
