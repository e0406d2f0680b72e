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

package conf

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadMIMETypes reads a MIME map file of `<ext> <mime-type>` lines.
// Malformed lines are skipped.
func LoadMIMETypes(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening MIME types file: %v", err)
	}
	defer f.Close()

	mimes := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		ext, mime, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		ext = strings.TrimSpace(ext)
		mime = strings.TrimSpace(mime)
		if ext == "" || mime == "" {
			continue
		}
		mimes[ext] = mime
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading MIME types file: %v", err)
	}
	return mimes, nil
}
