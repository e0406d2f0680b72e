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
	"regexp"
	"strconv"
	"strings"
)

// Redirect maps matching request paths to an outbound Location with a
// 3xx status. Capture groups $0..$N in To are substituted from the match.
type Redirect struct {
	Pattern *regexp.Regexp
	To      string
	Status  int
}

// Apply returns the redirected location and true if path matches the
// pattern, or "" and false otherwise.
func (r *Redirect) Apply(path string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return substituteCaptures(r.To, m), true
}

// Rewrite substitutes the effective path before file resolution; the
// externally visible URL is unchanged.
type Rewrite struct {
	Pattern *regexp.Regexp
	To      string
}

// Apply returns the rewritten path and true if path matches the
// pattern, or the original path and false otherwise.
func (r *Rewrite) Apply(path string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(path)
	if m == nil {
		return path, false
	}
	return substituteCaptures(r.To, m), true
}

// substituteCaptures replaces $0..$N in template with the capture
// groups, descending so $1 does not shadow $11.
func substituteCaptures(template string, captures []string) string {
	out := template
	for i := len(captures) - 1; i >= 0; i-- {
		out = strings.ReplaceAll(out, "$"+strconv.Itoa(i), captures[i])
	}
	return out
}

// ValidRedirectStatus reports whether status is usable on a Redirect
// rule: 300..304, 307, or 308.
func ValidRedirectStatus(status int) bool {
	return (status >= 300 && status <= 304) || status == 307 || status == 308
}
