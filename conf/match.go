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
	"strings"
)

// Match attaches header injection, access control, and directory
// listing policy to request paths matching a pattern. A Match applies
// only when every one of its header conditions is satisfied.
type Match struct {
	Pattern              *regexp.Regexp
	Headers              map[string]string
	ShowDirectoryIndexes bool
	Access               *Access
	Filters              []HeaderCondition
}

// Applies reports whether the query-stripped decoded path matches the
// pattern and all header conditions hold. Header keys are expected
// uppercased, as the request parser stores them.
func (m *Match) Applies(path string, headers map[string]string) bool {
	if !m.Pattern.MatchString(path) {
		return false
	}
	for _, cond := range m.Filters {
		if !cond.Holds(headers) {
			return false
		}
	}
	return true
}

// HeaderCondition gates a Match on a request header.
type HeaderCondition interface {
	Holds(headers map[string]string) bool
}

type headerMatches struct {
	name    string
	pattern *regexp.Regexp
}

func (c headerMatches) Holds(headers map[string]string) bool {
	v, ok := headers[c.name]
	return ok && c.pattern.MatchString(v)
}

type headerNotMatches struct {
	name    string
	pattern *regexp.Regexp
}

func (c headerNotMatches) Holds(headers map[string]string) bool {
	v, ok := headers[c.name]
	return ok && !c.pattern.MatchString(v)
}

type headerExists struct{ name string }

func (c headerExists) Holds(headers map[string]string) bool {
	_, ok := headers[c.name]
	return ok
}

type headerAbsent struct{ name string }

func (c headerAbsent) Holds(headers map[string]string) bool {
	_, ok := headers[c.name]
	return !ok
}

// HeaderMatches requires the named header to be present and match pattern.
func HeaderMatches(name string, pattern *regexp.Regexp) HeaderCondition {
	return headerMatches{strings.ToUpper(name), pattern}
}

// HeaderNotMatches requires the named header to be present and not match pattern.
func HeaderNotMatches(name string, pattern *regexp.Regexp) HeaderCondition {
	return headerNotMatches{strings.ToUpper(name), pattern}
}

// HeaderExists requires the named header to be present.
func HeaderExists(name string) HeaderCondition {
	return headerExists{strings.ToUpper(name)}
}

// HeaderAbsent requires the named header to be absent.
func HeaderAbsent(name string) HeaderCondition {
	return headerAbsent{strings.ToUpper(name)}
}
