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

//go:build unix

package httpserver

import (
	"os"

	"golang.org/x/sys/unix"
)

// hasHardLinks reports whether the regular file at path has more than
// one directory entry.
func hasHardLinks(path string, info os.FileInfo) (linked bool, ioFailure bool) {
	if !info.Mode().IsRegular() {
		return false, false
	}
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, true
	}
	return st.Nlink > 1, false
}
