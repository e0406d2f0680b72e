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

//go:build windows

package httpserver

import "os"

// hasHardLinks is a no-op on Windows; link counts are not exposed
// through os.FileInfo and symlinks are caught by Lstat.
func hasHardLinks(path string, info os.FileInfo) (linked bool, ioFailure bool) {
	return false, false
}
