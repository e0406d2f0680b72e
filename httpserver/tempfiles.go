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

package httpserver

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// TempFileRegistry tracks temp files holding pre-compressed bodies so
// stray files can be swept at shutdown. Entries are removed when the
// owning body stream closes.
type TempFileRegistry struct {
	mu    sync.RWMutex
	dir   string
	paths map[string]struct{}
}

// NewTempFileRegistry returns a registry creating files under dir.
func NewTempFileRegistry(dir string) *TempFileRegistry {
	return &TempFileRegistry{dir: dir, paths: make(map[string]struct{})}
}

// Create opens a uniquely named temp file and registers it.
func (tr *TempFileRegistry) Create() (*os.File, error) {
	path := filepath.Join(tr.dir, "mercury-"+uuid.NewString()+".tmp")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	tr.mu.Lock()
	tr.paths[path] = struct{}{}
	tr.mu.Unlock()
	return f, nil
}

// Remove drops path from the registry.
func (tr *TempFileRegistry) Remove(path string) {
	tr.mu.Lock()
	delete(tr.paths, path)
	tr.mu.Unlock()
}

// Len returns the number of live temp files.
func (tr *TempFileRegistry) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.paths)
}

// Sweep removes any remaining temp files; called at shutdown.
func (tr *TempFileRegistry) Sweep() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for path := range tr.paths {
		os.Remove(path)
		delete(tr.paths, path)
	}
}
