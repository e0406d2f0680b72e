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
	"strings"
	"time"

	"github.com/mercury-httpd/mercury/conf"
)

// File is the outcome of resolving a request path under the document
// root.
type File struct {
	// Path is the canonical filesystem path of the target.
	Path string
	// RawPath is the request path with the query string removed.
	RawPath string
	// Query is the query string including the leading '?', or "".
	Query string

	MIME string // "" when no MIME mapping exists

	Exists      bool
	IsDirectory bool
	IsLinked    bool
	IOFailure   bool

	ModTime time.Time
}

// ResolveFile locates the decoded request path (query string still
// attached) under the document root. Paths escaping the root resolve
// as not-found; symlinks and hardlinked files are flagged.
func ResolveFile(decodedPath string, cfg *conf.Config) *File {
	file := &File{RawPath: decodedPath}
	if idx := strings.IndexByte(decodedPath, '?'); idx != -1 {
		file.RawPath = decodedPath[:idx]
		file.Query = decodedPath[idx:]
	}

	root := cfg.DocumentRoot
	if file.RawPath == "/" || file.RawPath == "" {
		file.Path = root
	} else {
		joined := filepath.Join(root, strings.TrimPrefix(file.RawPath, "/"))
		file.Path = filepath.ToSlash(filepath.Clean(joined))

		// the canonical target must stay under the document root; an
		// escaping path resolves as not-found without disclosure
		if file.Path != root && !strings.HasPrefix(file.Path, root+"/") {
			file.Path = ""
			return file
		}
	}

	info, err := os.Lstat(filepath.FromSlash(file.Path))
	if err != nil {
		if !os.IsNotExist(err) {
			file.IOFailure = true
		}
		return file
	}

	if info.Mode()&os.ModeSymlink != 0 {
		file.IsLinked = true
		return file
	}

	if info.IsDir() {
		// the first existing index file becomes the target
		for _, index := range cfg.IndexFiles {
			candidate := file.Path + "/" + index
			ci, err := os.Lstat(filepath.FromSlash(candidate))
			if err != nil || !ci.Mode().IsRegular() {
				continue
			}
			file.Path = candidate
			info = ci
			break
		}
	}

	if info.IsDir() {
		file.Exists = true
		file.IsDirectory = true
		file.MIME = "text/html"
		file.ModTime = info.ModTime()
		return file
	}

	linked, ioErr := hasHardLinks(filepath.FromSlash(file.Path), info)
	if ioErr {
		file.IOFailure = true
		return file
	}
	if linked || info.Mode()&os.ModeSymlink != 0 {
		file.IsLinked = true
		return file
	}

	file.Exists = info.Mode().IsRegular()
	file.ModTime = info.ModTime()

	ext := strings.TrimPrefix(filepath.Ext(file.Path), ".")
	file.MIME = cfg.MIMETypes[ext]
	return file
}

// OpenBody opens the file's contents as a body stream.
func (f *File) OpenBody() (BodyStream, error) {
	return OpenFileStream(filepath.FromSlash(f.Path))
}
