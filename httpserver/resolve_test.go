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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRegularFile(t *testing.T) {
	cfg := newTestConfig(t)
	file := ResolveFile("/index.html", cfg)

	assert.True(t, file.Exists)
	assert.False(t, file.IsDirectory)
	assert.Equal(t, "text/html", file.MIME)
	assert.True(t, strings.HasPrefix(file.Path, cfg.DocumentRoot))
}

func TestResolveQuerySplit(t *testing.T) {
	cfg := newTestConfig(t)
	file := ResolveFile("/index.html?a=1&b=2", cfg)

	assert.True(t, file.Exists)
	assert.Equal(t, "/index.html", file.RawPath)
	assert.Equal(t, "?a=1&b=2", file.Query)
}

func TestResolveRootUsesIndex(t *testing.T) {
	cfg := newTestConfig(t)
	file := ResolveFile("/", cfg)

	assert.True(t, file.Exists)
	assert.False(t, file.IsDirectory)
	assert.True(t, strings.HasSuffix(file.Path, "/index.html"))
}

func TestResolveDirectoryWithoutIndex(t *testing.T) {
	cfg := newTestConfig(t)
	file := ResolveFile("/sub/", cfg)

	assert.True(t, file.Exists)
	assert.True(t, file.IsDirectory)
	assert.Equal(t, "text/html", file.MIME)
}

func TestResolveMissing(t *testing.T) {
	cfg := newTestConfig(t)
	file := ResolveFile("/nope.html", cfg)
	assert.False(t, file.Exists)
	assert.False(t, file.IOFailure)
}

// every resolved path stays under the document root; escapes resolve
// as not-found, never as outside content
func TestResolveEscapeIsNotFound(t *testing.T) {
	cfg := newTestConfig(t)
	for _, path := range []string{
		"/../etc/passwd",
		"/../../etc/passwd",
		"/sub/../../etc/passwd",
	} {
		file := ResolveFile(path, cfg)
		assert.False(t, file.Exists, path)
		if file.Path != "" && file.Path != cfg.DocumentRoot {
			assert.True(t, strings.HasPrefix(file.Path, cfg.DocumentRoot), path)
		}
	}
}

func TestResolveUnknownExtension(t *testing.T) {
	cfg := newTestConfig(t)
	file := ResolveFile("/a.bin", cfg)
	require.True(t, file.Exists)
	assert.Equal(t, "", file.MIME, "unknown extensions stay unset until send time")
}

func TestFormatFileSize(t *testing.T) {
	for size, want := range map[int64]string{
		0:             "0 B",
		512:           "512 B",
		1000:          "1 KB",
		1500:          "1.5 KB",
		2_340_000:     "2.34 MB",
		5_000_000_000: "5 GB",
	} {
		assert.Equal(t, want, formatFileSize(size), size)
	}
}
