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
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
)

// browseTimeFormat renders listing timestamps in local time.
const browseTimeFormat = "01/02/06, 03:04:05 PM"

type browseListing struct {
	Path  string
	Items []browseItem
}

type browseItem struct {
	Name    string
	URL     string
	Size    string
	ModTime string
}

var browseTemplate = template.Must(template.New("browse").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Index of {{.Path}}</title>
	<style>
		body { font-family: sans-serif; margin: 2rem auto; max-width: 50rem; color: #222; }
		table { border-collapse: collapse; width: 100%; }
		th, td { text-align: left; padding: .25rem .75rem; }
		tr:hover td { background: #f4f4f4; }
	</style>
</head>
<body>
	<h1>Index of {{.Path}}</h1>
	<table>
		<tr> <th>Name</th> <th>Size</th> <th>Last Modified</th> </tr>
{{- range .Items}}
		<tr> <td><a href="{{.URL}}">{{.Name}}</a></td> <td>{{.Size}}</td> <td>{{.ModTime}}</td> </tr>
{{- end}}
	</table>
</body>
</html>
`))

// formatFileSize renders a size with decimal units and at most two
// decimal places; trailing zeros are dropped ("1.5 KB", "5 GB").
func formatFileSize(size int64) string {
	units := []struct {
		limit float64
		name  string
	}{
		{1e12, "TB"},
		{1e9, "GB"},
		{1e6, "MB"},
		{1e3, "KB"},
	}
	v := float64(size)
	for _, u := range units {
		if v >= u.limit {
			return humanize.FtoaWithDigits(v/u.limit, 2) + " " + u.name
		}
	}
	return fmt.Sprintf("%d B", size)
}

// directoryListing generates the HTML index document for the resolved
// directory. urlPath is the request path shown to the client.
func directoryListing(dirPath, urlPath string) (string, error) {
	entries, err := os.ReadDir(filepath.FromSlash(dirPath))
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	listing := browseListing{Path: urlPath}

	// parent row unless already at the root
	if urlPath != "/" && urlPath != "" {
		parent := path.Dir(trimTrailingSlashes(urlPath))
		if parent != "/" {
			parent += "/"
		}
		parentInfo, err := os.Stat(filepath.FromSlash(path.Dir(trimTrailingSlashes(dirPath))))
		modTime := ""
		if err == nil {
			modTime = parentInfo.ModTime().Local().Format(browseTimeFormat)
		}
		listing.Items = append(listing.Items, browseItem{
			Name:    "..",
			URL:     parent,
			ModTime: modTime,
		})
	}

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := entry.Name()
		size := ""
		if entry.IsDir() {
			name += "/"
		} else {
			size = formatFileSize(info.Size())
		}
		listing.Items = append(listing.Items, browseItem{
			Name:    name,
			URL:     "./" + name,
			Size:    size,
			ModTime: info.ModTime().Local().Format(browseTimeFormat),
		})
	}

	var buf bytes.Buffer
	if err := browseTemplate.Execute(&buf, listing); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func trimTrailingSlashes(s string) string {
	for len(s) > 1 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
