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
	"strconv"
	"strings"
)

// Response is a mutable response builder. The body is always a
// stream; it is never materialized fully in memory except for
// strings that already fit.
type Response struct {
	Proto  string
	Status int

	headers     map[string]string
	headerOrder []string

	body BodyStream

	// boundary and partContentType are set when a multi-range body is
	// framed as multipart/byteranges.
	boundary        string
	partContentType string
}

// NewResponse returns an empty response for the given protocol.
func NewResponse(proto string) *Response {
	return &Response{
		Proto:   proto,
		Status:  200,
		headers: make(map[string]string),
	}
}

// SetStatus sets the response status code.
func (res *Response) SetStatus(status int) { res.Status = status }

// SetHeader sets a header, replacing any previous value. Names are
// stored in canonical casing.
func (res *Response) SetHeader(name, value string) {
	name = canonicalHeaderCasing(name)
	if _, ok := res.headers[name]; !ok {
		res.headerOrder = append(res.headerOrder, name)
	}
	res.headers[name] = value
}

// Header returns the named header value, if set.
func (res *Response) Header(name string) (string, bool) {
	v, ok := res.headers[canonicalHeaderCasing(name)]
	return v, ok
}

// DelHeader removes the named header.
func (res *Response) DelHeader(name string) {
	name = canonicalHeaderCasing(name)
	if _, ok := res.headers[name]; !ok {
		return
	}
	delete(res.headers, name)
	for i, n := range res.headerOrder {
		if n == name {
			res.headerOrder = append(res.headerOrder[:i], res.headerOrder[i+1:]...)
			break
		}
	}
}

// SetBodyStream replaces the body stream, closing any previous one.
func (res *Response) SetBodyStream(body BodyStream) {
	if res.body != nil {
		res.body.Close()
	}
	res.body = body
}

// SetBodyString sets an in-memory body.
func (res *Response) SetBodyString(s string) {
	res.SetBodyStream(NewMemoryStream([]byte(s)))
}

// Body returns the current body stream, which may be nil.
func (res *Response) Body() BodyStream { return res.body }

// ContentLength returns the number of body bytes that will be sent,
// before any multipart framing.
func (res *Response) ContentLength() int64 {
	if res.body == nil {
		return 0
	}
	return res.body.Size()
}

// Close releases the body stream.
func (res *Response) Close() error {
	if res.body == nil {
		return nil
	}
	err := res.body.Close()
	res.body = nil
	return err
}

// errorDocTemplate is the server-generated error document; %title% and
// %status% are substituted before sending.
const errorDocTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>%status% %title%</title>
    <style>
        body { font-family: sans-serif; margin: 4rem auto; max-width: 40rem; color: #222; }
        h1 { font-size: 1.5rem; }
        hr { border: none; border-top: 1px solid #ccc; }
        p { color: #555; }
    </style>
</head>
<body>
    <h1>%status% %title%</h1>
    <hr>
    <p>Mercury</p>
</body>
</html>
`

// LoadErrorDoc sets the status and fills the body with the HTML error
// template.
func (res *Response) LoadErrorDoc(status int) {
	res.SetStatus(status)
	doc := strings.NewReplacer(
		"%title%", statusReason(status),
		"%status%", strconv.Itoa(status),
	).Replace(errorDocTemplate)
	res.SetBodyString(doc)
	res.SetHeader("Content-Type", "text/html")
}
