/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package fetch

import (
	"io"
	"net/http"
)

// Response is the status, headers, and body stream for one request.
// Body is positioned at the body boundary; its framing (chunked,
// content-length delimited, or unbounded) is established by the execution loop before
// the reader callback runs. The underlying connection is only returned
// to the pool once Body has been read to EOF or Close has been called
// on it — an unread Body holds the connection open, same as the
// teacher's http.Response contract.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Header     http.Header
	Body       io.ReadCloser

	// ContentLength mirrors the parsed Content-Length header, or -1 if
	// absent/chunked.
	ContentLength int64

	Request *Request
}

// ResponseReader receives the final response for a call: any status the
// loop does not handle itself (including 4xx/5xx), or a 401/407 that is
// not answered with credentials. Its return value becomes
// CallWithResponse's value result.
type ResponseReader func(*Response) (any, error)
