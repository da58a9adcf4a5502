/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package fetch

import (
	"bufio"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// writeRequestLine serializes the request-line and header block to w,
// per spec §4.1 step 4. Header lines are rendered by net/http's
// Header.Write, out of scope per spec §1; this function owns only the
// choice of what to put on the wire, not how a header line is escaped.
func writeRequestLine(w *bufio.Writer, method, target, proto string, header http.Header) error {
	if _, err := fmt.Fprintf(w, "%s %s %s\r\n", method, target, proto); err != nil {
		return err
	}
	if err := header.Write(w); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

// readResponseLine parses the status-line and header block from r. A
// read that fails before a single byte of the status line arrives
// (premature disconnection, spec §4.1) is reported via ok=false together
// with the read error (io.EOF for a clean close).
func readResponseLine(r *bufio.Reader) (proto string, statusCode int, status string, header http.Header, ok bool, err error) {
	tp := textproto.NewReader(r)
	line, rerr := tp.ReadLine()
	if rerr != nil {
		return "", 0, "", nil, false, rerr
	}
	proto, status, statusCode, err = parseStatusLine(line)
	if err != nil {
		return "", 0, "", nil, true, err
	}
	mimeHeader, herr := tp.ReadMIMEHeader()
	if herr != nil && len(mimeHeader) == 0 {
		return proto, statusCode, status, nil, true, herr
	}
	return proto, statusCode, status, http.Header(mimeHeader), true, nil
}

func parseStatusLine(line string) (proto, status string, code int, err error) {
	var rest string
	for i := 0; i < len(line); i++ {
		if line[i] == ' ' {
			proto, rest = line[:i], line[i+1:]
			break
		}
	}
	if proto == "" {
		return "", "", 0, fmt.Errorf("fetch: malformed status line %q", line)
	}
	codeStr := rest
	for i := 0; i < len(rest); i++ {
		if rest[i] == ' ' {
			codeStr, status = rest[:i], rest[i+1:]
			break
		}
	}
	if status == "" {
		status = codeStr
	}
	code, err = strconv.Atoi(codeStr)
	if err != nil {
		return "", "", 0, fmt.Errorf("fetch: malformed status code %q: %w", codeStr, err)
	}
	return proto, status, code, nil
}

func parseContentLengthHeader(header http.Header) int64 {
	v := header.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func isChunked(header http.Header) bool {
	for _, v := range header["Transfer-Encoding"] {
		if v == "chunked" {
			return true
		}
	}
	return false
}

// keepAlive reports whether proto/header indicate the connection
// should persist: HTTP/1.1 defaults to keep-alive unless "Connection:
// close" is present; HTTP/1.0 defaults to close unless "Connection:
// keep-alive" is present.
func keepAlive(proto string, header http.Header) bool {
	has := func(token string) bool {
		for _, v := range header["Connection"] {
			for _, f := range strings.Split(v, ",") {
				if strings.EqualFold(strings.TrimSpace(f), token) {
					return true
				}
			}
		}
		return false
	}
	if proto == "HTTP/1.0" {
		return has("keep-alive")
	}
	return !has("close")
}
