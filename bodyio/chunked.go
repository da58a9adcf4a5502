/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bodyio

import (
	"bufio"
	"fmt"
	"io"
)

// ChunkedWriter frames writes in HTTP/1.1 chunked transfer-coding, used
// when a request body's length can't be precomputed (an opaque stream
// field in a multipart body, for instance). Close must be called to
// emit the terminating zero-length chunk.
type ChunkedWriter struct {
	w io.Writer
}

// NewChunkedWriter wraps w.
func NewChunkedWriter(w io.Writer) *ChunkedWriter {
	return &ChunkedWriter{w: w}
}

func (c *ChunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(c.w, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := io.WriteString(c.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

// Close emits the terminating zero-length chunk and trailing CRLF.
func (c *ChunkedWriter) Close() error {
	_, err := io.WriteString(c.w, "0\r\n\r\n")
	return err
}

// ChunkedReader decodes an HTTP/1.1 chunked transfer-coded stream,
// reporting io.EOF after the terminating zero-length chunk.
type ChunkedReader struct {
	r   *bufio.Reader
	n   uint64
	err error
}

// NewChunkedReader wraps r.
func NewChunkedReader(r *bufio.Reader) *ChunkedReader {
	return &ChunkedReader{r: r}
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.n == 0 {
		if err := c.beginChunk(); err != nil {
			c.err = err
			return 0, err
		}
		if c.n == 0 {
			c.err = io.EOF
			return 0, io.EOF
		}
	}
	if uint64(len(p)) > c.n {
		p = p[:c.n]
	}
	n, err := c.r.Read(p)
	c.n -= uint64(n)
	if c.n == 0 && err == nil {
		// consume the trailing CRLF after this chunk's data
		if _, derr := c.r.Discard(2); derr != nil {
			err = derr
		}
	}
	if err != nil && err != io.EOF {
		c.err = err
	}
	return n, err
}

func (c *ChunkedReader) beginChunk() error {
	line, err := c.r.ReadSlice('\n')
	if err != nil {
		return err
	}
	line = trimCRLF(line)
	// discard chunk extensions, if any
	if i := indexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	n, err := parseHexUint(line)
	if err != nil {
		return err
	}
	c.n = n
	return nil
}

func trimCRLF(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func parseHexUint(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("bodyio: empty chunk size")
	}
	var n uint64
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= uint64(c - '0')
		case c >= 'a' && c <= 'f':
			n |= uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= uint64(c-'A') + 10
		default:
			return 0, fmt.Errorf("bodyio: invalid chunk size byte %q", c)
		}
	}
	return n, nil
}
