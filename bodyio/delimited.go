/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package bodyio implements the body framing helpers of spec §4.6:
// content-length delimited response reads, body discard, and
// chunked/multipart/urlencoded request body writers, including file
// streaming with length precomputation.
package bodyio

import (
	"bufio"
	"bytes"
	"io"
)

// Delimited wraps a raw stream so that it reports io.EOF after exactly
// length bytes, for read-char, peek-char, read-line, and bulk reads
// alike. A negative length means "unknown", in which case Delimited
// wraps the raw stream unchanged (reads run to the underlying EOF).
func Delimited(r *bufio.Reader, length int64) io.Reader {
	if length < 0 {
		return r
	}
	return &limited{r: r, remaining: length}
}

type limited struct {
	r         *bufio.Reader
	remaining int64
}

func (l *limited) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// ReadByte lets callers that want read-char semantics avoid an
// allocation, and keeps Delimited satisfying io.ByteReader.
func (l *limited) ReadByte() (byte, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	b, err := l.r.ReadByte()
	if err == nil {
		l.remaining--
	}
	return b, err
}

// Peek exposes peek-char semantics bounded by the same remaining count.
func (l *limited) Peek(n int) ([]byte, error) {
	if l.remaining <= 0 {
		return nil, io.EOF
	}
	if int64(n) > l.remaining {
		n = int(l.remaining)
	}
	return l.r.Peek(n)
}

// ReadLine exposes read-line semantics, bounded by the remaining count;
// lines that would cross the boundary are truncated at it.
func (l *limited) ReadLine() (line []byte, isPrefix bool, err error) {
	if l.remaining <= 0 {
		return nil, false, io.EOF
	}
	for l.remaining > 0 {
		var b byte
		if b, err = l.ReadByte(); err != nil || b == '\n' {
			break
		}
		line = append(line, b)
	}
	return bytes.TrimSuffix(line, []byte("\r")), false, err
}

// Discard drains up to contentLength bytes from r if known (length >=
// 0); otherwise it reads to EOF. Closing a response body that was
// never fully read calls this to drain the rest before the connection
// is considered reusable.
func Discard(r io.Reader, contentLength int64) error {
	if contentLength < 0 {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	_, err := io.CopyN(io.Discard, r, contentLength)
	if err == io.EOF {
		return nil
	}
	return err
}
